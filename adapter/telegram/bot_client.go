package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// BotClient is the part of *bot.Bot the adapter uses. Tests provide a fake one.
type BotClient interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	Start(ctx context.Context)
}

// realBotClient wraps a *bot.Bot to implement BotClient.
type realBotClient struct {
	bot *bot.Bot
}

func (r *realBotClient) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	return r.bot.SendMessage(ctx, params)
}

func (r *realBotClient) AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	return r.bot.AnswerCallbackQuery(ctx, params)
}

func (r *realBotClient) Start(ctx context.Context) {
	r.bot.Start(ctx)
}

// NewBotClient creates the bot with every update routed to handler.
func NewBotClient(token string, handler func(ctx context.Context, update *models.Update)) (BotClient, error) {
	b, err := bot.New(token, bot.WithDefaultHandler(func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		handler(ctx, update)
	}))
	if err != nil {
		return nil, err
	}
	return &realBotClient{bot: b}, nil
}
