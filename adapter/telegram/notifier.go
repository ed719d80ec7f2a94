package telegram

import (
	"anon-chat/domain/event"
	"anon-chat/errors"
	"context"
	"fmt"
	"log/slog"
)

// Notifier delivers core notifications as Telegram messages. In a private chat the chat id
// is the user id.
type Notifier struct {
	log    *slog.Logger
	client BotClient
}

func NewNotifier(log *slog.Logger, client BotClient) *Notifier {
	return &Notifier{log: log.With("component", "notifier"), client: client}
}

func (n *Notifier) Notify(ctx context.Context, note event.Notification) error {
	if err := send(ctx, n.client, note.Recipient, render(note)); err != nil {
		return fmt.Errorf("%w: %s to %d: %v", errors.ErrDelivery, note.Kind(), int64(note.Recipient), err)
	}
	n.log.Debug("Notification delivered", "user", note.Recipient, "kind", note.Kind())
	return nil
}
