package main

import (
	"anon-chat/access"
	"anon-chat/adapter/telegram"
	"anon-chat/directory"
	"anon-chat/errors"
	"anon-chat/internal"
	"anon-chat/matchmaking"
	"anon-chat/moderation"
	"anon-chat/observability"
	"anon-chat/repositories"
	"anon-chat/runtime"
	"anon-chat/runtime/workers"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-telegram/bot/models"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Exit codes to provide meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bot terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal arrives, so deferred cleanups always run.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	admins, err := config.Admins()
	if err != nil {
		return exitConfig, err
	}
	privileges, err := config.Privileges()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Audit storage (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if config.AuditFilepath != "" && logger.Enabled(ctx, slog.LevelDebug) {
		logger.Info("Debug Badger inspector available", "url",
			fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
		database.StartDebugServer(db, config.DebugPort, "/inspect", auditMapper)
	}

	// 3. Banned words and runtime settings
	words, err := loadBannedWords(config)
	if err != nil {
		return exitConfig, err
	}
	if len(words.Words) == 0 {
		logger.Warn("No banned word loaded, the content filter is disabled")
	} else {
		logger.Info(fmt.Sprintf("Loaded %d banned words", len(words.Words)), "dictionaries", words.Dictionaries)
	}
	cfg, err := config.Settings(words.Words)
	if err != nil {
		return exitConfig, err
	}
	moderator, err := moderation.NewModerator(cfg.BannedWords, charReplacement, logger)
	if err != nil {
		return exitConfig, err
	}

	dir, err := directory.New(logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("directory opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing user directory...")
		_ = dir.Close()
	}()

	state := runtime.NewState(
		matchmaking.NewSelector(config.Selector),
		access.NewPolicy(admins, privileges),
		dir, cfg, moderator,
	)
	auditRepository := repositories.NewAuditRepository(db, logger, config.AuditLimit)
	stats := observability.NewStats(time.Now())

	// 4. Telegram transport
	// The bot dispatches updates to the adapter, which only exists once the orchestrator is built
	var adapter *telegram.Adapter
	client, err := telegram.NewBotClient(config.TelegramBotToken, func(ctx context.Context, update *models.Update) {
		adapter.Handle(ctx, update)
	})
	if err != nil {
		return exitConfig, fmt.Errorf("telegram client: %w", err)
	}
	orchestrator := runtime.NewOrchestrator(
		logger, state,
		telegram.NewNotifier(logger, client),
		auditRepository, stats,
		runtime.Config{
			WarnAfter:        config.WarningAfter,
			WarnUntil:        config.WarningUntil,
			CharReplacement:  charReplacement,
			SearchLimit:      config.SearchLimit,
			DefaultGroupName: config.DefaultGroupName,
		},
	)
	adapter = telegram.NewAdapter(logger, orchestrator, client, config.AuditLimit)

	// 5. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := stats.Register(registry, orchestrator); err != nil {
		return exitRuntime, fmt.Errorf("metrics registration failed: %w", err)
	}

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The audit inspector has no authentication, so it is only served in debug
	var inspect repositories.IAuditRepository
	if logger.Enabled(ctx, slog.LevelDebug) {
		inspect = auditRepository
		logger.Info("Audit inspector available", "url",
			fmt.Sprintf("http://localhost:%d/inspect/audit", config.MetricsPort))
	}

	// 7. Supervised workers: long polling, sweeper, heartbeat and the HTTP endpoints
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		adapter,
		workers.NewSweepWorker(logger, orchestrator, config.SweepInterval),
		workers.NewHealthWorker(logger, orchestrator, config.HeartbeatInterval),
		internal.NewHTTPServer(logger, config.MetricsPort, registry, inspect),
	)
	logger.Info("Starting anonymous chat bot",
		"admins", len(admins), "selector", config.Selector, "at", time.Now().UTC())
	sup.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.AuditFilepath)
	if config.AuditFilepath == "" {
		options = badger.DefaultOptions("").WithInMemory(true)
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}

// loadBannedWords reads BANNED_WORDS_DIR when set, the embedded dictionaries otherwise.
func loadBannedWords(config internal.Config) (runtime.BannedWords, error) {
	var (
		fsys fs.FS = runtime.DefaultBannedWords
		dir        = runtime.DefaultBannedWordsDir
	)
	if config.BannedWordsDir != "" {
		fsys, dir = os.DirFS(config.BannedWordsDir), "."
	}
	words, err := runtime.LoadBannedWords(fsys, dir)
	if errors.Is(err, errors.ErrEmptyWords) {
		return runtime.BannedWords{}, nil
	}
	return words, err
}

func auditMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	entry, err := repositories.UnmarshalEntry(val)
	if err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}
	row.Type = entry.Action
	row.Detail = fmt.Sprintf("admin=%d target=%s %s", int64(entry.Admin), entry.Target, entry.Detail)
	return row
}
