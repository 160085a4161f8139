package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/firstrun"
	"NewsRelay/internal/infrastructure/cryptopanic"
	"NewsRelay/internal/infrastructure/scheduler"
	"NewsRelay/internal/infrastructure/storage"
	"NewsRelay/internal/infrastructure/telegram"
	"NewsRelay/internal/infrastructure/translate"
	"NewsRelay/internal/logging"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/usecase"
)

const shutdownTimeout = 2 * time.Minute

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	scheduler *usecase.Scheduler
}

// New builds the relay: adapters, loaded history and the dispatcher loop.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}

	policy, err := firstrun.NewRegistry(cfg.FirstRun.CatchUpSize).Resolve(cfg.FirstRun.Policy)
	if err != nil {
		return nil, err
	}

	schedule, err := scheduler.ParseInterval(cfg.Scheduler.Interval)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	apiEndpoint := cfg.Telegram.APIEndpoint
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	bot := newBot(cfg.Telegram, apiEndpoint, httpClient, baseLogger)

	history := storage.NewJSONHistory(cfg.History.Path)
	seen := loadHistory(ctx, history, baseLogger)

	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Source:       cryptopanic.NewClient(cfg.Source, httpClient, baseLogger.With("component", "source")),
		Publisher:    telegram.NewNotifier(bot, cfg.Telegram),
		Translator:   newTranslator(cfg.Translation, httpClient),
		History:      history,
		FirstRun:     policy,
		Logger:       baseLogger.With("component", "dispatcher"),
		TargetLocale: cfg.Translation.TargetLocale(),
		Seen:         seen,
	})

	driver := scheduler.NewCronScheduler(schedule, baseLogger.With("component", "scheduler"))

	baseLogger.Info("relay configured",
		"history_path", history.Path(),
		"history_size", len(seen),
		"first_run_policy", policy.Name(),
		"interval", cfg.Scheduler.Interval,
		"translation", cfg.Translation.Enabled)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		scheduler: usecase.NewScheduler(driver, dispatcher, baseLogger.With("component", "relay")),
	}, nil
}

// Run starts the loop and blocks until ctx is cancelled, then waits for the
// running cycle to finish.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	a.logger.Info("shutting down, waiting for running cycle")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

func loadHistory(ctx context.Context, store ports.HistoryStore, logger *slog.Logger) []domain.ArticleID {
	ids, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCorruptHistory) {
			logger.Error("history unreadable, starting empty", "error", err)
		} else {
			logger.Error("history load failed, starting empty", "error", err)
		}
		return nil
	}
	return ids
}

func newTranslator(cfg config.TranslationConfig, client *http.Client) ports.Translator {
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Provider {
	case config.ProviderChatGPT:
		return translate.NewChatGPTTranslator(cfg.ChatGPT, client)
	default:
		return translate.NewGoogleTranslator(cfg.GoogleEndpoint, client)
	}
}

// newBot verifies the token with getMe. When Telegram is unreachable at boot
// the relay keeps running with an unverified client; sends fail and are
// retried by later cycles.
func newBot(cfg config.TelegramConfig, apiEndpoint string, client *http.Client, logger *slog.Logger) *tgbotapi.BotAPI {
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, apiEndpoint, client)
	if err == nil {
		logger.Info("telegram bot ready", "username", bot.Self.UserName, "chat_id", cfg.ChatID, "topic_id", cfg.TopicID)
		return bot
	}

	logger.Warn("telegram getMe failed, continuing with unverified bot", "error", err, "chat_id", cfg.ChatID, "topic_id", cfg.TopicID)
	bot = &tgbotapi.BotAPI{Token: cfg.BotToken, Client: client, Buffer: 100}
	bot.SetAPIEndpoint(apiEndpoint)
	return bot
}
