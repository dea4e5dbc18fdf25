package app

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/text/language"

	"QiitaAnalyzer/internal/config"
	"QiitaAnalyzer/internal/export"
	"QiitaAnalyzer/internal/infrastructure/llm"
	"QiitaAnalyzer/internal/infrastructure/qiita"
	"QiitaAnalyzer/internal/infrastructure/scheduler"
	"QiitaAnalyzer/internal/infrastructure/telegram"
	"QiitaAnalyzer/internal/logging"
	"QiitaAnalyzer/internal/ports"
	"QiitaAnalyzer/internal/sorter"
	"QiitaAnalyzer/internal/suggest"
	"QiitaAnalyzer/internal/usecase"
)

// Application wires configs to use cases.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	Store       *usecase.Store
	Suggestions *suggest.Orchestrator
	Sorter      *sorter.Sorter
	Exporters   *export.Registry
}

// New builds the application graph from cfg.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	source := qiita.NewClient(cfg.Qiita.BaseURL, &http.Client{Timeout: cfg.Qiita.Timeout}, baseLogger.With("component", "qiita"))
	generator := llm.NewGeminiClient(cfg.Gemini, baseLogger.With("component", "gemini"))

	store := usecase.NewStore(usecase.StoreDeps{
		Source:  source,
		Logger:  baseLogger.With("component", "store"),
		PerPage: cfg.Qiita.PerPage,
	})
	suggestions := suggest.New(generator, store, cfg.Gemini.APIKey, baseLogger.With("component", "suggest"))
	store.SetSuggestions(suggestions)

	registry := export.NewRegistry()
	registry.Register(export.NewCSV(cfg.Export.Location(), cfg.Export.DateLayout))
	registry.Register(export.NewXLSX(cfg.Export.Location()))

	return &Application{
		cfg:         cfg,
		logger:      baseLogger,
		Store:       store,
		Suggestions: suggestions,
		Sorter:      sorter.New(language.Make(cfg.Export.Locale)),
		Exporters:   registry,
	}
}

// Config returns the configuration the application was built from.
func (a *Application) Config() config.Config {
	return a.cfg
}

// Logger is the base logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Retrieve fetches userID's articles with the configured access token.
func (a *Application) Retrieve(ctx context.Context, userID string) error {
	return a.Store.Retrieve(ctx, userID, a.cfg.Qiita.AccessToken)
}

// NewWatcher builds the scheduled job for userID. cronSpec overrides the configured expression when set.
func (a *Application) NewWatcher(userID, cronSpec, format, outDir string) (*usecase.Watcher, error) {
	if cronSpec == "" {
		cronSpec = a.cfg.Scheduler.CronExpression
	}
	driver, err := scheduler.NewCronScheduler(cronSpec, a.cfg.Scheduler.Location())
	if err != nil {
		return nil, err
	}

	var notifier ports.Notifier
	tg := telegram.NewNotifier(a.cfg.Notifications.Telegram.BotToken, a.cfg.Notifications.Telegram.ChatID, a.logger.With("component", "telegram"))
	if tg.Configured() {
		notifier = tg
	} else {
		a.logger.Info("telegram not configured, digests are not published")
	}

	if format == "" {
		format = a.cfg.Export.Format
	}
	if outDir == "" {
		outDir = a.cfg.Export.Dir
	}

	return usecase.NewWatcher(usecase.WatcherDeps{
		Store:     a.Store,
		Sorter:    a.Sorter,
		Exporters: a.Exporters,
		Format:    format,
		OutDir:    outDir,
		Notifier:  notifier,
		Driver:    driver,
		Logger:    a.logger.With("component", "watcher"),
	}, userID, a.cfg.Qiita.AccessToken), nil
}
