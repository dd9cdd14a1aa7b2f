package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobspot/internal/config"
	"github.com/amishk599/jobspot/internal/metrics"
	"github.com/amishk599/jobspot/internal/model"
	"github.com/amishk599/jobspot/internal/notifier"
	"github.com/amishk599/jobspot/internal/ratelimit"
	"github.com/amishk599/jobspot/internal/registry"
	"github.com/amishk599/jobspot/internal/source"
	"github.com/amishk599/jobspot/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobspot",
	Short: "Job board watcher",
	Long:  "jobspot checks job boards on a timer and notifies you about listings it has not seen before.",
	// Default to `start` so that `jobspot` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSPOT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSPOT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSPOT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func openBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.State.Backend {
	case config.BackendSQLite:
		return store.NewSQLiteBackend(cfg.State.Path)
	default:
		return store.NewFileBackend(cfg.State.Path), nil
	}
}

// openStore loads the persisted state. With dryRun the store never writes.
func openStore(ctx context.Context, cfg *config.Config, dryRun bool, logger *slog.Logger) (*store.Store, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s state: %w", cfg.State.Backend, err)
	}
	if dryRun {
		backend = store.NewNopBackend(backend)
	}
	st, err := store.Open(ctx, backend, logger)
	if err != nil {
		backend.Close()
		if errors.Is(err, store.ErrBootstrapped) {
			return nil, fmt.Errorf("%w (state: %s)", err, cfg.State.Path)
		}
		return nil, err
	}
	return st, nil
}

// buildRegistry wires every enabled source behind the shared provider limiter.
func buildRegistry(cfg *config.Config, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) (*registry.Registry, error) {
	limiter := ratelimit.NewLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.Overrides)
	logger.Info("rate limiter configured", "min_delay", cfg.RateLimit.MinDelay.String())

	sources, err := source.Build(cfg, httpClient, limiter)
	if err != nil {
		return nil, err
	}
	for _, sc := range cfg.EnabledSources() {
		logger.Info("registered source", "name", sc.Name, "type", sc.Type)
	}
	return registry.New(sources,
		registry.WithTimeout(cfg.SourceTimeout),
		registry.WithLogger(logger),
		registry.WithMetrics(m),
	)
}

// newBotAPI connects to Telegram. It returns nil when token is empty.
func newBotAPI(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return api, nil
}

func setupNotifier(cfg *config.Config, api *tgbotapi.BotAPI, httpClient *http.Client, logger *slog.Logger) (model.Notifier, error) {
	switch cfg.Notification.Type {
	case config.NotifySlack:
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger), nil
	case config.NotifyTelegram:
		if api == nil {
			return nil, errors.New("notification.type is telegram but the stored token is empty")
		}
		logger.Info("using telegram notifier", "bot", api.Self.UserName)
		return notifier.NewTelegramNotifier(api, logger), nil
	default:
		return notifier.NewLogNotifier(logger), nil
	}
}
