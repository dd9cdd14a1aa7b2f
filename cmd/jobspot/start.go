package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobspot/internal/bot"
	"github.com/amishk599/jobspot/internal/metrics"
	"github.com/amishk599/jobspot/internal/notifier"
	"github.com/amishk599/jobspot/internal/poller"
	"github.com/amishk599/jobspot/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the checking daemon",
	Long:  "Start the scheduler daemon (plus the Telegram command bot when a token is stored); blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("failed to open state", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	logger.Info("state loaded",
		"backend", cfg.State.Backend,
		"interval", st.CheckInterval().String(),
		"keywords", len(st.Keywords()),
		"known_listings", st.KnownListings().Len(),
		"channels", len(st.ChannelIDs()),
	)

	m := metrics.New()
	httpClient := newHTTPClient()

	reg, err := buildRegistry(cfg, httpClient, m, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	api, err := newBotAPI(st.Token())
	if err != nil {
		logger.Error("failed to connect to telegram", "error", err)
		os.Exit(1)
	}
	n, err := setupNotifier(cfg, api, httpClient, logger)
	if err != nil {
		logger.Error("failed to set up notifier", "error", err)
		os.Exit(1)
	}

	dispatcher := notifier.NewDispatcher(n, m, logger)
	checker := poller.NewChecker(reg, st, dispatcher, m, logger)
	sched := scheduler.NewScheduler(checker, st.CheckInterval(), logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	if api != nil {
		b := bot.New(api, sched, st, st.GuildIDs(), logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(ctx)
		}()
	} else {
		logger.Warn("no telegram token stored, chat commands disabled")
	}

	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	wg.Wait()
	logger.Info("goodbye")
	return nil
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
