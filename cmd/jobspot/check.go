package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobspot/internal/model"
	"github.com/amishk599/jobspot/internal/notifier"
	"github.com/amishk599/jobspot/internal/poller"
)

var checkDryRun bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one check cycle and exit",
	Long: `Runs one check-and-notify cycle against every enabled source and prints the result.
With --dry-run the known listings are not updated and matches are only logged.
Do not run this while the daemon owns the same state.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "do not persist the snapshot; log matches instead of notifying")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if checkDryRun {
		logger.Info("dry-run mode: known listings will not be updated")
	}
	st, err := openStore(ctx, cfg, checkDryRun, logger)
	if err != nil {
		logger.Error("failed to open state", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	httpClient := newHTTPClient()
	reg, err := buildRegistry(cfg, httpClient, nil, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	var n model.Notifier = notifier.NewLogNotifier(logger)
	if !checkDryRun {
		api, err := newBotAPI(st.Token())
		if err != nil {
			logger.Error("failed to connect to telegram", "error", err)
			os.Exit(1)
		}
		if n, err = setupNotifier(cfg, api, httpClient, logger); err != nil {
			logger.Error("failed to set up notifier", "error", err)
			os.Exit(1)
		}
	}

	checker := poller.NewChecker(reg, st, notifier.Direct{Notifier: n}, nil, logger)
	res, err := checker.CheckAndNotify(ctx)
	if err != nil {
		logger.Error("check failed", "run_id", res.RunID, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Check complete: %d open, %d new, %d matched", res.Open, res.New, res.Matched)
	if res.Failed > 0 {
		fmt.Printf(" (%d of %d sources failed)", res.Failed, reg.Len())
	}
	fmt.Println()
	return nil
}
