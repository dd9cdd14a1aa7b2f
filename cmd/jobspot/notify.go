package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobspot/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a sample batch through the configured notifier to every stored channel.",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg, true, logger)
	if err != nil {
		logger.Error("failed to open state", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	api, err := newBotAPI(st.Token())
	if err != nil {
		logger.Error("failed to connect to telegram", "error", err)
		os.Exit(1)
	}
	n, err := setupNotifier(cfg, api, newHTTPClient(), logger)
	if err != nil {
		logger.Error("failed to set up notifier", "error", err)
		os.Exit(1)
	}

	if err := notifier.SendTestMessage(ctx, n, st.ChannelIDs(), st.AccentColor()); err != nil {
		logger.Error("test notification failed", "error", err)
		os.Exit(1)
	}
	logger.Info("test notification sent successfully")
	return nil
}
