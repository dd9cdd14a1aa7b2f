package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage title keywords",
	Long: `Edits the stored keyword list. New listings are only notified when their title
contains one of the keywords; an empty list notifies everything.
Stop the daemon first, or use the /keywords chat command while it runs.`,
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add <keyword>",
	Short: "Add a keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editKeyword(strings.Join(args, " "), true)
	},
}

var keywordsRemoveCmd = &cobra.Command{
	Use:     "remove <keyword>",
	Aliases: []string{"delete", "rm"},
	Short:   "Remove a keyword",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editKeyword(strings.Join(args, " "), false)
	},
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active keywords",
	RunE:  runKeywordsList,
}

func init() {
	rootCmd.AddCommand(keywordsCmd)
	keywordsCmd.AddCommand(keywordsAddCmd, keywordsRemoveCmd, keywordsListCmd)
}

func editKeyword(keyword string, add bool) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("failed to open state", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if add {
		added, err := st.AddKeyword(ctx, keyword)
		if err != nil {
			return err
		}
		if added {
			fmt.Printf("Added keyword: %s\n", keyword)
		} else {
			fmt.Printf("Keyword (%s) is already active!\n", keyword)
		}
		return nil
	}

	removed, err := st.RemoveKeyword(ctx, keyword)
	if err != nil {
		return err
	}
	if removed {
		fmt.Printf("Deleted keyword: %s\n", keyword)
	} else {
		fmt.Printf("Keyword (%s) not found!\n", keyword)
	}
	return nil
}

func runKeywordsList(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := openStore(context.Background(), cfg, true, logger)
	if err != nil {
		logger.Error("failed to open state", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	keywords := st.Keywords()
	if len(keywords) == 0 {
		fmt.Println("No active keywords!")
		return nil
	}
	for _, k := range keywords {
		fmt.Printf("- %s\n", k)
	}
	return nil
}
