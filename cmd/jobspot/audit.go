package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobspot/internal/audit"
	"github.com/amishk599/jobspot/internal/config"
	"github.com/amishk599/jobspot/internal/model"
	"github.com/amishk599/jobspot/internal/source"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse a source's listings interactively (TUI)",
	Long:  "Shows the source picker, scrapes the chosen source, then compares its listings with the stored snapshot and keywords.",
	RunE:  runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Any log output once the TUI starts corrupts the display.
	silent := slog.New(slog.NewTextHandler(io.Discard, nil))

	known := model.NewListingSet()
	var keywords []string
	st, err := openStore(context.Background(), cfg, true, silent)
	if err != nil {
		logger.Warn("state unavailable, every listing will show as new", "error", err)
	} else {
		known = st.KnownListings()
		keywords = st.Keywords()
		st.Close()
	}

	runAudit(cfg, newHTTPClient(), known, keywords)
	return nil
}

func runAudit(cfg *config.Config, httpClient *http.Client, known model.ListingSet, keywords []string) {
	enabled := cfg.EnabledSources()
	if len(enabled) == 0 {
		fmt.Println("No enabled sources in config.")
		return
	}
	choices := make([]audit.Choice, len(enabled))
	for i, sc := range enabled {
		choices[i] = audit.Choice{Name: sc.Name, Type: sc.Type}
	}

	for {
		choice, err := audit.RunSourcePicker(choices)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}
		sc := enabled[choice]

		src, err := source.New(sc, httpClient)
		if err != nil {
			fmt.Printf("Cannot build source: %v\n", err)
			continue
		}

		listings, err := audit.RunLoader(sc.Name, src.Scrape)
		if err != nil {
			fmt.Printf("Error scraping %s: %v\n", sc.Name, err)
			continue
		}

		all, matched := audit.BuildEntries(listings, known, keywords)
		wantQuit, err := audit.RunAuditTUI(all, matched, keywords)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
	}
}
