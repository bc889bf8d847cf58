package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nawinsharma/kandid/internal/worker"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run one housekeeping pass (expired sessions)",
	RunE:  runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	logger := newLogger(os.Stderr, cfg.Logging)

	w, err := worker.New(database.DB, nil, cfg.Housekeeping.Schedule, logger)
	if err != nil {
		return err
	}

	report, err := w.RunOnce(context.Background())
	if report != nil {
		fmt.Printf("Expired sessions deleted: %d\n", report.SessionsPurged)
		for status, n := range report.LeadsByStatus {
			fmt.Printf("  leads %-10s %d\n", status, n)
		}
	}
	if err != nil {
		slog.Error("cleanup finished with errors", "error", err)
		return err
	}

	fmt.Println("\nCleanup completed")
	return nil
}
