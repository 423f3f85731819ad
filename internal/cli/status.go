package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/deploykit/rollbackd/internal/core/config"
	"github.com/deploykit/rollbackd/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent rollback executions",
	Run:   runStatus,
}

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Show stored recovery points",
	Run:   runPoints,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pointsCmd)
}

func openDB(ctx context.Context) *postgres.DB {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Storage.Backend != "postgres" {
		slog.Error("Status commands require the postgres storage backend")
		os.Exit(1)
	}

	db, err := postgres.NewDB(ctx, cfg.Storage.Postgres)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return db
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	db := openDB(ctx)
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewExecutionRepo(db)
	execs, err := repo.List(ctx)
	if err != nil {
		slog.Error("Failed to list executions", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tPOINT\tSTRATEGY\tSTATUS\tSTARTED\tENDED")

	for _, e := range execs {
		ended := "-"
		if e.EndedAt != nil {
			ended = e.EndedAt.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.RecoveryPointID, e.Strategy.Name, e.Status,
			e.StartedAt.Format(time.RFC3339), ended)
	}
	_ = w.Flush()
}

func runPoints(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	db := openDB(ctx)
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewPointRepo(db)
	points, err := repo.List(ctx)
	if err != nil {
		slog.Error("Failed to list recovery points", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tTRIGGER\tVERSION\tSCORE\tPASSED\tCREATED\tEXPIRES")

	for _, p := range points {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%t\t%s\t%s\n",
			p.ID, p.Kind, p.Trigger, p.Metadata.Version,
			p.Verification.OverallScore, p.Verification.Passed,
			p.CreatedAt.Format(time.RFC3339), p.ExpiresAt().Format(time.RFC3339))
	}
	_ = w.Flush()
}
