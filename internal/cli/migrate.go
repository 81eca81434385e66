package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/packup/internal/infra/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|status]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "status"},
	Run:       runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	if cfg.Database.URL == "" {
		slog.Error("database.url is not configured")
		os.Exit(1)
	}

	action := "up"
	if len(args) == 1 {
		action = args[0]
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	switch action {
	case "up":
		if err := postgres.Migrate(ctx, db); err != nil {
			slog.Error("Migration failed", "error", err)
			os.Exit(1)
		}
	case "status":
		if err := postgres.MigrationStatus(ctx, db); err != nil {
			slog.Error("Failed to read migration status", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Unknown migrate action", "action", action)
		os.Exit(1)
	}

	version, err := postgres.MigrationVersion(ctx, db)
	if err != nil {
		slog.Error("Failed to read schema version", "error", err)
		os.Exit(1)
	}
	fmt.Printf("schema version: %d\n", version)
}
