package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/fetch/travel"
	"github.com/vietddude/packup/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured providers, backends and schema version",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "IMAGE PROVIDER\tPRIORITY\tENABLED\tKEY")
	for _, p := range cfg.Providers {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%t\t%t\n", p.Name, p.Priority, p.IsEnabled(), p.APIKey != "")
	}
	_ = w.Flush()
	fmt.Println()

	links := travel.NewLinker(cfg.Travel.Marker, cfg.Travel.ClickSecret)
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "OFFER KIND\tSOURCES")
	for _, kind := range []domain.OfferKind{domain.OfferFlight, domain.OfferHotel, domain.OfferActivity} {
		var names []string
		for _, r := range travel.Build(cfg.Travel, kind, links) {
			names = append(names, r.Spec.Name)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", kind, strings.Join(names, " > "))
	}
	_ = w.Flush()
	fmt.Println()

	llmBackend := cfg.LLM.Backend
	if llmBackend == "" || cfg.LLM.APIKey == "" {
		llmBackend = "mock"
	}

	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "COMPONENT\tVALUE")
	_, _ = fmt.Fprintf(w, "llm\t%s\n", llmBackend)
	_, _ = fmt.Fprintf(w, "image storage\t%s\n", cfg.Storage.Backend)
	_, _ = fmt.Fprintf(w, "log storage\t%s\n", cfg.Logs.Backend)
	_, _ = fmt.Fprintf(w, "ratelimit\t%s\n", cfg.RateLimit.Backend)
	_, _ = fmt.Fprintf(w, "offer cache\t%s\n", cfg.Cache.Backend)
	_, _ = fmt.Fprintf(w, "database\t%s\n", schemaVersion(cfg.Database))
	_ = w.Flush()
}

func schemaVersion(cfg postgres.Config) string {
	if cfg.URL == "" {
		return "memory"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		slog.Warn("Database unreachable", "error", err)
		return "unreachable"
	}
	defer func() {
		_ = db.Close()
	}()

	version, err := postgres.MigrationVersion(ctx, db)
	if err != nil {
		return "unknown"
	}
	return fmt.Sprintf("postgres (schema v%d)", version)
}
