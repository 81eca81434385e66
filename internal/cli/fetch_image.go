package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vietddude/packup/internal/control"
	"github.com/vietddude/packup/internal/pipeline"
)

var (
	fetchPrefer      []string
	fetchTimeout     time.Duration
	fetchMaxAttempts int
)

var fetchImageCmd = &cobra.Command{
	Use:   "fetch-image [query]",
	Short: "Run the image pipeline once and print the persisted asset as JSON",
	Args:  cobra.MinimumNArgs(1),
	Run:   runFetchImage,
}

func init() {
	fetchImageCmd.Flags().StringSliceVar(&fetchPrefer, "prefer", nil, "provider names to try first, in order")
	fetchImageCmd.Flags().DurationVar(&fetchTimeout, "timeout", 0, "overall deadline (default from config)")
	fetchImageCmd.Flags().IntVar(&fetchMaxAttempts, "max-attempts", 0, "attempts per provider (default from config)")
	rootCmd.AddCommand(fetchImageCmd)
}

func runFetchImage(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	ctx := context.Background()

	p, err := control.NewPipeline(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}

	query := strings.Join(args, " ")
	asset, err := p.Run(ctx, query, pipeline.Options{
		Timeout:        fetchTimeout,
		MaxAttempts:    fetchMaxAttempts,
		PreferredOrder: fetchPrefer,
		OperationID:    uuid.NewString(),
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	var exhausted *pipeline.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		_ = enc.Encode(map[string]any{
			"operationId": exhausted.OperationID,
			"query":       exhausted.Query,
			"error":       exhausted.Error(),
			"diagnostics": exhausted.Diagnostics,
		})
		slog.Error("No provider returned an image", "query", query, "attempts", len(exhausted.Diagnostics))
		os.Exit(2)
	case err != nil:
		slog.Error("Fetch failed", "query", query, "error", err)
		os.Exit(1)
	}
	_ = enc.Encode(asset)
}
