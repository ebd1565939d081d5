package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tokscope/tokscope/internal/api"
	"github.com/tokscope/tokscope/internal/config"
	"github.com/tokscope/tokscope/internal/pipeline"
	"github.com/tokscope/tokscope/internal/tokenizer"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: "Run the tokscope HTTP API. Configuration comes from the environment:\n" +
			"PORT, TOKSCOPE_API_KEY, MAX_UPLOAD_BYTES, QUEUE_SIZE, JOB_TTL, DOC_TTL,\n" +
			"STREAM_THRESHOLD, HONOR_NAMESPACES, PDF_FALLBACK_PDFTOTEXT, DEFAULT_MODEL,\n" +
			"AGG_THRESHOLD, MAX_VISIBLE_NODES, MAX_DEPTH, PREVIEW_LENGTH.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")

	return cmd
}

// runServe blocks until the context is canceled, then drains the pipeline
// and shuts the listener down.
func runServe(ctx context.Context, cfg config.Config) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	orch := pipeline.NewOrchestrator(cfg, tokenizer.NewRegistry(), log)
	orch.Start(ctx)

	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting tokscope", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
