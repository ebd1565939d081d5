// Package cli implements the tokscope command line: analyze runs the whole
// parse/count/transform pipeline on a local file, models lists the
// registered tokenizers, and serve runs the HTTP API.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the tokscope CLI. The context carries signal-driven
// cancellation from main.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "tokscope",
		Short:        "Inspect where a document's tokens go",
		Long:         "Tokscope parses XML and other markup documents, counts tokens per element\nfor a chosen model, and shows which parts of the document dominate the total.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			cmd.SetContext(withLogger(cmd.Context(), log))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newServeCmd())

	return root.ExecuteContext(ctx)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// loggerFromContext returns the command logger, or a stderr fallback when
// the context never went through Execute.
func loggerFromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return log
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
