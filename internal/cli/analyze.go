package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tokscope/tokscope/internal/markup"
	"github.com/tokscope/tokscope/internal/parser"
	"github.com/tokscope/tokscope/internal/tokenizer"
	"github.com/tokscope/tokscope/internal/transform"
)

type analyzeOpts struct {
	format    string
	model     string
	basis     string
	threshold float64
	maxNodes  int
	depth     int
	asJSON    bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := analyzeOpts{
		basis:     string(transform.BasisTokens),
		threshold: transform.DefaultAggregationThreshold,
		maxNodes:  transform.DefaultMaxVisibleNodes,
	}

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Parse a document and show where its tokens go",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "input format: xml, html, markdown, csv, pdf, docx, text (default: by extension)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "gpt-4o", "model whose tokenizer to use")
	cmd.Flags().StringVarP(&opts.basis, "basis", "b", opts.basis, "tree weighting: tokens or chars")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", opts.threshold, "collapse subtrees below this fraction of the total")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", opts.maxNodes, "cap on emitted tree nodes")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "expand at most this many levels (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "emit the display tree as JSON")

	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, path string, opts analyzeOpts) error {
	log := loggerFromContext(ctx)
	basis := transform.Basis(opts.basis)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	p, err := pickParser(path, opts.format)
	if err != nil {
		return err
	}

	start := time.Now()
	root, err := p.Parse(bytes.NewReader(data), filepath.Base(path))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	log.Debug("parsed", "nodes", markup.CountNodes(root), "elapsed", time.Since(start))

	reg := tokenizer.NewRegistry()
	var view tokenizer.View
	if basis == transform.BasisTokens {
		if err := countTokens(ctx, root, opts.model, reg, log); err != nil {
			return err
		}
		view, err = reg.View(opts.model)
		if err != nil {
			return err
		}
	}

	res, err := transform.Transform(root, basis, opts.model, view, transform.Options{
		AggregationThreshold: opts.threshold,
		MaxVisibleNodes:      opts.maxNodes,
		MaxDepth:             opts.depth,
		PreviewLength:        transform.DefaultPreviewLength,
	})
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprint(out, RenderTree(res, basis))
	fmt.Fprintln(out, summaryLine(res, basis, opts.model))
	return nil
}

func pickParser(path, format string) (parser.Parser, error) {
	if format != "" {
		return parser.ForFormat(format)
	}
	return parser.ForFile(path)
}

// countTokens runs the tokenize walk to completion, folding progress into
// debug logs. The counts land in the registry's cache for the transform.
func countTokens(ctx context.Context, root *markup.Node, modelID string, reg *tokenizer.Registry, log *slog.Logger) error {
	var walkErr error
	tokenizer.Walk(ctx, root, modelID, reg, func(e tokenizer.Event) {
		switch e.Type {
		case tokenizer.EventProgress:
			log.Debug("counting", "processed", e.Progress.Processed, "total", e.Progress.Total)
		case tokenizer.EventDone:
			log.Debug("counted", "total_tokens", e.Done.TotalTokens)
		case tokenizer.EventError:
			walkErr = e.Err
		}
	})
	return walkErr
}

func summaryLine(res *transform.Result, basis transform.Basis, modelID string) string {
	line := fmt.Sprintf("%d chars", res.Totals.TotalChars)
	if basis == transform.BasisTokens {
		line = fmt.Sprintf("%d tokens · %d chars · %s", res.Totals.TotalTokens, res.Totals.TotalChars, modelID)
	}
	return styleDim.Render(line)
}
