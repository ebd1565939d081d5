package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tokscope/tokscope/internal/markup"
	"github.com/tokscope/tokscope/internal/parser"
	"github.com/tokscope/tokscope/internal/tokenizer"
)

// Worker carries out parse and tokenize jobs. One instance is shared by
// the stage goroutines; it holds no per-job state.
type Worker struct {
	docs     *DocStore
	registry *tokenizer.Registry
	log      *slog.Logger

	parseOpts   parser.Options
	pdfFallback bool
}

func NewWorker(docs *DocStore, reg *tokenizer.Registry, log *slog.Logger, parseOpts parser.Options, pdfFallback bool) *Worker {
	return &Worker{
		docs:        docs,
		registry:    reg,
		log:         log,
		parseOpts:   parseOpts,
		pdfFallback: pdfFallback,
	}
}

// ProcessParse runs one parse job to a terminal state.
func (w *Worker) ProcessParse(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	job.SetRunning("parse")

	p, err := w.selectParser(job)
	if err != nil {
		log.Error("unsupported format", "error", err)
		w.finish(job, err)
		return
	}

	data := job.FileData()
	root, err := w.parse(ctx, p, data, job)
	if err != nil {
		log.Error("parse failed", "error", err)
		w.finish(job, err)
		return
	}

	doc := NewDocument(DocID(data), job.Filename, jobFormat(job), root)
	w.docs.Put(doc)
	job.SetParseResult(doc.ID, doc.NodeCount)
	log.Info("parse complete", "doc_id", doc.ID, "nodes", doc.NodeCount, "chars", doc.TotalChars)
}

// ProcessTokenize runs one tokenize job to a terminal state.
func (w *Worker) ProcessTokenize(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "model", job.ModelID)
	job.SetRunning("count")

	doc := w.docs.Get(job.DocID)
	if doc == nil {
		err := fmt.Errorf("%s: %w", job.DocID, ErrDocNotFound)
		log.Error("tokenize failed", "error", err)
		w.finish(job, err)
		return
	}

	var failed error
	tokenizer.Walk(ctx, doc.Root(), job.ModelID, w.registry, func(e tokenizer.Event) {
		switch e.Type {
		case tokenizer.EventProgress:
			job.SetProgress(int64(e.Progress.Processed), int64(e.Progress.Total))
		case tokenizer.EventDone:
			job.SetTokenizeResult(e.Done.TotalTokens)
		case tokenizer.EventError:
			failed = e.Err
		}
	})
	if failed != nil {
		log.Error("tokenize failed", "error", failed)
		w.finish(job, failed)
		return
	}
	log.Info("tokenize complete", "total_tokens", job.Snapshot().TotalTokens)
}

// selectParser picks a parser from the job's explicit format or filename
// and applies the worker's runtime options.
func (w *Worker) selectParser(job *Job) (parser.Parser, error) {
	var p parser.Parser
	var err error
	if job.Format != "" {
		p, err = parser.ForFormat(job.Format)
	} else {
		p, err = parser.ForFile(job.Filename)
	}
	if err != nil {
		return nil, err
	}
	switch t := p.(type) {
	case *parser.XMLParser:
		t.Opts = w.parseOpts
	case *parser.HTMLParser:
		t.Opts = w.parseOpts
	case *parser.PDFParser:
		t.FallbackPdftotext = w.pdfFallback
	}
	return p, nil
}

// parse invokes the parser. The XML engine goes through its event stream
// so stage and byte progress fold into the job; other formats parse in
// one step.
func (w *Worker) parse(ctx context.Context, p parser.Parser, data []byte, job *Job) (*markup.Node, error) {
	xp, ok := p.(*parser.XMLParser)
	if !ok {
		return p.Parse(bytes.NewReader(data), job.Filename)
	}

	var root *markup.Node
	var perr error
	parser.Run(ctx, string(data), xp.Opts, func(e parser.Event) {
		switch e.Type {
		case parser.EventProgress:
			job.SetStage(e.Progress.Stage)
			job.SetProgress(e.Progress.Done, e.Progress.Total)
		case parser.EventDone:
			root = e.Root
		case parser.EventError:
			perr = e.Err
		}
	})
	if perr != nil {
		return nil, perr
	}
	return root, nil
}

// finish resolves a failed job, honoring a cancellation request over the
// error it caused.
func (w *Worker) finish(job *Job, err error) {
	if job.CancelRequested() {
		job.SetCanceled()
		return
	}
	job.Fail(err.Error())
}

// jobFormat names the format a parse job resolved to.
func jobFormat(job *Job) string {
	if job.Format != "" {
		return job.Format
	}
	ext := strings.ToLower(filepath.Ext(job.Filename))
	return strings.TrimPrefix(ext, ".")
}
