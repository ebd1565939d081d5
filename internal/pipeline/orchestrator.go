package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tokscope/tokscope/internal/config"
	"github.com/tokscope/tokscope/internal/parser"
	"github.com/tokscope/tokscope/internal/tokenizer"
	"github.com/tokscope/tokscope/internal/transform"
)

var (
	// ErrDocNotFound reports an unknown document ID.
	ErrDocNotFound = errors.New("document not found")
	// ErrUnknownModel reports a model no adapter serves.
	ErrUnknownModel = errors.New("unknown model")
	// ErrQueueFull reports a bounded queue at capacity.
	ErrQueueFull = errors.New("queue full")
)

// Orchestrator owns the stores, the queues, and the two stage workers.
// Submits fail fast on anything checkable synchronously (format, model,
// queue capacity); everything else resolves through job state.
type Orchestrator struct {
	jobs     *JobStore
	docs     *DocStore
	registry *tokenizer.Registry
	log      *slog.Logger
	cfg      config.Config

	parseQueue    chan *Job
	tokenizeQueue chan *Job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(cfg config.Config, reg *tokenizer.Registry, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:          NewJobStore(cfg.JobTTL),
		docs:          NewDocStore(cfg.DocTTL),
		registry:      reg,
		log:           log,
		cfg:           cfg,
		parseQueue:    make(chan *Job, cfg.QueueSize),
		tokenizeQueue: make(chan *Job, cfg.QueueSize),
	}
}

// Start launches the stage workers and the store cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	w := NewWorker(o.docs, o.registry, o.log, parser.Options{
		PreserveAttributes: true,
		HonorNamespaces:    o.cfg.HonorNamespaces,
		StreamThreshold:    o.cfg.StreamThreshold,
	}, o.cfg.PDFFallbackPdftotext)

	// One long-lived goroutine per stage: jobs within a stage run in
	// submission order, and the two stages overlap.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.drain(workerCtx, o.parseQueue, w.ProcessParse)
	}()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.drain(workerCtx, o.tokenizeQueue, w.ProcessTokenize)
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
				o.docs.Cleanup()
			}
		}
	}()
}

func (o *Orchestrator) drain(ctx context.Context, queue chan *Job, process func(context.Context, *Job)) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-queue:
			if !ok {
				return
			}
			jobCtx, cancel := context.WithCancel(ctx)
			if !job.bindCancel(cancel) {
				// Canceled while queued.
				cancel()
				continue
			}
			process(jobCtx, job)
			cancel()
		}
	}
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.parseQueue)
	close(o.tokenizeQueue)
	o.wg.Wait()
}

// SubmitParse queues a document for parsing and returns the tracking job.
func (o *Orchestrator) SubmitParse(filename, format string, data []byte) (*Job, error) {
	if format != "" {
		if _, err := parser.ForFormat(format); err != nil {
			return nil, err
		}
	} else if _, err := parser.ForFile(filename); err != nil {
		return nil, err
	}

	job := newJob(JobParse)
	job.Filename = filename
	job.Format = format
	job.SetFileData(data)
	o.jobs.Put(job)

	select {
	case o.parseQueue <- job:
		return job, nil
	default:
		job.Fail("parse queue full")
		return nil, fmt.Errorf("parse: %w", ErrQueueFull)
	}
}

// SubmitTokenize queues a token count over a parsed document. Unknown
// models and unknown documents are rejected here, not in the worker.
func (o *Orchestrator) SubmitTokenize(docID, modelID string) (*Job, error) {
	if modelID == "" {
		modelID = o.cfg.DefaultModel
	}
	if _, err := o.registry.Resolve(modelID); err != nil {
		return nil, fmt.Errorf("%s: %w", modelID, ErrUnknownModel)
	}
	if o.docs.Get(docID) == nil {
		return nil, fmt.Errorf("%s: %w", docID, ErrDocNotFound)
	}

	job := newJob(JobTokenize)
	job.DocID = docID
	job.ModelID = modelID
	o.jobs.Put(job)

	select {
	case o.tokenizeQueue <- job:
		return job, nil
	default:
		job.Fail("tokenize queue full")
		return nil, fmt.Errorf("tokenize: %w", ErrQueueFull)
	}
}

// TransformDoc builds a display tree synchronously from whatever counts
// the cache holds right now.
func (o *Orchestrator) TransformDoc(docID string, basis transform.Basis, modelID string, opts transform.Options) (*transform.Result, error) {
	doc := o.docs.Get(docID)
	if doc == nil {
		return nil, fmt.Errorf("%s: %w", docID, ErrDocNotFound)
	}

	var view tokenizer.View
	if basis == transform.BasisTokens {
		if modelID == "" {
			modelID = o.cfg.DefaultModel
		}
		v, err := o.registry.View(modelID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", modelID, ErrUnknownModel)
		}
		view = v
	}
	return transform.Transform(doc.Root(), basis, modelID, view, opts)
}

// Cancel requests cancellation of a job. Returns false for unknown or
// already-finished jobs.
func (o *Orchestrator) Cancel(id string) bool {
	job := o.jobs.Get(id)
	if job == nil {
		return false
	}
	return job.RequestCancel()
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// GetDoc returns a parsed document by ID.
func (o *Orchestrator) GetDoc(id string) *Document {
	return o.docs.Get(id)
}

// Docs lists parsed documents, newest first.
func (o *Orchestrator) Docs() []*Document {
	return o.docs.List()
}

// Models lists the models the registry can serve.
func (o *Orchestrator) Models() []tokenizer.ModelInfo {
	return o.registry.Models()
}

// QueueDepth returns the combined depth of both queues.
func (o *Orchestrator) QueueDepth() int {
	return len(o.parseQueue) + len(o.tokenizeQueue)
}
