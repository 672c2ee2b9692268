// Package pipeline runs one load, normalize and write pass over a dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ulama/internal/dataset"
	"ulama/internal/logger"
	"ulama/internal/models"
	"ulama/internal/normalizer"
	"ulama/internal/output"
)

// Errors returned by Run wrap ErrLoad or ErrWrite.
var (
	ErrMissingOutput = errors.New("output path is required")
	ErrLoad          = errors.New("load failed")
	ErrWrite         = errors.New("write failed")
)

// Request names what to load and where to write it.
type Request struct {
	Dataset string
	Split   string
	Out     string
}

// Report summarizes a finished run.
type Report struct {
	Dataset  string
	Out      string
	Rows     int
	Coverage normalizer.Coverage
	Records  []models.Scholar
	Duration time.Duration
}

// Opener resolves a dataset reference to a loader.
type Opener func(ref string) (dataset.Loader, error)

// Pipeline wires a loader, the normalizer and the output writer.
type Pipeline struct {
	open      Opener
	processor *normalizer.Processor
	logger    *logger.Logger
}

// New creates a pipeline. open is usually a closure over dataset.Open with
// options from the config.
func New(open Opener, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}

	return &Pipeline{
		open:      open,
		processor: normalizer.NewProcessor(),
		logger:    log,
	}
}

// Run executes the three phases in order. A load failure stops the run before
// anything is written.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	if req.Out == "" {
		return nil, fmt.Errorf("%w: %w", ErrWrite, ErrMissingOutput)
	}

	log := p.logger.With("dataset", req.Dataset)

	// Phase 1
	log.Info("Phase 1: Loading dataset...")

	loader, err := p.open(req.Dataset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	rows, err := loader.Load(ctx, req.Split)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	log.Info(fmt.Sprintf("📥 Loaded %d rows", len(rows)))

	// Phase 2
	log.Info("Phase 2: Normalizing records...")

	result := p.processor.Process(rows)

	for _, f := range normalizer.Fields {
		log.Debug("field coverage", "field", string(f), "rows", result.Coverage[f])
	}

	// Phase 3
	log.Info("Phase 3: Writing output...")

	if err := output.Write(req.Out, result.Records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	report := &Report{
		Dataset:  req.Dataset,
		Out:      req.Out,
		Rows:     len(result.Records),
		Coverage: result.Coverage,
		Records:  result.Records,
		Duration: time.Since(start),
	}

	log.Info(fmt.Sprintf("✅ Saved %d records to %s", report.Rows, report.Out), "duration", report.Duration)

	return report, nil
}
