// Package acquisition runs the fallback chain that turns a URL into a file:
// the extraction tool first, then a bounded direct transfer. Each call owns
// a scratch directory that is removed before Acquire returns.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
)

// Extractor produces a file with the external extraction tool.
type Extractor interface {
	Extract(ctx context.Context, url, workdir string) (string, error)
}

// Fetcher produces a file with a direct HTTP transfer of at most limit bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url, workdir string, limit int64) (string, error)
}

// Deliverer hands a finished file to the requester.
type Deliverer = domain.Deliverer

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, d domain.Delivery) (*domain.Receipt, error)

// Deliver calls f(ctx, d).
func (f DelivererFunc) Deliver(ctx context.Context, d domain.Delivery) (*domain.Receipt, error) {
	return f(ctx, d)
}

// ProgressFunc is called when an acquisition reaches a new stage.
type ProgressFunc func(ctx context.Context, req domain.AcquisitionRequest, stage domain.Stage)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProgress registers fn for progress notifications.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// Orchestrator runs acquisitions.
type Orchestrator struct {
	extractor      Extractor
	fetcher        Fetcher
	scratchDir     string
	maxDirectBytes int64
	progress       ProgressFunc
	logger         observability.Logger
	metrics        observability.Metrics
}

// New creates an Orchestrator. cfg.MaxRetries is not used: retries are
// requested explicitly through the session.
func New(
	cfg config.AcquisitionConfig,
	extractor Extractor,
	fetcher Fetcher,
	logger observability.Logger,
	metrics observability.Metrics,
	opts ...Option,
) *Orchestrator {
	if cfg.MaxDirectBytes <= 0 {
		cfg.MaxDirectBytes = config.DefaultMaxDirectBytes
	}

	o := &Orchestrator{
		extractor:      extractor,
		fetcher:        fetcher,
		scratchDir:     cfg.ScratchDir,
		maxDirectBytes: cfg.MaxDirectBytes,
		progress:       func(context.Context, domain.AcquisitionRequest, domain.Stage) {},
		logger:         logger,
		metrics:        metrics,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Acquire obtains the file behind req.URL and passes it to deliverer.
//
// The returned Result always describes the acquisition: on failure its Err
// holds the reason of the last attempt. A non-nil error means the file was
// acquired but delivery failed. The scratch directory is gone when Acquire
// returns, whatever the outcome.
func (o *Orchestrator) Acquire(ctx context.Context, req domain.AcquisitionRequest, deliverer Deliverer) (domain.Result, error) {
	o.metrics.StartOperation("acquire")
	defer o.metrics.EndOperation("acquire")

	start := time.Now()
	result := domain.Result{Request: req}
	defer func() {
		o.metrics.RecordDuration("acquire", time.Since(start).Seconds())
	}()

	if deliverer == nil {
		return result, errors.New("deliverer is required")
	}

	log := o.logger.WithFields(observability.Fields{
		"acquisition_id": req.ID,
		"url":            req.URL,
		"origin":         string(req.Origin),
	})

	workdir, err := os.MkdirTemp(o.scratchDir, "acquire-*")
	if err != nil {
		result.Err = domain.NewAttemptError("", domain.ReasonScratchUnavailable,
			fmt.Errorf("failed to create scratch directory: %w", err))
		result.Attempts = []*domain.AttemptError{result.Err}
		result.Duration = time.Since(start)
		o.metrics.RecordError("acquire", string(domain.ReasonScratchUnavailable))
		log.Error(ctx, "Scratch directory unavailable", err, nil)
		return result, nil
	}
	defer func() {
		if rmErr := os.RemoveAll(workdir); rmErr != nil {
			log.Error(ctx, "Failed to remove scratch directory", rmErr, observability.Fields{
				"workdir": workdir,
			})
		}
	}()

	o.progress(ctx, req, domain.StageDownloading)

	var (
		path string
		info os.FileInfo
	)
	for _, strategy := range domain.Strategies {
		path, err = o.attempt(ctx, strategy, req.URL, workdir)
		if err == nil {
			info, err = os.Stat(path)
			if err != nil {
				// The strategy reported a file it did not leave behind.
				err = domain.NewAttemptError(strategy, missingOutputReason(strategy),
					fmt.Errorf("produced file missing: %w", err))
			}
		}
		if err == nil {
			result.Strategy = strategy
			break
		}

		attemptErr := asAttemptError(strategy, err)
		result.Attempts = append(result.Attempts, attemptErr)
		log.Info(ctx, "Acquisition attempt failed", observability.Fields{
			"strategy": string(strategy),
			"reason":   string(attemptErr.Reason),
		})
	}

	if result.Strategy == "" {
		result.Err = result.Attempts[len(result.Attempts)-1]
		result.Duration = time.Since(start)
		o.metrics.RecordError("acquire", string(result.Err.Reason))
		log.Warn(ctx, "Acquisition failed", observability.Fields{
			"reason":   string(result.Err.Reason),
			"attempts": len(result.Attempts),
		})
		return result, nil
	}

	result.FilePath = path
	result.FileName = filepath.Base(path)
	result.SizeBytes = info.Size()
	o.metrics.RecordFileSize(string(result.Strategy), result.SizeBytes)

	log.Info(ctx, "File acquired", observability.Fields{
		"strategy":   string(result.Strategy),
		"file":       result.FileName,
		"size_bytes": result.SizeBytes,
	})

	o.progress(ctx, req, domain.StageUploading)

	receipt, err := deliverer.Deliver(ctx, domain.Delivery{
		Request:   req,
		FilePath:  path,
		FileName:  result.FileName,
		SizeBytes: result.SizeBytes,
	})
	result.Receipt = receipt
	result.Duration = time.Since(start)
	if err != nil {
		o.metrics.RecordError("acquire", "delivery_failed")
		log.Error(ctx, "Delivery failed", err, nil)
		return result, fmt.Errorf("delivery failed: %w", err)
	}

	o.metrics.RecordSuccess("acquire")
	return result, nil
}

// attempt runs one strategy.
func (o *Orchestrator) attempt(ctx context.Context, strategy domain.Strategy, url, workdir string) (string, error) {
	switch strategy {
	case domain.StrategyExtraction:
		return o.extractor.Extract(ctx, url, workdir)
	case domain.StrategyDirect:
		return o.fetcher.Fetch(ctx, url, workdir, o.maxDirectBytes)
	default:
		return "", fmt.Errorf("unknown strategy %q", strategy)
	}
}

// missingOutputReason is the reason recorded when strategy succeeded but its
// file is not on disk.
func missingOutputReason(strategy domain.Strategy) domain.Reason {
	if strategy == domain.StrategyExtraction {
		return domain.ReasonNoOutputProduced
	}
	return domain.ReasonTransferError
}

// asAttemptError returns err as an AttemptError, classifying foreign errors
// by the side of the chain they came from.
func asAttemptError(strategy domain.Strategy, err error) *domain.AttemptError {
	var attemptErr *domain.AttemptError
	if errors.As(err, &attemptErr) {
		return attemptErr
	}
	reason := domain.ReasonTransferError
	if strategy == domain.StrategyExtraction {
		reason = domain.ReasonToolNonZeroExit
	}
	return domain.NewAttemptError(strategy, reason, err)
}
