// Package extractor runs the external media extraction tool (yt-dlp) inside
// a scratch directory and reports the file it produced.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
)

// stderrTail is how much of the tool's stderr is kept for the log.
const stderrTail = 8 * 1024

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed.
const waitDelay = 5 * time.Second

// YTDLP invokes yt-dlp. It has no timeout of its own; the caller bounds it
// through ctx.
type YTDLP struct {
	binary         string
	format         string
	outputTemplate string
	logger         observability.Logger
	metrics        observability.Metrics
}

// New creates a YTDLP from the extractor configuration.
func New(cfg config.ExtractorConfig, logger observability.Logger, metrics observability.Metrics) *YTDLP {
	d := config.DefaultExtractorConfig()
	if cfg.Binary == "" {
		cfg.Binary = d.Binary
	}
	if cfg.Format == "" {
		cfg.Format = d.Format
	}
	if cfg.OutputTemplate == "" {
		cfg.OutputTemplate = d.OutputTemplate
	}

	return &YTDLP{
		binary:         cfg.Binary,
		format:         cfg.Format,
		outputTemplate: cfg.OutputTemplate,
		logger:         logger,
		metrics:        metrics,
	}
}

// Available reports whether the binary resolves to an executable.
func (y *YTDLP) Available() bool {
	_, err := exec.LookPath(y.binary)
	return err == nil
}

// Extract runs the tool for url with workdir as output directory and
// returns the path of the newest regular file it left there. Errors are
// *domain.AttemptError.
func (y *YTDLP) Extract(ctx context.Context, url, workdir string) (string, error) {
	start := time.Now()
	defer func() {
		y.metrics.RecordDuration("extract", time.Since(start).Seconds())
	}()

	path, err := exec.LookPath(y.binary)
	if err != nil {
		return "", y.fail(ctx, domain.ReasonToolUnavailable, err)
	}

	cmd := exec.CommandContext(ctx, path,
		"--no-playlist",
		"-o", filepath.Join(workdir, y.outputTemplate),
		"-f", y.format,
		url,
	)
	cmd.Dir = workdir
	// Grandchildren (ffmpeg) may hold stderr open after the tool is killed.
	cmd.WaitDelay = waitDelay
	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr

	y.logger.Debug(ctx, "Running extractor", observability.Fields{
		"binary": path,
		"url":    url,
	})

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			if ctx.Err() != nil {
				return "", y.fail(ctx, domain.ReasonToolNonZeroExit, err)
			}
			// The process never started.
			return "", y.fail(ctx, domain.ReasonToolUnavailable, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		y.logger.Warn(ctx, "Extractor exited with error", observability.Fields{
			"url":       url,
			"exit_code": exitErr.ExitCode(),
			"stderr":    stderr.String(),
		})
		return "", y.fail(ctx, domain.ReasonToolNonZeroExit, err)
	}

	file, err := newestFile(workdir)
	if err != nil {
		return "", y.fail(ctx, domain.ReasonNoOutputProduced, err)
	}

	y.metrics.RecordSuccess("extract")
	y.logger.Info(ctx, "Extractor produced file", observability.Fields{
		"url":  url,
		"file": filepath.Base(file),
	})
	return file, nil
}

func (y *YTDLP) fail(ctx context.Context, reason domain.Reason, err error) error {
	y.metrics.RecordError("extract", string(reason))
	y.logger.Debug(ctx, "Extraction attempt failed", observability.Fields{
		"reason": string(reason),
		"error":  err.Error(),
	})
	return domain.NewAttemptError(domain.StrategyExtraction, reason, err)
}

// newestFile returns the regular file in dir with the latest modification
// time. Equal times resolve to the lexically smallest name.
func newestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list output directory: %w", err)
	}

	var (
		best     string
		bestTime time.Time
	)
	// ReadDir sorts by name, so a strict comparison keeps the smallest
	// name among equal times.
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = entry.Name()
			bestTime = info.ModTime()
		}
	}

	if best == "" {
		return "", errors.New("no output file produced")
	}
	return filepath.Join(dir, best), nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.limit {
		t.buf = append(t.buf[:0], p[len(p)-t.limit:]...)
		return n, nil
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
