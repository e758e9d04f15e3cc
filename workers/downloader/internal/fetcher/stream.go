// Package fetcher downloads a URL over HTTP into a directory while enforcing
// a byte ceiling.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
)

// DefaultFileName is used when the URL path has no usable last segment.
const DefaultFileName = "download"

// errIdleTimeout cancels a transfer whose body stalls for longer than the
// configured timeout.
var errIdleTimeout = errors.New("no data received within timeout")

// Stream is the bounded streaming fetcher.
type Stream struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	chunkSize int
	logger    observability.Logger
	metrics   observability.Metrics
}

// New creates a Stream. Dial, TLS handshake and response headers are each
// bounded by cfg.Timeout; the body is bounded by the same value as an idle
// timeout between reads.
func New(cfg config.HTTPConfig, chunkSize int, logger observability.Logger, metrics observability.Metrics) *Stream {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultHTTPConfig().Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &Stream{
		// No client timeout: a large body may legitimately take minutes.
		client:    &http.Client{Transport: transport},
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		chunkSize: chunkSize,
		logger:    logger,
		metrics:   metrics,
	}
}

// FileNameFromURL returns the last path segment of rawURL, or
// DefaultFileName when there is none.
func FileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultFileName
	}
	name := path.Base(u.Path)
	switch name {
	case "", "/", ".", "..":
		return DefaultFileName
	}
	return name
}

// Fetch downloads rawURL into workdir and returns the path of the complete,
// closed file. At most limit bytes are written; errors are
// *domain.AttemptError and leave no partial file behind.
func (s *Stream) Fetch(ctx context.Context, rawURL, workdir string, limit int64) (string, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("fetch", time.Since(start).Seconds())
	}()

	if size, ok := s.probe(ctx, rawURL); ok && size > limit {
		return "", s.fail(ctx, domain.ReasonRemoteTooLarge,
			fmt.Errorf("declared size %d exceeds limit %d", size, limit))
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", s.fail(ctx, domain.ReasonTransferError, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", s.fail(ctx, domain.ReasonTransferError, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", s.fail(ctx, domain.ReasonRemoteErrorStatus,
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	if resp.ContentLength > limit {
		return "", s.fail(ctx, domain.ReasonRemoteTooLarge,
			fmt.Errorf("declared size %d exceeds limit %d", resp.ContentLength, limit))
	}

	name := FileNameFromURL(rawURL)
	if filepath.Ext(name) == "" {
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			name += domain.ExtensionForContentType(ct)
		}
	}
	outPath := filepath.Join(workdir, name)

	timer := time.AfterFunc(s.timeout, func() { cancel(errIdleTimeout) })
	defer timer.Stop()

	total, err := s.stream(resp.Body, outPath, limit, func() { timer.Reset(s.timeout) })
	if err != nil {
		os.Remove(outPath)
		if cause := context.Cause(reqCtx); cause != nil && !errors.Is(err, cause) {
			err = fmt.Errorf("%w: %w", cause, err)
		}
		var attemptErr *domain.AttemptError
		if errors.As(err, &attemptErr) {
			return "", s.fail(ctx, attemptErr.Reason, attemptErr.Err)
		}
		return "", s.fail(ctx, domain.ReasonTransferError, err)
	}

	s.metrics.RecordSuccess("fetch")
	s.metrics.RecordFileSize(domain.FileType(name), total)
	s.logger.Info(ctx, "Direct transfer completed", observability.Fields{
		"url":        rawURL,
		"file":       name,
		"size_bytes": total,
	})
	return outPath, nil
}

// probe issues a HEAD request and returns the declared Content-Length when
// the response is not an error. Failures are logged and ignored.
func (s *Stream) probe(ctx context.Context, rawURL string) (int64, bool) {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug(ctx, "HEAD probe failed", observability.Fields{
			"url":   rawURL,
			"error": err.Error(),
		})
		return 0, false
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, false
	}

	size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil || size < 0 {
		return 0, false
	}
	return size, true
}

// stream copies body to outPath in chunkSize reads, calling onRead after
// every read. The running total is checked before each write.
func (s *Stream) stream(body io.Reader, outPath string, limit int64, onRead func()) (int64, error) {
	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	buf := make([]byte, s.chunkSize)
	var total int64
	for {
		n, rerr := body.Read(buf)
		onRead()
		if n > 0 {
			total += int64(n)
			if total > limit {
				f.Close()
				return total, domain.NewAttemptError(domain.StrategyDirect, domain.ReasonTransferExceededLimit,
					fmt.Errorf("transfer exceeded limit of %d bytes", limit))
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				return total, fmt.Errorf("failed to write file: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			return total, fmt.Errorf("failed to read body: %w", rerr)
		}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return total, fmt.Errorf("failed to sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		return total, fmt.Errorf("failed to close file: %w", err)
	}
	return total, nil
}

func (s *Stream) fail(ctx context.Context, reason domain.Reason, err error) error {
	s.metrics.RecordError("fetch", string(reason))
	s.logger.Warn(ctx, "Direct transfer failed", observability.Fields{
		"reason": string(reason),
		"error":  err.Error(),
	})
	return domain.NewAttemptError(domain.StrategyDirect, reason, err)
}
