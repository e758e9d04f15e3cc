package domain

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Origin records which path produced an AcquisitionRequest.
type Origin string

const (
	OriginMessage Origin = "message"
	OriginRetry   Origin = "retry"
)

// AcquisitionRequest is one request to obtain the file behind URL. The new
// message path and the retry path both build it with NewAcquisitionRequest.
type AcquisitionRequest struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
	Origin    Origin `json:"origin"`
}

// NewAcquisitionRequest validates rawURL and builds a request. An empty id
// is replaced with a random UUID.
func NewAcquisitionRequest(id, sessionID, rawURL string, origin Origin) (AcquisitionRequest, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return AcquisitionRequest{}, ErrNoURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return AcquisitionRequest{}, NewDomainError(CodeInvalidURL, ErrInvalidURL.Message, err, false)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return AcquisitionRequest{}, NewDomainError(CodeInvalidURL, "Only HTTP and HTTPS URLs are supported", nil, false)
	}
	if u.Host == "" {
		return AcquisitionRequest{}, NewDomainError(CodeInvalidURL, "URL has no host", nil, false)
	}

	if id == "" {
		id = uuid.New().String()
	}

	return AcquisitionRequest{
		ID:        id,
		URL:       rawURL,
		SessionID: sessionID,
		Origin:    origin,
	}, nil
}

// Result is the outcome of one acquisition: exactly one of success or
// failure. It succeeded when Err is nil.
type Result struct {
	Request AcquisitionRequest `json:"request"`

	// Set on success. FilePath no longer exists once Acquire returns.
	FilePath  string   `json:"file_path,omitempty"`
	FileName  string   `json:"file_name,omitempty"`
	SizeBytes int64    `json:"size_bytes,omitempty"`
	Strategy  Strategy `json:"strategy,omitempty"`
	Receipt   *Receipt `json:"receipt,omitempty"`

	// Err is the last attempt error on failure.
	Err *AttemptError `json:"-"`

	// Attempts lists every failed attempt in order, for logging.
	Attempts []*AttemptError `json:"-"`

	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the acquisition produced a file.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Reason returns the failure reason, or "" on success.
func (r Result) Reason() Reason {
	if r.Err == nil {
		return ""
	}
	return r.Err.Reason
}

// Delivery is a finished file handed to a deliverer. FilePath exists and is
// closed for the duration of the Deliver call only.
type Delivery struct {
	Request   AcquisitionRequest
	FilePath  string
	FileName  string
	SizeBytes int64
}

// Deliverer hands a finished file to the requester.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) (*Receipt, error)
}

// Kind is the representation a delivered file is sent as.
type Kind string

const (
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Receipt describes a delivered file.
type Receipt struct {
	Key         string `json:"key"`
	FileName    string `json:"file_name"`
	Kind        Kind   `json:"kind"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
	Location    string `json:"location"`
}

// Stage is a progress point reported while an acquisition runs.
type Stage string

const (
	StageDownloading Stage = "downloading"
	StageUploading   Stage = "uploading"
)

// Event types published to the events queue.
const (
	EventStarted   = "acquisition.started"
	EventUploading = "acquisition.uploading"
	EventCompleted = "acquisition.completed"
	EventFailed    = "acquisition.failed"
)

// Event is published for every progress stage and final outcome.
type Event struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id"`
	SessionID string    `json:"session_id,omitempty"`
	URL       string    `json:"url"`
	Reason    Reason    `json:"reason,omitempty"`
	Kind      Kind      `json:"kind,omitempty"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	Key       string    `json:"key,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event of eventType for req.
func NewEvent(eventType string, req AcquisitionRequest) Event {
	return Event{
		Type:      eventType,
		RequestID: req.ID,
		SessionID: req.SessionID,
		URL:       req.URL,
		Timestamp: time.Now().UTC(),
	}
}
