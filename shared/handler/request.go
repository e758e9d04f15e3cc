package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Error codes produced by the handler layer itself. Workers define their own
// codes on top of these.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnknownType    = "UNKNOWN_REQUEST_TYPE"
	CodeTimeout        = "TIMEOUT"
	CodeInternal       = "INTERNAL_ERROR"
)

// Request is a platform-agnostic request to a worker, built by the HTTP and
// Lambda adapters.
type Request struct {
	ID string `json:"id"`

	// Source is the originating platform: http, api_gateway, sqs or cli.
	Source string `json:"source"`

	// Type selects the worker operation, e.g. "acquire" or "retry".
	Type string `json:"type"`

	Payload json.RawMessage `json:"payload"`

	Metadata map[string]string `json:"metadata,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Response is a platform-agnostic worker response.
type Response struct {
	ID string `json:"id"`

	Success bool `json:"success"`

	// Data holds the JSON result and is only set when Success is true.
	Data json.RawMessage `json:"data,omitempty"`

	Error *ErrorResponse `json:"error,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`

	Duration time.Duration `json:"duration,omitempty"`
}

// ErrorResponse is the structured error carried by a failed Response.
type ErrorResponse struct {
	// Code is machine readable, e.g. "ACQUISITION_FAILED".
	Code string `json:"code"`

	// Message is safe to show to the requester.
	Message string `json:"message"`

	Details string `json:"details,omitempty"`

	// Retryable tells the requester that sending the same request again may
	// succeed. Nothing in the service retries on its own.
	Retryable bool `json:"retryable,omitempty"`
}

// retryableCodes are the codes for which a requester is offered a retry.
var retryableCodes = map[string]bool{
	CodeTimeout:          true,
	"ACQUISITION_FAILED": true,
	"DELIVERY_FAILED":    true,
}

// NewRequest creates a new request with generated ID and timestamp.
func NewRequest(requestType string, payload interface{}) (Request, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Request{}, err
	}

	return Request{
		ID:        uuid.New().String(),
		Type:      requestType,
		Payload:   payloadBytes,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UTC(),
	}, nil
}

// Unmarshal decodes the request payload into v.
func (r *Request) Unmarshal(v interface{}) error {
	return json.Unmarshal(r.Payload, v)
}

// Marshal encodes v into the response data.
func (r *Response) Marshal(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Data = data
	return nil
}

// SetMetadata adds or replaces a response metadata entry.
func (r *Response) SetMetadata(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

// NewErrorResponse creates an error response. Retryable is derived from code.
func NewErrorResponse(id string, code string, message string, details string) Response {
	return Response{
		ID:      id,
		Success: false,
		Error: &ErrorResponse{
			Code:      code,
			Message:   message,
			Details:   details,
			Retryable: IsRetryableCode(code),
		},
		ProcessedAt: time.Now().UTC(),
	}
}

// NewSuccessResponse creates a success response carrying data as JSON.
func NewSuccessResponse(id string, data interface{}) (Response, error) {
	resp := Response{
		ID:          id,
		Success:     true,
		ProcessedAt: time.Now().UTC(),
		Metadata:    make(map[string]string),
	}

	if data != nil {
		if err := resp.Marshal(data); err != nil {
			return Response{}, err
		}
	}

	return resp, nil
}

// IsRetryableCode reports whether a requester should be offered a retry for code.
func IsRetryableCode(code string) bool {
	return retryableCodes[code]
}

// SetMetadata adds or updates metadata on the request.
func (r *Request) SetMetadata(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

// GetMetadata retrieves metadata from the request.
func (r *Request) GetMetadata(key string) (string, bool) {
	if r.Metadata == nil {
		return "", false
	}
	val, ok := r.Metadata[key]
	return val, ok
}
