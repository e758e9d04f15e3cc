package domain

import "fmt"

// Strategy is one way of producing a file from a URL. The set is closed.
type Strategy string

const (
	// StrategyExtraction runs the external extraction tool.
	StrategyExtraction Strategy = "extraction"

	// StrategyDirect streams the URL over HTTP with a byte ceiling.
	StrategyDirect Strategy = "direct"
)

// Strategies lists every strategy in the order they are attempted.
var Strategies = []Strategy{StrategyExtraction, StrategyDirect}

// Reason classifies why an attempt failed.
type Reason string

const (
	// Extraction side. Recovered by falling back to a direct transfer.
	ReasonToolUnavailable  Reason = "TOOL_UNAVAILABLE"
	ReasonToolNonZeroExit  Reason = "TOOL_NON_ZERO_EXIT"
	ReasonNoOutputProduced Reason = "NO_OUTPUT_PRODUCED"

	// Direct transfer side.
	ReasonRemoteTooLarge        Reason = "REMOTE_TOO_LARGE"
	ReasonRemoteErrorStatus     Reason = "REMOTE_ERROR_STATUS"
	ReasonTransferExceededLimit Reason = "TRANSFER_EXCEEDED_LIMIT"
	ReasonTransferError         Reason = "TRANSFER_ERROR"

	// ReasonScratchUnavailable means no attempt could run at all.
	ReasonScratchUnavailable Reason = "SCRATCH_UNAVAILABLE"

	// ReasonDeliveryFailed only appears in events: the file was acquired
	// but could not be handed over.
	ReasonDeliveryFailed Reason = "DELIVERY_FAILED"
)

// AttemptError is the failure of a single strategy attempt.
type AttemptError struct {
	Strategy Strategy
	Reason   Reason
	Err      error
}

// NewAttemptError creates an AttemptError.
func NewAttemptError(strategy Strategy, reason Reason, err error) *AttemptError {
	return &AttemptError{Strategy: strategy, Reason: reason, Err: err}
}

func (e *AttemptError) Error() string {
	prefix := "acquisition failed"
	if e.Strategy != "" {
		prefix = string(e.Strategy) + " attempt failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", prefix, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s (%s)", prefix, e.Reason)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}
