package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Transport and backend errors
	ErrTransport          = fmt.Errorf("transport call failed")
	ErrBackendUnavailable = fmt.Errorf("backend unavailable")
	ErrOperationFailed    = fmt.Errorf("operation failed")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Job tracking errors
	ErrJobNotFound     = fmt.Errorf("job not found")
	ErrFeatureNotFound = fmt.Errorf("feature not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// TransportError indicates a call could not complete at the transport layer
// (connection refused, malformed response, bridge panic). Every transport
// implementation normalizes its native failures into this type; nothing
// transport-specific escapes to callers.
type TransportError struct {
	Op      string // Logical operation name (e.g. "submitGeneration")
	Message string // Normalized failure message
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error in %s: %s", e.Op, e.Message)
}

func (e *TransportError) Unwrap() error { return ErrTransport }

// NewTransportError creates a TransportError for the named operation.
func NewTransportError(op, message string) *TransportError {
	return &TransportError{Op: op, Message: message}
}

// OperationError indicates the backend completed the call but reported a
// failure for a specific job or feature.
type OperationError struct {
	Op      string // Logical operation name
	Subject string // Job or feature the failure is scoped to, if any
	Message string // Backend-reported message
}

func (e *OperationError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s failed for %s: %s", e.Op, e.Subject, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *OperationError) Unwrap() error { return ErrOperationFailed }

// NewOperationError creates an OperationError scoped to subject.
func NewOperationError(op, subject, message string) *OperationError {
	return &OperationError{Op: op, Subject: subject, Message: message}
}

// TimeoutError indicates the client-side liveness ceiling elapsed without a
// terminal status from the backend. The backend may still be working; the
// client has simply stopped watching.
type TimeoutError struct {
	JobID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s timed out waiting for the backend; it may still be running", e.JobID)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }
