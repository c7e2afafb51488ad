package validator

import "fmt"

// TransportError is a network or service failure on the outbound validation
// call. It is transient: the pipeline run retries it with bounded backoff.
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation transport error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation transport error: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *TransportError) IsRetryable() bool {
	return true
}

// ProtocolError is a malformed or unexpected response from the naming
// authority. Retrying will not fix a contract mismatch, so it is never
// retried; it fails the pipeline run immediately for operator attention.
type ProtocolError struct {
	Message string
	Cause   error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation protocol error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation protocol error: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *ProtocolError) IsRetryable() bool {
	return false
}
