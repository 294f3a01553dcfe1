package errors

import (
	"errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	ErrCodeRoutingFailure       ErrorCode = "ROUTING_FAILURE"
	ErrCodeMalformedSynthesis   ErrorCode = "MALFORMED_SYNTHESIS"
	ErrCodeUnsafeQueryRejected  ErrorCode = "UNSAFE_QUERY_REJECTED"
	ErrCodeExecutionFailure     ErrorCode = "EXECUTION_FAILURE"
	ErrCodeExternalTimeout      ErrorCode = "EXTERNAL_TIMEOUT"
	ErrCodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInvalidSelection     ErrorCode = "INVALID_SELECTION"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// Sentinels shared by every component. Wrap them with %w so callers can
// classify failures with errors.Is.
var (
	ErrRoutingFailure       = errors.New(string(ErrCodeRoutingFailure))
	ErrMalformedSynthesis   = errors.New(string(ErrCodeMalformedSynthesis))
	ErrUnsafeQueryRejected  = errors.New(string(ErrCodeUnsafeQueryRejected))
	ErrExecutionFailure     = errors.New(string(ErrCodeExecutionFailure))
	ErrExternalTimeout      = errors.New(string(ErrCodeExternalTimeout))
	ErrExternalServiceError = errors.New(string(ErrCodeExternalServiceError))
	ErrInvalidSelection     = errors.New(string(ErrCodeInvalidSelection))
)

var sentinels = map[ErrorCode]error{
	ErrCodeRoutingFailure:       ErrRoutingFailure,
	ErrCodeMalformedSynthesis:   ErrMalformedSynthesis,
	ErrCodeUnsafeQueryRejected:  ErrUnsafeQueryRejected,
	ErrCodeExecutionFailure:     ErrExecutionFailure,
	ErrCodeExternalTimeout:      ErrExternalTimeout,
	ErrCodeExternalServiceError: ErrExternalServiceError,
	ErrCodeInvalidSelection:     ErrInvalidSelection,
}

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is lets errors.Is(stdErr, ErrExecutionFailure) match on the code.
func (e *StandardError) Is(target error) bool {
	if s, ok := sentinels[e.Code]; ok {
		return s == target
	}
	return false
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewRoutingFailureError(err error) *StandardError {
	return newError(ErrCodeRoutingFailure, "Completion service did not select a known action", err, false)
}

func NewMalformedSynthesisError(err error) *StandardError {
	return newError(ErrCodeMalformedSynthesis, "Synthesized query response is not usable", err, false)
}

func NewUnsafeQueryRejectedError(query string) *StandardError {
	e := newError(ErrCodeUnsafeQueryRejected, "Query rejected by the read-only gate", nil, false)
	e.Details = fmt.Sprintf("query: %s", query)
	return e
}

func NewExecutionFailureError(err error) *StandardError {
	return newError(ErrCodeExecutionFailure, "Query execution failed", err, true)
}

func NewExternalTimeoutError(service string) *StandardError {
	e := newError(ErrCodeExternalTimeout, "External call exceeded its time budget", nil, true)
	e.Details = fmt.Sprintf("service: %s", service)
	return e
}

func NewExternalServiceError(service string, err error) *StandardError {
	e := newError(ErrCodeExternalServiceError, "External service call failed", err, true)
	e.Metadata = map[string]interface{}{"service": service}
	return e
}

func NewInvalidSelectionError(value string, options []string) *StandardError {
	e := newError(ErrCodeInvalidSelection, "Selection is not one of the offered options", nil, false)
	e.Details = fmt.Sprintf("value: %q", value)
	e.Metadata = map[string]interface{}{"options": options}
	return e
}

// CodeOf classifies any error by the first sentinel it matches.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	for _, code := range []ErrorCode{
		ErrCodeUnsafeQueryRejected,
		ErrCodeMalformedSynthesis,
		ErrCodeRoutingFailure,
		ErrCodeExecutionFailure,
		ErrCodeExternalTimeout,
		ErrCodeExternalServiceError,
		ErrCodeInvalidSelection,
	} {
		if errors.Is(err, sentinels[code]) {
			return code
		}
	}
	return ErrCodeInternal
}

// IsRetryable reports whether retrying the same operation might succeed.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeExecutionFailure, ErrCodeExternalTimeout, ErrCodeExternalServiceError:
		return true
	default:
		return false
	}
}
