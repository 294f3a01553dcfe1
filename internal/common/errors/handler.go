package errors

import (
	"context"
	"time"
)

// Fixed replies sent to the end user for each failure kind.
const (
	MessageNotUnderstood = "I am an AI model, I am still learning. I cannot understand your message."
	MessageRephrase      = "Sorry, I couldn't turn that into a search. Could you rephrase your request?"
	MessageReadOnly      = "Sorry, I can only look up products. I can't change anything in the inventory."
	MessageLookupFailed  = "Sorry, I couldn't look that up right now. Please try again later."
	MessageServiceFailed = "Sorry, something went wrong on my side. Please try again later."
	MessageInvalidOption = "Please choose one of the options below."
)

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Handler turns component errors into a user reply and a log line. It never
// escalates: nothing past startup is fatal.
type Handler struct {
	logger Logger
}

func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle logs err with its classification and returns the reply text.
func (h *Handler) Handle(ctx context.Context, sessionKey string, err error) string {
	stdErr := Normalize(err)

	fields := map[string]interface{}{
		"sessionKey": sessionKey,
		"errorCode":  string(stdErr.Code),
		"details":    stdErr.Details,
		"retryable":  stdErr.Retryable,
	}
	if ctx.Err() != nil {
		fields["contextError"] = ctx.Err().Error()
	}

	switch stdErr.Code {
	case ErrCodeInvalidSelection, ErrCodeRoutingFailure, ErrCodeUnsafeQueryRejected:
		h.logger.Warn(stdErr.Message, fields)
	default:
		h.logger.Error(stdErr.Message, fields)
	}

	return UserMessage(stdErr.Code)
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}

	code := CodeOf(err)
	return &StandardError{
		Code:      code,
		Message:   string(code),
		Details:   err.Error(),
		Retryable: IsRetryable(err),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func UserMessage(code ErrorCode) string {
	switch code {
	case ErrCodeRoutingFailure:
		return MessageNotUnderstood
	case ErrCodeMalformedSynthesis:
		return MessageRephrase
	case ErrCodeUnsafeQueryRejected:
		return MessageReadOnly
	case ErrCodeExecutionFailure:
		return MessageLookupFailed
	case ErrCodeInvalidSelection:
		return MessageInvalidOption
	default:
		return MessageServiceFailed
	}
}
