package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chat-assistant/internal/common/logger"
)

type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Event describes one synthesized query and what happened to it.
type Event struct {
	ID         string    `json:"id"`
	SessionKey string    `json:"sessionKey,omitempty"`
	Table      string    `json:"table"`
	Query      string    `json:"query"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	RowCount   int       `json:"rowCount"`
	DurationMs int64     `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"`
}

// Recorder persists audit events. Implementations must not fail the caller;
// they report problems through their own logging.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// NewEvent fills the ID and timestamp.
func NewEvent(table, query string, outcome Outcome) Event {
	return Event{
		ID:        uuid.NewString(),
		Table:     table,
		Query:     query,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}

type sessionKeyCtx struct{}

// WithSessionKey tags ctx so recorders can attribute events to a chat.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyCtx{}, key)
}

func SessionKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(sessionKeyCtx{}).(string)
	return key
}

// LogRecorder writes events to the structured log.
type LogRecorder struct {
	logger logger.Logger
}

func NewLogRecorder(log logger.Logger) *LogRecorder {
	return &LogRecorder{logger: log.With(map[string]interface{}{"component": "query-audit"})}
}

func (r *LogRecorder) Record(ctx context.Context, e Event) {
	if e.SessionKey == "" {
		e.SessionKey = SessionKeyFrom(ctx)
	}
	fields := map[string]interface{}{
		"auditId":    e.ID,
		"sessionKey": e.SessionKey,
		"table":      e.Table,
		"query":      e.Query,
		"outcome":    string(e.Outcome),
		"rowCount":   e.RowCount,
		"durationMs": e.DurationMs,
	}
	if e.Reason != "" {
		fields["reason"] = e.Reason
	}

	if e.Outcome == OutcomeRejected {
		r.logger.Warn("query rejected", fields)
		return
	}
	r.logger.Info("query audited", fields)
}

// Multi fans an event out to several recorders.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) {
	for _, r := range m {
		r.Record(ctx, e)
	}
}
