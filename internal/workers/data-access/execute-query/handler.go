package executequery

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chat-assistant/internal/common/audit"
	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/common/metrics"
	"chat-assistant/internal/models"
)

const (
	TaskType = "execute-query"
)

type Handler struct {
	config   *Config
	db       *sql.DB
	recorder audit.Recorder
	logger   logger.Logger
}

func NewHandler(config *Config, db *sql.DB, recorder audit.Recorder, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		db:       db,
		recorder: recorder,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute runs a synthesized query in a read-only transaction on a
// connection borrowed for this call only, and always rolls it back. Queries
// failing the read-only gate never reach storage.
func (h *Handler) Execute(ctx context.Context, query *models.SynthesizedQuery) (*models.QueryResult, error) {
	if query == nil {
		return nil, apperrors.NewExecutionFailureError(fmt.Errorf("query cannot be nil"))
	}
	table := query.Schema.Table()

	if err := checkReadOnly(query.Text); err != nil {
		metrics.QueryRejections.Inc()
		event := audit.NewEvent(table, query.Text, audit.OutcomeRejected)
		event.Reason = err.Error()
		h.record(ctx, event)
		return nil, apperrors.NewUnsafeQueryRejectedError(query.Text)
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.run(ctx, query.Text)
	elapsed := time.Since(start)
	metrics.QueryDuration.Observe(elapsed.Seconds())

	if err != nil {
		event := audit.NewEvent(table, query.Text, audit.OutcomeFailed)
		event.Reason = err.Error()
		event.DurationMs = elapsed.Milliseconds()
		h.record(ctx, event)
		return nil, apperrors.NewExecutionFailureError(err)
	}

	event := audit.NewEvent(table, query.Text, audit.OutcomeExecuted)
	event.RowCount = len(result.Records)
	event.DurationMs = elapsed.Milliseconds()
	h.record(ctx, event)

	return result, nil
}

func (h *Handler) run(ctx context.Context, text string) (*models.QueryResult, error) {
	conn, err := h.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	// The gate is a text check; the engine enforces read-only as well.
	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &models.QueryResult{
		Columns: columns,
		Records: make([]map[string]interface{}, 0),
	}

	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if h.config.MaxRows > 0 && len(result.Records) == h.config.MaxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		result.Records = append(result.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (h *Handler) record(ctx context.Context, e audit.Event) {
	if h.recorder == nil {
		return
	}
	e.SessionKey = audit.SessionKeyFrom(ctx)
	h.recorder.Record(ctx, e)
}
