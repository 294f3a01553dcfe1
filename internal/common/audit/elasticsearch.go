package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"chat-assistant/internal/common/logger"
)

// ElasticsearchRecorder indexes each event as a document keyed by its ID.
type ElasticsearchRecorder struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	logger  logger.Logger
}

func NewElasticsearchRecorder(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchRecorder {
	return &ElasticsearchRecorder{
		client:  client,
		index:   index,
		timeout: 5 * time.Second,
		logger:  log.With(map[string]interface{}{"component": "query-audit-es", "index": index}),
	}
}

func (r *ElasticsearchRecorder) Record(ctx context.Context, e Event) {
	if e.SessionKey == "" {
		e.SessionKey = SessionKeyFrom(ctx)
	}

	body, err := json.Marshal(e)
	if err != nil {
		r.logger.Error("failed to encode audit event", map[string]interface{}{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: e.ID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		r.logger.Error("failed to index audit event", map[string]interface{}{"auditId": e.ID, "error": err.Error()})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		r.logger.Error("audit index returned error", map[string]interface{}{"auditId": e.ID, "status": res.Status()})
	}
}
