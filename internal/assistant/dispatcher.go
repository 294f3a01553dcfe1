package assistant

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"chat-assistant/internal/common/audit"
	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/keylock"
	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/common/metrics"
	"chat-assistant/internal/common/observability"
	"chat-assistant/internal/models"
	"chat-assistant/internal/session"
	buildresponse "chat-assistant/internal/workers/infrastructure/build-response"
)

const StartCommand = "/start"

const (
	pathStart   = "start"
	pathGuided  = "guided"
	pathQuery   = "query"
	pathReply   = "freeform"
	pathIgnored = "ignored"

	pathUnavailable = "unavailable"
)

type Router interface {
	Route(ctx context.Context, utterance string) models.FunctionChoice
}

type Synthesizer interface {
	Synthesize(ctx context.Context, utterance string, schema models.SchemaDescriptor) (*models.SynthesizedQuery, error)
}

type Executor interface {
	Execute(ctx context.Context, query *models.SynthesizedQuery) (*models.QueryResult, error)
}

type Responder interface {
	Reply(ctx context.Context, utterance string, history []models.Turn) (string, error)
}

type Flow interface {
	Start(sess *models.Session, now time.Time) []models.Reply
	Handle(ctx context.Context, sess *models.Session, msg models.InboundMessage) ([]models.Reply, error)
}

type Config struct {
	Schema       models.SchemaDescriptor
	HistoryTurns int
}

// Components are the collaborators a Dispatcher drives.
type Components struct {
	Store       session.Store
	Router      Router
	Synthesizer Synthesizer
	Executor    Executor
	Responder   Responder
	Flow        Flow
	Formatter   *buildresponse.Formatter
	Obs         *observability.Observability
}

// Dispatcher is the single entry point for inbound messages. Messages for the
// same session are handled one at a time in arrival order; different
// sessions proceed concurrently.
type Dispatcher struct {
	config Config
	Components
	locks  *keylock.Locker
	errs   *apperrors.Handler
	logger logger.Logger
	now    func() time.Time
}

func NewDispatcher(config Config, c Components, log logger.Logger) *Dispatcher {
	if c.Obs == nil {
		c.Obs = observability.NewNoop()
	}
	log = log.With(map[string]interface{}{"component": "dispatcher"})
	return &Dispatcher{
		config:     config,
		Components: c,
		locks:      keylock.New(),
		errs:       apperrors.NewHandler(log),
		logger:     log,
		now:        time.Now,
	}
}

// Dispatch handles one message and returns the replies to send back. An
// empty result means the message was ignored. The only error is ctx ending
// while waiting for an earlier message of the same session.
func (d *Dispatcher) Dispatch(ctx context.Context, msg models.InboundMessage) ([]models.Reply, error) {
	start := time.Now()
	key := msg.SessionKey

	ctx = audit.WithSessionKey(ctx, key)
	ctx, span := d.Obs.StartSpan(ctx, "assistant.dispatch",
		attribute.String("session.key", key),
		attribute.String("message.content_type", string(msg.ContentType())),
	)
	defer span.End()

	unlock, err := d.locks.Lock(ctx, key)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer unlock()

	var (
		replies []models.Reply
		path    string
		failure error
	)

	sess, found, err := d.Store.Get(ctx, key)
	if err != nil {
		// The stored session may be mid-flow; answering without it and
		// saving would overwrite it.
		sess = nil
		failure = apperrors.NewExternalServiceError("session-store", err)
		replies = []models.Reply{{Text: d.fail(ctx, key, failure)}}
		path = pathUnavailable
	} else {
		switch {
		case isStart(msg):
			if !found {
				sess = models.NewSession(key, d.now())
			}
			replies = d.Flow.Start(sess, d.now())
			path = pathStart

		case found && sess.State.Guided():
			replies, failure = d.Flow.Handle(ctx, sess, msg)
			if failure != nil {
				text := d.fail(ctx, key, failure)
				if len(replies) == 0 {
					replies = []models.Reply{{Text: text}}
				}
			}
			path = pathGuided

		case msg.ContentType() == models.ContentText && strings.TrimSpace(msg.Text) != "":
			if !found {
				sess = models.NewSession(key, d.now())
				sess.State = models.StateAwaitingFreeformChat
			}
			var text string
			text, path, failure = d.answer(ctx, sess, msg.Text)
			replies = []models.Reply{{Text: text}}

		default:
			path = pathIgnored
		}
	}

	if sess != nil {
		sess.UpdatedAt = d.now()
		// A client that went away must not cost the transition.
		if err := d.Store.Save(context.WithoutCancel(ctx), sess); err != nil {
			d.logger.Error("failed to save session", map[string]interface{}{
				"sessionKey": key,
				"error":      err.Error(),
			})
		}
	}

	status := "ok"
	if failure != nil {
		status = "error"
		span.SetStatus(codes.Error, failure.Error())
	}
	span.SetAttributes(attribute.String("assistant.path", path))
	metrics.MessagesHandled.WithLabelValues(path).Inc()
	d.Obs.RecordMessageProcessed(ctx, path, status)
	d.Obs.RecordMessageDuration(ctx, time.Since(start), path)

	d.logger.Info("message handled", map[string]interface{}{
		"sessionKey": key,
		"path":       path,
		"replies":    len(replies),
		"durationMs": time.Since(start).Milliseconds(),
	})

	return replies, nil
}

// answer runs the intent router path and records the exchange in history.
func (d *Dispatcher) answer(ctx context.Context, sess *models.Session, utterance string) (string, string, error) {
	choice := d.Router.Route(ctx, utterance)

	var (
		text string
		path string
		err  error
	)
	switch choice.Kind {
	case models.FunctionQueryRequest:
		path = pathQuery
		text, err = d.lookup(ctx, utterance)
		if err != nil {
			text = d.fail(ctx, sess.Key, err)
		}
	default:
		path = pathReply
		text, err = d.Responder.Reply(ctx, utterance, sess.History)
		if err != nil {
			d.fail(ctx, sess.Key, err)
			text = apperrors.MessageNotUnderstood
		}
	}

	sess.AppendTurn(models.Turn{Role: models.RoleUser, Text: utterance}, d.config.HistoryTurns)
	sess.AppendTurn(models.Turn{Role: models.RoleAssistant, Text: text}, d.config.HistoryTurns)

	return text, path, err
}

func (d *Dispatcher) lookup(ctx context.Context, utterance string) (string, error) {
	query, err := d.Synthesizer.Synthesize(ctx, utterance, d.config.Schema)
	if err != nil {
		return "", err
	}
	result, err := d.Executor.Execute(ctx, query)
	if err != nil {
		return "", err
	}
	return d.Formatter.RenderQueryResult(result), nil
}

func (d *Dispatcher) fail(ctx context.Context, key string, err error) string {
	metrics.MessageFailures.WithLabelValues(string(apperrors.CodeOf(err))).Inc()
	return d.errs.Handle(ctx, key, err)
}

func isStart(msg models.InboundMessage) bool {
	return msg.ContentType() == models.ContentText && strings.TrimSpace(msg.Text) == StartCommand
}
