package routeintent

import (
	"context"

	"chat-assistant/internal/common/completion"
	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/common/metrics"
	"chat-assistant/internal/common/validation"
	"chat-assistant/internal/models"
)

const (
	TaskType = "route-intent"
)

type Handler struct {
	config    *Config
	gateway   completion.Gateway
	argSchema *validation.Schema
	logger    logger.Logger
}

func NewHandler(config *Config, gateway completion.Gateway, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		gateway:   gateway,
		argSchema: validation.MustCompile(userMessageParameters),
		logger:    log.With(map[string]interface{}{"taskType": TaskType}),
	}
}

// Route decides how to answer utterance. It never fails: any gateway
// problem routes to the freeform reply.
func (h *Handler) Route(ctx context.Context, utterance string) models.FunctionChoice {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	call, err := h.gateway.ChooseFunction(ctx, utterance, Catalog)
	if err != nil {
		return h.fallback(utterance, err)
	}

	kind, ok := dispatch[call.Name]
	if !ok {
		return h.fallback(utterance, apperrors.NewRoutingFailureError(nil))
	}

	if err := h.argSchema.ValidateDocument(call.Arguments); err != nil {
		h.logger.Warn("function arguments do not match declaration", map[string]interface{}{
			"function": call.Name,
			"error":    err.Error(),
		})
	}

	metrics.RouteDecisions.WithLabelValues(string(kind), "false").Inc()
	h.logger.Info("intent routed", map[string]interface{}{"function": call.Name})

	return models.FunctionChoice{Kind: kind, Utterance: utterance}
}

func (h *Handler) fallback(utterance string, err error) models.FunctionChoice {
	metrics.RouteDecisions.WithLabelValues(string(models.FunctionFreeformReply), "true").Inc()
	h.logger.Warn("routing failed, falling back to freeform reply", map[string]interface{}{
		"errorCode": string(apperrors.CodeOf(err)),
		"error":     err.Error(),
	})
	return models.FunctionChoice{Kind: models.FunctionFreeformReply, Utterance: utterance, Fallback: true}
}
