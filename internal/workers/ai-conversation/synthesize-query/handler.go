package synthesizequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"chat-assistant/internal/common/completion"
	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/common/validation"
	"chat-assistant/internal/models"
)

const (
	TaskType = "synthesize-query"

	cacheKeyPrefix = "assistant:synthesis:"
)

type Handler struct {
	config      *Config
	gateway     completion.Gateway
	redisClient *redis.Client
	envelope    *validation.Schema
	logger      logger.Logger
}

// NewHandler builds the synthesizer. redisClient may be nil, which disables
// caching.
func NewHandler(config *Config, gateway completion.Gateway, redisClient *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config:      config,
		gateway:     gateway,
		redisClient: redisClient,
		envelope:    validation.MustCompile(envelopeSchema),
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Synthesize translates utterance into one read-only statement against
// schema. It never executes anything.
func (h *Handler) Synthesize(ctx context.Context, utterance string, schema models.SchemaDescriptor) (*models.SynthesizedQuery, error) {
	if strings.TrimSpace(utterance) == "" {
		return nil, apperrors.NewMalformedSynthesisError(errors.New("empty utterance"))
	}

	cacheKey := h.buildCacheKey(utterance, schema)
	if text, ok := h.cached(ctx, cacheKey); ok {
		h.logger.Info("synthesized query served from cache", map[string]interface{}{
			"table": schema.Table(),
		})
		return &models.SynthesizedQuery{Text: text, Schema: schema}, nil
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	temperature := h.config.Temperature
	raw, err := h.gateway.Complete(ctx, completion.NewPrompt(systemPrompt, buildPrompt(utterance, schema)), completion.Options{
		Model:       h.config.Model,
		Temperature: &temperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, err
	}

	text, err := h.parse(raw, schema)
	if err != nil {
		h.logger.Warn("synthesis response rejected", map[string]interface{}{
			"error":    err.Error(),
			"response": raw,
		})
		return nil, apperrors.NewMalformedSynthesisError(err)
	}

	if h.redisClient != nil && h.config.CacheTTL > 0 {
		if err := h.redisClient.Set(ctx, cacheKey, text, h.config.CacheTTL).Err(); err != nil {
			h.logger.Warn("failed to cache synthesized query", map[string]interface{}{"error": err.Error()})
		}
	}

	h.logger.Info("query synthesized", map[string]interface{}{
		"table": schema.Table(),
		"query": text,
	})

	return &models.SynthesizedQuery{Text: text, Schema: schema}, nil
}

func (h *Handler) parse(raw string, schema models.SchemaDescriptor) (string, error) {
	if err := h.envelope.ValidateJSON([]byte(raw)); err != nil {
		return "", err
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	if strings.TrimSpace(env.Query) == "" {
		return "", errors.New("query is blank")
	}
	if err := checkIdentifiers(env.Query, schema); err != nil {
		return "", err
	}

	return env.Query, nil
}

func (h *Handler) cached(ctx context.Context, key string) (string, bool) {
	if h.redisClient == nil || h.config.CacheTTL <= 0 {
		return "", false
	}
	val, err := h.redisClient.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("synthesis cache lookup failed", map[string]interface{}{"error": err.Error()})
		}
		return "", false
	}
	return val, true
}

func (h *Handler) buildCacheKey(utterance string, schema models.SchemaDescriptor) string {
	return cacheKeyPrefix + schema.Table() + ":" + normalizeUtterance(utterance)
}
