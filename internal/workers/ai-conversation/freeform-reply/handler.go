package freeformreply

import (
	"context"
	"errors"
	"strings"

	"chat-assistant/internal/common/completion"
	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/models"
)

const (
	TaskType = "freeform-reply"
)

const persona = `You are a sales agent for a specific store and your job is to help the user make a purchase.
Keep the answer as concise as possible. Do not make up answers: if you don't have the information, say so and apologize.
Always be polite and helpful.`

type Handler struct {
	config  *Config
	gateway completion.Gateway
	logger  logger.Logger
}

func NewHandler(config *Config, gateway completion.Gateway, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		gateway: gateway,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Reply answers utterance conversationally, replaying the most recent turns
// of history first.
func (h *Handler) Reply(ctx context.Context, utterance string, history []models.Turn) (string, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	prompt := h.buildPrompt(utterance, history)
	temperature := h.config.Temperature

	text, err := h.gateway.Complete(ctx, prompt, completion.Options{
		Model:       h.config.Model,
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewExternalServiceError("completion", errors.New("empty reply"))
	}

	h.logger.Info("freeform reply generated", map[string]interface{}{
		"historyTurns": len(prompt.Messages) - 1,
	})

	return text, nil
}

func (h *Handler) buildPrompt(utterance string, history []models.Turn) completion.Prompt {
	if limit := h.config.HistoryTurns; limit >= 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	messages := make([]completion.Message, 0, len(history)+1)
	for _, turn := range history {
		role := completion.RoleUser
		if turn.Role == models.RoleAssistant {
			role = completion.RoleAssistant
		}
		messages = append(messages, completion.Message{Role: role, Content: turn.Text})
	}
	messages = append(messages, completion.Message{Role: completion.RoleUser, Content: utterance})

	return completion.Prompt{System: persona, Messages: messages}
}
