package freeformreply

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-assistant/internal/common/completion"
	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/models"
)

type fakeGateway struct {
	response string
	err      error
	prompt   completion.Prompt
}

func (f *fakeGateway) Complete(_ context.Context, prompt completion.Prompt, _ completion.Options) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *fakeGateway) ChooseFunction(context.Context, string, completion.Catalog) (*completion.FunctionCall, error) {
	return nil, errors.New("not used")
}

func TestHandler_Reply(t *testing.T) {
	gw := &fakeGateway{response: "  Hi! How can I help you today?\n"}
	h := NewHandler(LoadConfig(), gw, logger.NewTestLogger(t))

	got, err := h.Reply(context.Background(), "hello", nil)

	require.NoError(t, err)
	assert.Equal(t, "Hi! How can I help you today?", got)
	assert.Contains(t, gw.prompt.System, "sales agent")
	require.Len(t, gw.prompt.Messages, 1)
	assert.Equal(t, completion.RoleUser, gw.prompt.Messages[0].Role)
}

func TestHandler_Reply_BoundsHistory(t *testing.T) {
	gw := &fakeGateway{response: "Sure."}
	cfg := LoadConfig()
	cfg.HistoryTurns = 2
	h := NewHandler(cfg, gw, logger.NewTestLogger(t))

	history := []models.Turn{
		{Role: models.RoleUser, Text: "one"},
		{Role: models.RoleAssistant, Text: "two"},
		{Role: models.RoleUser, Text: "three"},
		{Role: models.RoleAssistant, Text: "four"},
	}

	_, err := h.Reply(context.Background(), "five", history)
	require.NoError(t, err)

	require.Len(t, gw.prompt.Messages, 3)
	assert.Equal(t, completion.Message{Role: completion.RoleUser, Content: "three"}, gw.prompt.Messages[0])
	assert.Equal(t, completion.Message{Role: completion.RoleAssistant, Content: "four"}, gw.prompt.Messages[1])
	assert.Equal(t, "five", gw.prompt.Messages[2].Content)
}

func TestHandler_Reply_Failures(t *testing.T) {
	tests := []struct {
		name    string
		gateway *fakeGateway
		want    error
	}{
		{"timeout", &fakeGateway{err: apperrors.NewExternalTimeoutError("completion")}, apperrors.ErrExternalTimeout},
		{"empty reply", &fakeGateway{response: "   "}, apperrors.ErrExternalServiceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(), tt.gateway, logger.NewTestLogger(t))
			_, err := h.Reply(context.Background(), "hello", nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
