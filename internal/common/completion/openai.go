package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "chat-assistant/internal/common/errors"
	apphttp "chat-assistant/internal/common/http"
	"chat-assistant/internal/common/logger"
)

const openAIService = "completion-openai"

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	RouterModel string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIGateway speaks the chat completions wire format.
type OpenAIGateway struct {
	config *OpenAIConfig
	client *apphttp.Client
	logger logger.Logger
}

func NewOpenAIGateway(cfg OpenAIConfig, log logger.Logger) *OpenAIGateway {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RouterModel == "" {
		cfg.RouterModel = cfg.Model
	}
	return &OpenAIGateway{
		config: &cfg,
		client: apphttp.NewClient(openAIService, timeoutOrDefault(cfg.Timeout)),
		logger: log.With(map[string]interface{}{"gateway": openAIService}),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	Tools          []chatTool        `json:"tools,omitempty"`
	ToolChoice     string            `json:"tool_choice,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type calledFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function calledFunction `json:"function"`
			} `json:"tool_calls"`
			FunctionCall *calledFunction `json:"function_call"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGateway) Complete(ctx context.Context, prompt Prompt, opts Options) (string, error) {
	req := chatRequest{
		Model:       firstNonEmpty(opts.Model, g.config.Model),
		Messages:    toChatMessages(prompt),
		Temperature: opts.Temperature,
	}
	if req.Temperature == nil && g.config.Temperature > 0 {
		t := g.config.Temperature
		req.Temperature = &t
	}
	if opts.JSONOutput {
		req.ResponseFormat = map[string]string{"type": "json_object"}
	}

	resp, err := g.send(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewExternalServiceError(openAIService, fmt.Errorf("response has no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGateway) ChooseFunction(ctx context.Context, utterance string, catalog Catalog) (*FunctionCall, error) {
	if err := checkChooseInput(utterance, catalog); err != nil {
		return nil, err
	}

	tools := make([]chatTool, len(catalog))
	for i, f := range catalog {
		tools[i] = chatTool{Type: "function", Function: chatFunction{
			Name:        f.Name,
			Description: f.Description,
			Parameters:  f.Parameters,
		}}
	}

	resp, err := g.send(ctx, chatRequest{
		Model:      g.config.RouterModel,
		Messages:   []chatMessage{{Role: "user", Content: utterance}},
		Tools:      tools,
		ToolChoice: "required",
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewRoutingFailureError(fmt.Errorf("response has no choices"))
	}

	msg := resp.Choices[0].Message
	var selected *calledFunction
	switch {
	case len(msg.ToolCalls) > 0:
		selected = &msg.ToolCalls[0].Function
	case msg.FunctionCall != nil:
		selected = msg.FunctionCall
	default:
		return nil, apperrors.NewRoutingFailureError(fmt.Errorf("model answered without selecting a function"))
	}

	return resolveCall(catalog, selected.Name, decodeArguments(selected.Arguments))
}

func (g *OpenAIGateway) send(ctx context.Context, body chatRequest) (*chatResponse, error) {
	var out chatResponse
	err := g.client.DoJSON(ctx, http.MethodPost, g.config.BaseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + g.config.APIKey}, body, &out)
	if err != nil {
		g.logger.Warn("completion request failed", map[string]interface{}{
			"model":     body.Model,
			"errorCode": string(apperrors.CodeOf(err)),
		})
		return nil, err
	}
	return &out, nil
}

func toChatMessages(p Prompt) []chatMessage {
	out := make([]chatMessage, 0, len(p.Messages)+1)
	if p.System != "" {
		out = append(out, chatMessage{Role: "system", Content: p.System})
	}
	for _, m := range p.Messages {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
