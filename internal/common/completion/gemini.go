package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/common/metrics"
)

const geminiService = "completion-gemini"

type GeminiConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	RouterModel string
	Temperature float64
	Timeout     time.Duration
}

// GeminiGateway implements Gateway over the Gemini API.
type GeminiGateway struct {
	config *GeminiConfig
	client *genai.Client
	logger logger.Logger
}

func NewGeminiGateway(ctx context.Context, cfg GeminiConfig, log logger.Logger) (*GeminiGateway, error) {
	cfg.Timeout = timeoutOrDefault(cfg.Timeout)
	if cfg.RouterModel == "" {
		cfg.RouterModel = cfg.Model
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	cli, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiGateway{
		config: &cfg,
		client: cli,
		logger: log.With(map[string]interface{}{"gateway": geminiService}),
	}, nil
}

func (g *GeminiGateway) Complete(ctx context.Context, prompt Prompt, opts Options) (string, error) {
	contents := make([]*genai.Content, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	temp := float32(g.config.Temperature)
	if opts.Temperature != nil {
		temp = float32(*opts.Temperature)
	}
	cfg.Temperature = &temp
	if opts.JSONOutput {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.generate(ctx, firstNonEmpty(opts.Model, g.config.Model), contents, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (g *GeminiGateway) ChooseFunction(ctx context.Context, utterance string, catalog Catalog) (*FunctionCall, error) {
	if err := checkChooseInput(utterance, catalog); err != nil {
		return nil, err
	}

	decls := make([]*genai.FunctionDeclaration, len(catalog))
	for i, f := range catalog {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 f.Name,
			Description:          f.Description,
			ParametersJsonSchema: f.Parameters,
		}
	}

	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{FunctionDeclarations: decls}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAny},
		},
	}

	resp, err := g.generate(ctx, g.config.RouterModel,
		[]*genai.Content{genai.NewContentFromText(utterance, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, err
	}

	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return nil, apperrors.NewRoutingFailureError(fmt.Errorf("model answered without selecting a function"))
	}
	return resolveCall(catalog, calls[0].Name, calls[0].Args)
}

func (g *GeminiGateway) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		metrics.ExternalCallDuration.WithLabelValues(geminiService, "error").Observe(time.Since(start).Seconds())
		g.logger.Warn("gemini request failed", map[string]interface{}{"model": model, "error": err.Error()})
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewExternalTimeoutError(geminiService)
		}
		return nil, apperrors.NewExternalServiceError(geminiService, err)
	}
	metrics.ExternalCallDuration.WithLabelValues(geminiService, "ok").Observe(time.Since(start).Seconds())
	return resp, nil
}
