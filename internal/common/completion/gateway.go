package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chat-assistant/internal/common/config"
	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/logger"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Prompt is a system instruction plus the conversation, newest last.
type Prompt struct {
	System   string
	Messages []Message
}

func NewPrompt(system, user string) Prompt {
	return Prompt{System: system, Messages: []Message{{Role: RoleUser, Content: user}}}
}

type Options struct {
	Model       string
	Temperature *float64
	// JSONOutput asks the provider for a bare JSON object when it supports it.
	JSONOutput bool
}

// FunctionSpec is one entry of the action catalog offered to the model.
type FunctionSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

type Catalog []FunctionSpec

func (c Catalog) Lookup(name string) (FunctionSpec, bool) {
	for _, f := range c {
		if f.Name == name {
			return f, true
		}
	}
	return FunctionSpec{}, false
}

// FunctionCall is the action the model selected with its decoded arguments.
type FunctionCall struct {
	Name      string
	Arguments map[string]interface{}
}

// Gateway is the only way the rest of the system talks to a language model.
// Each method makes exactly one outbound call and never retries.
type Gateway interface {
	Complete(ctx context.Context, prompt Prompt, opts Options) (string, error)
	ChooseFunction(ctx context.Context, utterance string, catalog Catalog) (*FunctionCall, error)
}

// New builds the gateway for the configured provider.
func New(ctx context.Context, cfg config.CompletionConfig, log logger.Logger) (Gateway, error) {
	timeout := config.GetDuration(cfg.Timeout)
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIGateway(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			RouterModel: cfg.RouterModel,
			Temperature: cfg.Temperature,
			Timeout:     timeout,
		}, log), nil
	case "gemini":
		return NewGeminiGateway(ctx, GeminiConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			RouterModel: cfg.RouterModel,
			Temperature: cfg.Temperature,
			Timeout:     timeout,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Provider)
	}
}

func checkChooseInput(utterance string, catalog Catalog) error {
	if strings.TrimSpace(utterance) == "" {
		return apperrors.NewRoutingFailureError(fmt.Errorf("empty utterance"))
	}
	if len(catalog) == 0 {
		return apperrors.NewRoutingFailureError(fmt.Errorf("empty catalog"))
	}
	return nil
}

// resolveCall matches the selected name against the catalog, case-sensitively.
func resolveCall(catalog Catalog, name string, args map[string]interface{}) (*FunctionCall, error) {
	if name == "" {
		return nil, apperrors.NewRoutingFailureError(fmt.Errorf("no function selected"))
	}
	if _, ok := catalog.Lookup(name); !ok {
		return nil, apperrors.NewRoutingFailureError(fmt.Errorf("function %q is not in the catalog", name))
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return &FunctionCall{Name: name, Arguments: args}, nil
}

// decodeArguments tolerates malformed argument text; the router does not
// depend on arguments to act.
func decodeArguments(raw string) map[string]interface{} {
	args := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	_ = json.Unmarshal([]byte(raw), &args)
	return args
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
