package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vibe8n/agentloop/internal/agenterr"
	"github.com/vibe8n/agentloop/internal/llm"
	"github.com/vibe8n/agentloop/internal/tools"
)

const (
	ProviderOpenAI = "openai"

	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultTimeout     = 120
)

type OpenAIConfig struct {
	APIKey       string
	APIURL       string
	Model        string
	MaxTokens    int
	Timeout      int
	SystemPrompt string
}

// OpenAI drives any OpenAI-compatible chat completions endpoint through
// llm.Client.
type OpenAI struct {
	client *llm.Client
	config OpenAIConfig
	// initErr is reported by Converse when the client could not be built.
	initErr error
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultOpenAIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	o := &OpenAI{config: cfg}
	if cfg.APIKey == "" {
		o.initErr = missingCredential("OPENAI_API_KEY")
		return o
	}

	client, err := llm.NewClient(&llm.Config{
		APIKey:    cfg.APIKey,
		APIURL:    cfg.APIURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		o.initErr = agenterr.NewWithCause(agenterr.ErrEngineConfig, "invalid openai configuration", err)
		return o
	}
	o.client = client
	return o
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

func (o *OpenAI) Configured() bool { return o.client != nil }

func (o *OpenAI) Converse(ctx context.Context, turns []Turn, capabilities []tools.Descriptor) (*Response, error) {
	if o.client == nil {
		return nil, o.initErr
	}
	if err := validateTurns(turns); err != nil {
		return nil, err
	}

	messages, err := o.transformTurns(turns)
	if err != nil {
		return nil, err
	}

	opts := llm.NewChatCompletionOptions().WithMaxTokens(o.config.MaxTokens)
	if o.config.SystemPrompt != "" {
		opts = opts.WithSystemPrompt(o.config.SystemPrompt)
	}

	chat, err := o.client.ChatCompletionWithTools(ctx, messages, o.transformTools(capabilities), opts)
	if err != nil {
		return nil, o.parseError(err)
	}
	if len(chat.Choices) == 0 {
		return nil, agenterr.New(agenterr.ErrEngineUnavailable, "openai returned no choices")
	}

	return o.transformResponse(chat), nil
}

func (o *OpenAI) transformTurns(turns []Turn) ([]llm.Message, error) {
	groups := groupTurns(turns)
	messages := make([]llm.Message, 0, len(turns))

	for _, group := range groups {
		if group.user != nil {
			messages = append(messages, llm.Message{Role: "user", Content: group.user.Text})
			continue
		}

		if group.assistant != nil {
			raw, ok := group.assistant.Payload.(llm.Message)
			if !ok {
				return nil, agenterr.New(agenterr.ErrValidation,
					fmt.Sprintf("assistant turn from %q cannot be replayed to openai", group.assistant.Provider))
			}
			messages = append(messages, raw)
		}

		for _, result := range group.results {
			content := result.Text
			if result.IsError {
				content = "Error: " + content
			}
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: result.CallID,
			})
		}
	}

	return messages, nil
}

func (o *OpenAI) transformTools(capabilities []tools.Descriptor) []llm.ToolDefinition {
	if len(capabilities) == 0 {
		return nil
	}
	defs := make([]llm.ToolDefinition, 0, len(capabilities))
	for _, c := range capabilities {
		schema := c.InputSchema
		if len(schema) == 0 {
			schema = emptyObjectSchema
		}
		defs = append(defs, llm.ToolDefinition{
			Type: "function",
			Function: llm.Function{
				Name:        c.Name,
				Description: c.Description,
				Parameters:  schema,
			},
		})
	}
	return defs
}

func (o *OpenAI) transformResponse(chat *llm.ChatResponse) *Response {
	choice := chat.Choices[0]
	resp := &Response{StopReason: StopEnd}

	if choice.Message.Content != "" {
		resp.TextSegments = []string{choice.Message.Content}
	}
	for _, call := range choice.Message.ToolCalls {
		args := json.RawMessage(call.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		resp.Invocations = append(resp.Invocations, tools.InvocationRequest{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: args,
		})
	}
	if len(resp.Invocations) > 0 || choice.FinishReason == llm.FinishReasonToolCalls {
		resp.StopReason = StopNeedsInvocation
	}

	raw := choice.Message
	raw.Role = "assistant"

	id := chat.ID
	if id == "" {
		id = uuid.NewString()
	}
	resp.Raw = &RawTurn{
		ID:       id,
		Provider: ProviderOpenAI,
		Payload:  raw,
	}
	return resp
}

func (o *OpenAI) parseError(err error) error {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(ProviderOpenAI, statusErr.StatusCode, err)
	}
	return transportError(ProviderOpenAI, err)
}
