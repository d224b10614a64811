package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/vibe8n/agentloop/internal/agenterr"
	"github.com/vibe8n/agentloop/internal/tools"
)

const (
	ProviderAnthropic = "anthropic"

	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultMaxTokens      = 4096
)

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

type AnthropicConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	MaxTokens    int
	SystemPrompt string
}

// Anthropic talks to the Messages API.
type Anthropic struct {
	client *anthropic.Client
	config AnthropicConfig
}

// NewAnthropic builds the adapter. A missing API key is not an error here:
// the adapter reports Configured()=false and fails each Converse call with
// ErrEngineConfig.
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	a := &Anthropic{config: cfg}
	if cfg.APIKey == "" {
		return a
	}

	clientOptions := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(cfg.BaseURL))
	}
	a.client = anthropic.NewClient(clientOptions...)
	return a
}

func (a *Anthropic) Name() string { return ProviderAnthropic }

func (a *Anthropic) Configured() bool { return a.client != nil }

func (a *Anthropic) Converse(ctx context.Context, turns []Turn, capabilities []tools.Descriptor) (*Response, error) {
	if a.client == nil {
		return nil, missingCredential("ANTHROPIC_API_KEY")
	}
	if err := validateTurns(turns); err != nil {
		return nil, err
	}

	messages, err := a.transformTurns(turns)
	if err != nil {
		return nil, err
	}

	request := anthropic.MessageNewParams{
		Model:     anthropic.F(a.config.Model),
		MaxTokens: anthropic.F(int64(a.config.MaxTokens)),
		Messages:  anthropic.F(messages),
	}
	if a.config.SystemPrompt != "" {
		request.System = anthropic.F([]anthropic.TextBlockParam{
			{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(a.config.SystemPrompt),
			},
		})
	}
	if len(capabilities) > 0 {
		request.Tools = anthropic.F(a.transformTools(capabilities))
	}

	message, err := a.client.Messages.New(ctx, request)
	if err != nil {
		return nil, a.parseError(err)
	}

	return a.transformResponse(message), nil
}

func (a *Anthropic) transformTurns(turns []Turn) ([]anthropic.MessageParam, error) {
	groups := groupTurns(turns)
	messages := make([]anthropic.MessageParam, 0, len(groups)*2)

	for _, group := range groups {
		if group.user != nil {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(group.user.Text)))
			continue
		}

		if group.assistant != nil {
			raw, ok := group.assistant.Payload.(anthropic.MessageParam)
			if !ok {
				return nil, agenterr.New(agenterr.ErrValidation,
					fmt.Sprintf("assistant turn from %q cannot be replayed to anthropic", group.assistant.Provider))
			}
			messages = append(messages, raw)
		}

		if len(group.results) > 0 {
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(group.results))
			for _, result := range group.results {
				blocks = append(blocks, anthropic.NewToolResultBlock(result.CallID, result.Text, result.IsError))
			}
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	return messages, nil
}

func (a *Anthropic) transformTools(capabilities []tools.Descriptor) []anthropic.ToolUnionUnionParam {
	anthropicTools := make([]anthropic.ToolUnionUnionParam, 0, len(capabilities))
	for _, c := range capabilities {
		schema := c.InputSchema
		if len(schema) == 0 {
			schema = emptyObjectSchema
		}
		anthropicTools = append(anthropicTools, anthropic.ToolParam{
			Name:        anthropic.F(c.Name),
			Description: anthropic.F(c.Description),
			InputSchema: anthropic.F(any(schema)),
		})
	}
	return anthropicTools
}

func (a *Anthropic) transformResponse(message *anthropic.Message) *Response {
	resp := &Response{StopReason: StopEnd}

	replay := make([]anthropic.ContentBlockParamUnion, 0, len(message.Content))
	for _, block := range message.Content {
		switch block := block.AsUnion().(type) {
		case anthropic.TextBlock:
			resp.TextSegments = append(resp.TextSegments, block.Text)
			replay = append(replay, anthropic.NewTextBlock(block.Text))
		case anthropic.ToolUseBlock:
			args := json.RawMessage(block.Input)
			if len(args) == 0 {
				args = json.RawMessage(`{}`)
			}
			resp.Invocations = append(resp.Invocations, tools.InvocationRequest{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
			replay = append(replay, anthropic.NewToolUseBlockParam(block.ID, block.Name, args))
		}
	}

	if len(resp.Invocations) > 0 || message.StopReason == anthropic.MessageStopReasonToolUse {
		resp.StopReason = StopNeedsInvocation
	}

	id := message.ID
	if id == "" {
		id = uuid.NewString()
	}
	resp.Raw = &RawTurn{
		ID:       id,
		Provider: ProviderAnthropic,
		Payload:  anthropic.NewAssistantMessage(replay...),
	}
	return resp
}

func (a *Anthropic) parseError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(ProviderAnthropic, apiErr.StatusCode, err)
	}
	return transportError(ProviderAnthropic, err)
}
