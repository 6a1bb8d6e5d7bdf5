package llm

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

// sdkCompleter drives raw chat completions through the OpenAI SDK client.
// The analyzer uses this path: it needs a plain instructions+messages call
// with low temperature, no tools.
type sdkCompleter struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

var _ contractx.Completer = (*sdkCompleter)(nil)

func NewSDKCompleter(client *openaisdk.Client, model string, temperature float32, maxTokens int) contractx.Completer {
	return &sdkCompleter{
		client:      client,
		model:       strings.TrimSpace(model),
		temperature: float64(temperature),
		maxTokens:   int64(maxTokens),
	}
}

func (c *sdkCompleter) Complete(ctx context.Context, instructions string, turns []statex.Turn) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("%w: sdk client is nil", contractx.ErrModelInvoke)
	}

	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	msgs = append(msgs, openaisdk.SystemMessage(instructions))

	for _, t := range turns {
		switch t.Role {
		case statex.RoleAssistant:
			msgs = append(msgs, openaisdk.AssistantMessage(t.Content))
		case statex.RoleTool:
			msgs = append(msgs, openaisdk.ToolMessage(t.Content, t.ToolCallID))
		case statex.RoleSystem:
			msgs = append(msgs, openaisdk.SystemMessage(t.Content))
		default:
			msgs = append(msgs, openaisdk.UserMessage(t.Content))
		}
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openaisdk.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(c.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", contractx.ErrModelInvoke)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
