package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

// modelCompleter adapts an eino chat model to the Completer seam used by the
// stage handlers.
type modelCompleter struct {
	model einomodel.BaseChatModel
}

var _ contractx.Completer = (*modelCompleter)(nil)

func NewCompleter(m einomodel.BaseChatModel) contractx.Completer {
	return &modelCompleter{model: m}
}

func (c *modelCompleter) Complete(ctx context.Context, instructions string, turns []statex.Turn) (string, error) {
	msgs := make([]*schema.Message, 0, len(turns)+1)
	msgs = append(msgs, schema.SystemMessage(instructions))

	for _, t := range turns {
		switch t.Role {
		case statex.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		case statex.RoleTool:
			msgs = append(msgs, schema.ToolMessage(t.Content, t.ToolCallID))
		case statex.RoleSystem:
			msgs = append(msgs, schema.SystemMessage(t.Content))
		default:
			msgs = append(msgs, schema.UserMessage(t.Content))
		}
	}

	out, err := c.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: empty model response", contractx.ErrModelInvoke)
	}
	return strings.TrimSpace(out.Content), nil
}
