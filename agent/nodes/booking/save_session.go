package bookingnode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

// SaveSession records the turn's transcript and persists the session. It runs
// only after a reply exists, so an aborted turn never leaves a half-updated
// session behind.
func SaveSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.AppendTurn(statex.Turn{Role: statex.RoleUser, Content: in.Text})
	for _, call := range in.ToolCalls {
		in.Session.AppendTurn(statex.Turn{Role: statex.RoleTool, Content: call, ToolCallID: call})
	}
	in.Session.AppendTurn(statex.Turn{Role: statex.RoleAssistant, Content: in.Reply})

	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	return in, nil
}

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced empty reply", contractx.ErrValidation)
	}
	return GraphOutput{Reply: reply, ManagerAlert: in.ManagerAlert}, nil
}
