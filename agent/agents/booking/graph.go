package booking

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	bookingnode "github.com/looktown/booking-assistant/agent/nodes/booking"
)

func (e *Engine) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[bookingnode.GraphInput, bookingnode.GraphOutput], error) {
	graph := compose.NewGraph[bookingnode.GraphInput, bookingnode.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in bookingnode.GraphInput) (*bookingnode.GraphState, error) {
			return bookingnode.ValidateRequest(in, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_or_create_session",
		compose.InvokableLambda(func(ctx context.Context, in *bookingnode.GraphState) (*bookingnode.GraphState, error) {
			return bookingnode.LoadOrCreateSession(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_or_create_session: %w", err)
	}

	if err := graph.AddLambdaNode("analyze_message",
		compose.InvokableLambda(func(ctx context.Context, in *bookingnode.GraphState) (*bookingnode.GraphState, error) {
			return bookingnode.AnalyzeMessage(ctx, in, e.extractor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node analyze_message: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_stages",
		compose.InvokableLambda(func(ctx context.Context, in *bookingnode.GraphState) (*bookingnode.GraphState, error) {
			return bookingnode.DispatchStages(ctx, in, e.stages)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_stages: %w", err)
	}

	if err := graph.AddLambdaNode("save_session",
		compose.InvokableLambda(func(ctx context.Context, in *bookingnode.GraphState) (*bookingnode.GraphState, error) {
			return bookingnode.SaveSession(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *bookingnode.GraphState) (bookingnode.GraphOutput, error) {
			return bookingnode.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_session"},
		{"load_or_create_session", "analyze_message"},
		{"analyze_message", "dispatch_stages"},
		{"dispatch_stages", "save_session"},
		{"save_session", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("booking.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile booking graph: %w", err)
	}
	return runner, nil
}
