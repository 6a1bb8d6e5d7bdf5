package booking

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	analyzerx "github.com/looktown/booking-assistant/agent/analyzer"
	contractx "github.com/looktown/booking-assistant/agent/contract"
	bookingnode "github.com/looktown/booking-assistant/agent/nodes/booking"
	statex "github.com/looktown/booking-assistant/agent/state"
)

var (
	ErrInvalidMessage = bookingnode.ErrInvalidMessage
	ErrInvalidSession = bookingnode.ErrInvalidSession
)

// TurnResult is everything one client message produces: the single reply for
// the client and, rarely, an alert for a human manager.
type TurnResult struct {
	Reply        string
	ManagerAlert string
}

// Engine drives one booking conversation turn through the compiled graph.
type Engine struct {
	store     statex.Store
	extractor *analyzerx.Extractor
	stages    contractx.Registry

	graphRunner compose.Runnable[bookingnode.GraphInput, bookingnode.GraphOutput]

	now func() time.Time
}

func New(
	store statex.Store,
	extractor *analyzerx.Extractor,
	stages contractx.Registry,
) (*Engine, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if extractor == nil {
		return nil, errors.New("entity extractor is required")
	}
	if stages == nil {
		return nil, errors.New("stage registry is required")
	}

	e := &Engine{
		store:     store,
		extractor: extractor,
		stages:    stages,
		now:       time.Now,
	}

	graphRunner, err := e.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// WithNow fixes the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) HandleMessage(ctx context.Context, sessionID, chatID, text string) (TurnResult, error) {
	out, err := e.graphRunner.Invoke(ctx, bookingnode.GraphInput{
		SessionID: sessionID,
		ChatID:    chatID,
		Text:      text,
	})
	if err != nil {
		return TurnResult{}, err
	}
	return TurnResult{Reply: out.Reply, ManagerAlert: out.ManagerAlert}, nil
}
