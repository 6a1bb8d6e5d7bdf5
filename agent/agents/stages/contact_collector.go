package stages

import (
	"context"
	"fmt"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	toolx "github.com/looktown/booking-assistant/agent/tool"
)

// contactCollector asks for the client's name and phone. The wording is a
// fixed template; there is nothing here for a model to decide.
type contactCollector struct {
	prompt string
}

func newContactCollector(prompt string) *contactCollector {
	return &contactCollector{prompt: prompt}
}

func (h *contactCollector) Handle(_ context.Context, req contractx.StageRequest) (contractx.StageResponse, error) {
	if req.Booking.HasContacts() {
		// Nothing to ask; routing moves on within the same turn.
		return contractx.StageResponse{}, nil
	}
	if req.Booking.SlotTime == nil {
		return contractx.StageResponse{}, fmt.Errorf("%w: contact stage without slot time", contractx.ErrValidation)
	}

	return contractx.StageResponse{
		Reply: fmt.Sprintf(h.prompt, toolx.FormatSlotForClient(*req.Booking.SlotTime)),
	}, nil
}
