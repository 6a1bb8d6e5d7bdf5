package stages

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
	toolx "github.com/looktown/booking-assistant/agent/tool"
)

// finalizer writes the booking into the CRM. It runs only when routing has
// confirmed every field, so a missing one here is a programming error.
type finalizer struct {
	creator contractx.BookingCreator
}

func newFinalizer(creator contractx.BookingCreator) *finalizer {
	return &finalizer{creator: creator}
}

func (h *finalizer) Handle(ctx context.Context, req contractx.StageRequest) (contractx.StageResponse, error) {
	b := req.Booking
	if err := checkComplete(b); err != nil {
		return contractx.StageResponse{}, err
	}

	createReq := contractx.CreateBookingRequest{
		ServiceID:   *b.ServiceID,
		ClientName:  *b.ClientName,
		ClientPhone: *b.ClientPhone,
		SlotTime:    *b.SlotTime,
		MasterID:    b.MasterID,
	}

	result, err := h.creator.Create(ctx, createReq)
	if err != nil {
		return contractx.StageResponse{}, err
	}
	resp := contractx.StageResponse{ToolCalls: []string{"booking.create"}}

	if !result.Success {
		reason := strings.TrimSpace(result.Error)
		if reason == "" {
			reason = strings.TrimSpace(result.Message)
		}
		resp.Reply = fmt.Sprintf(
			"Не получилось оформить запись: %s. Давайте попробуем выбрать другое время?", reason,
		)
		return resp, nil
	}

	serviceName := ""
	if b.ServiceName != nil {
		serviceName = *b.ServiceName
	}
	resp.Updates = map[string]any{statex.KeyIsFinalized: true}
	resp.Reply = fmt.Sprintf(
		"Готово! Вы записаны на «%s» %s. Будем ждать вас в LookTown!",
		serviceName, toolx.FormatSlotForClient(*b.SlotTime),
	)
	return resp, nil
}

func checkComplete(b statex.Booking) error {
	switch {
	case b.ServiceID == nil:
		return fmt.Errorf("%w: finalize without service", contractx.ErrValidation)
	case b.SlotTime == nil:
		return fmt.Errorf("%w: finalize without slot time", contractx.ErrValidation)
	case !b.SlotVerified():
		return fmt.Errorf("%w: finalize with unverified slot", contractx.ErrValidation)
	case !b.HasContacts():
		return fmt.Errorf("%w: finalize without contacts", contractx.ErrValidation)
	}
	return nil
}
