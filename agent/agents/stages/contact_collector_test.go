package stages

import (
	"context"
	"strings"
	"testing"

	statex "github.com/looktown/booking-assistant/agent/state"
)

func TestContactCollectorAsksWithFormattedTime(t *testing.T) {
	t.Parallel()

	h := newContactCollector("Вы выбрали %s. Напишите имя и телефон.")

	b := statex.Booking{
		ServiceID:        intp(12),
		SlotTime:         strp("2026-09-05 14:30"),
		SlotTimeVerified: boolp(true),
	}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !strings.Contains(resp.Reply, "05.09.2026 в 14:30") {
		t.Fatalf("Reply = %q", resp.Reply)
	}
}

func TestContactCollectorNoopWhenContactsPresent(t *testing.T) {
	t.Parallel()

	h := newContactCollector("%s")

	b := statex.Booking{
		ServiceID:        intp(12),
		SlotTime:         strp("2026-09-05 14:30"),
		SlotTimeVerified: boolp(true),
		ClientName:       strp("Ирина"),
		ClientPhone:      strp("+79001234567"),
	}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Reply != "" || resp.Updates != nil {
		t.Fatalf("resp = %+v, want silent no-op", resp)
	}
}

func TestContactCollectorRequiresSlot(t *testing.T) {
	t.Parallel()

	h := newContactCollector("%s")
	if _, err := h.Handle(context.Background(), requestWith(statex.NewBooking())); err == nil {
		t.Fatal("Handle() error = nil, want validation error")
	}
}
