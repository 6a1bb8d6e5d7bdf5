package stages

import (
	"context"
	"strings"
	"testing"
	"time"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

func slotNow() time.Time {
	return time.Date(2026, 9, 4, 12, 0, 0, 0, time.UTC)
}

func TestSlotManagerVerifiesChosenTime(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{slots: []contractx.SlotOption{
		{MasterID: 3, MasterName: "Анна", Date: "2026-09-05", Times: []string{"12:00", "14:00"}},
	}}
	h := newSlotManager(nil, "%s", tools, slotNow)

	b := statex.Booking{ServiceID: intp(12), SlotTime: strp("2026-09-05 14:00")}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Reply != "" {
		t.Fatalf("Reply = %q, want silent verification", resp.Reply)
	}
	if resp.Updates[statex.KeySlotTimeVerified] != true {
		t.Fatalf("Updates = %v", resp.Updates)
	}
	if len(tools.slotQueries) != 1 || tools.slotQueries[0].Date != "2026-09-05" {
		t.Fatalf("slotQueries = %v", tools.slotQueries)
	}
}

func TestSlotManagerRejectsTakenTime(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{slots: []contractx.SlotOption{
		{MasterID: 3, MasterName: "Анна", Date: "2026-09-05", Times: []string{"12:00", "16:00"}},
	}}
	h := newSlotManager(nil, "%s", tools, slotNow)

	b := statex.Booking{ServiceID: intp(12), SlotTime: strp("2026-09-05 14:00")}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !strings.Contains(resp.Reply, "занято") {
		t.Fatalf("Reply = %q", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "12:00") || !strings.Contains(resp.Reply, "16:00") {
		t.Fatalf("Reply = %q, want alternatives offered", resp.Reply)
	}
	if v, ok := resp.Updates[statex.KeySlotTime]; !ok || v != nil {
		t.Fatalf("Updates = %v, want slot_time reset", resp.Updates)
	}
}

func TestSlotManagerDropsMalformedSlotTime(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{}
	h := newSlotManager(nil, "%s", tools, slotNow)

	b := statex.Booking{ServiceID: intp(12), SlotTime: strp("как-нибудь потом")}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if v, ok := resp.Updates[statex.KeySlotTime]; !ok || v != nil {
		t.Fatalf("Updates = %v, want slot_time reset", resp.Updates)
	}
	if len(tools.slotQueries) != 0 {
		t.Fatal("malformed time must not hit the CRM")
	}
}

func TestSlotManagerSearchOffersOptions(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{slots: []contractx.SlotOption{
		{MasterID: 3, MasterName: "Анна", Date: "2026-09-05", Times: []string{"10:00", "14:00", "18:00"}},
		{MasterID: 4, MasterName: "Ольга", Date: "2026-09-05", Times: []string{"11:30"}},
	}}
	h := newSlotManager(nil, "%s", tools, slotNow)

	b := statex.Booking{ServiceID: intp(12)}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !strings.Contains(resp.Reply, "Анна") || !strings.Contains(resp.Reply, "Ольга") {
		t.Fatalf("Reply = %q", resp.Reply)
	}
	if resp.Updates != nil {
		t.Fatal("search must not update the booking")
	}
}

func TestSlotManagerSearchHonorsTimeOfDayWish(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{slots: []contractx.SlotOption{
		{MasterID: 3, MasterName: "Анна", Date: "2026-09-05", Times: []string{"10:00", "18:00"}},
	}}
	h := newSlotManager(nil, "%s", tools, slotNow)

	req := contractx.StageRequest{
		Message: "можно завтра вечером?",
		Booking: statex.Booking{ServiceID: intp(12)},
	}
	resp, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	q := tools.slotQueries[0]
	if q.Date != "2026-09-05" {
		t.Fatalf("query date = %q, want tomorrow", q.Date)
	}
	if q.StartMin != 17*60 || q.EndMin != 22*60 {
		t.Fatalf("query window = %d-%d, want evening", q.StartMin, q.EndMin)
	}
	if strings.Contains(resp.Reply, "10:00") {
		t.Fatalf("Reply = %q, morning slot leaked into an evening wish", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "18:00") {
		t.Fatalf("Reply = %q", resp.Reply)
	}
}

func TestSlotManagerSearchFilterLeavesNoOptions(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{slots: []contractx.SlotOption{
		{MasterID: 3, MasterName: "Анна", Date: "2026-09-05", Times: []string{"10:00", "11:30"}},
	}}
	h := newSlotManager(nil, "%s", tools, slotNow)

	req := contractx.StageRequest{
		Message: "хочу вечером",
		Booking: statex.Booking{ServiceID: intp(12)},
	}
	resp, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if strings.Contains(resp.Reply, "Вот свободное время") {
		t.Fatalf("Reply = %q, bare listing header with every option filtered out", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "вечером") || !strings.Contains(resp.Reply, "не нашлось") {
		t.Fatalf("Reply = %q", resp.Reply)
	}
}

func TestSlotManagerSearchNothingFound(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{}
	h := newSlotManager(nil, "%s", tools, slotNow)

	b := statex.Booking{ServiceID: intp(12)}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Reply == "" {
		t.Fatal("empty availability still needs a reply")
	}
}

func TestSlotManagerRequiresService(t *testing.T) {
	t.Parallel()

	h := newSlotManager(nil, "%s", &fakeToolset{}, slotNow)
	if _, err := h.Handle(context.Background(), requestWith(statex.NewBooking())); err == nil {
		t.Fatal("Handle() error = nil, want validation error")
	}
}
