package stages

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

func TestServiceManagerListsCatalogWhenNoWish(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{categories: []contractx.Category{
		{Title: "Ногтевой сервис", Services: []contractx.Service{
			{ID: 12, Title: "Маникюр", Price: 1500},
			{ID: 13, Title: "Педикюр", Price: 2000},
		}},
	}}
	h := newServiceManager(nil, "%s", tools)

	resp, err := h.Handle(context.Background(), requestWith(statex.NewBooking()))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !strings.Contains(resp.Reply, "Маникюр") || !strings.Contains(resp.Reply, "Педикюр") {
		t.Fatalf("Reply = %q, want full catalog", resp.Reply)
	}
	if resp.Updates != nil {
		t.Fatal("catalog listing must not update the booking")
	}
}

func TestServiceManagerResolvesSingleMatchSilently(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{services: []contractx.Service{{ID: 12, Title: "Маникюр классический", Price: 1500}}}
	h := newServiceManager(nil, "%s", tools)

	b := statex.Booking{ServiceName: strp("маникюр")}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Reply != "" {
		t.Fatalf("Reply = %q, want silent resolution", resp.Reply)
	}
	if resp.Updates[statex.KeyServiceID] != 12 {
		t.Fatalf("Updates = %v", resp.Updates)
	}
	if resp.Updates[statex.KeyServiceName] != "Маникюр классический" {
		t.Fatalf("Updates = %v", resp.Updates)
	}
}

func TestServiceManagerResolutionKeepsSlotAndMaster(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{services: []contractx.Service{
		{ID: 12, Title: "Маникюр классический", Price: 1500},
	}}
	h := newServiceManager(nil, "%s", tools)

	b := statex.Booking{
		ServiceName: strp("маникюр"),
		MasterID:    intp(3),
		MasterName:  strp("Анна"),
		SlotTime:    strp("2026-09-05 14:00"),
	}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Updates[statex.KeySlotTime] != "2026-09-05 14:00" {
		t.Fatalf("Updates = %v, slot time not re-supplied", resp.Updates)
	}
	if resp.Updates[statex.KeyMasterID] != 3 || resp.Updates[statex.KeyMasterName] != "Анна" {
		t.Fatalf("Updates = %v, master not re-supplied", resp.Updates)
	}

	merged := statex.Merge(b, resp.Updates)
	if merged.SlotTime == nil || *merged.SlotTime != "2026-09-05 14:00" {
		t.Fatal("service resolution cleared the slot named in the same message")
	}
	if merged.MasterID == nil || *merged.MasterID != 3 {
		t.Fatal("service resolution cleared the chosen master")
	}
}

func TestServiceManagerAsksOnManyMatches(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{services: []contractx.Service{
		{ID: 12, Title: "Маникюр классический", Price: 1500},
		{ID: 14, Title: "Маникюр аппаратный", Price: 1800},
	}}
	h := newServiceManager(nil, "%s", tools)

	b := statex.Booking{ServiceName: strp("маникюр")}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Updates != nil {
		t.Fatal("ambiguous match must not pick a service")
	}
	if !strings.Contains(resp.Reply, "1.") || !strings.Contains(resp.Reply, "2.") {
		t.Fatalf("Reply = %q, want numbered list", resp.Reply)
	}
}

func TestServiceManagerExactTitleWinsAmongMany(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{services: []contractx.Service{
		{ID: 12, Title: "Маникюр классический", Price: 1500},
		{ID: 15, Title: "Маникюр", Price: 1200},
	}}
	h := newServiceManager(nil, "%s", tools)

	b := statex.Booking{ServiceName: strp("Маникюр")}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Updates[statex.KeyServiceID] != 15 {
		t.Fatalf("Updates = %v, want exact title match id=15", resp.Updates)
	}
}

func TestServiceManagerClarifiesOnNoMatch(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{}
	h := newServiceManager(nil, "%s", tools)

	b := statex.Booking{ServiceName: strp("стрижка дракона")}
	resp, err := h.Handle(context.Background(), requestWith(b))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Reply == "" || resp.Updates != nil {
		t.Fatalf("Reply = %q, Updates = %v", resp.Reply, resp.Updates)
	}
}

func TestServiceManagerPassesMasterToSearch(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{services: []contractx.Service{{ID: 12, Title: "Маникюр", Price: 1500}}}
	h := newServiceManager(nil, "%s", tools)

	b := statex.Booking{ServiceName: strp("маникюр"), MasterName: strp("Анна")}
	if _, err := h.Handle(context.Background(), requestWith(b)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if tools.searchMaster != "Анна" {
		t.Fatalf("searchMaster = %q, want Анна", tools.searchMaster)
	}
}

func TestServiceManagerPhrasingFallsBack(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{categories: []contractx.Category{
		{Title: "Ногтевой сервис", Services: []contractx.Service{{ID: 12, Title: "Маникюр", Price: 1500}}},
	}}
	completer := &echoCompleter{err: errors.New("model down")}
	h := newServiceManager(completer, "%s", tools)

	resp, err := h.Handle(context.Background(), requestWith(statex.NewBooking()))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !strings.Contains(resp.Reply, "Маникюр") {
		t.Fatalf("Reply = %q, want deterministic fallback", resp.Reply)
	}
}

func TestServiceManagerPropagatesToolError(t *testing.T) {
	t.Parallel()

	tools := &fakeToolset{categoriesErr: errors.New("crm down")}
	h := newServiceManager(nil, "%s", tools)

	if _, err := h.Handle(context.Background(), requestWith(statex.NewBooking())); err == nil {
		t.Fatal("Handle() error = nil, want tool error")
	}
}
