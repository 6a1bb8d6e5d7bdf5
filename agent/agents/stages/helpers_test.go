package stages

import (
	"context"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }

type fakeToolset struct {
	categories []contractx.Category
	services   []contractx.Service
	slots      []contractx.SlotOption
	result     contractx.BookingResult

	categoriesErr error
	searchErr     error
	slotsErr      error
	createErr     error

	searchQuery  string
	searchMaster string
	slotQueries  []contractx.SlotQuery
	created      []contractx.CreateBookingRequest
}

func (f *fakeToolset) Categories(_ context.Context) ([]contractx.Category, error) {
	if f.categoriesErr != nil {
		return nil, f.categoriesErr
	}
	return f.categories, nil
}

func (f *fakeToolset) Search(_ context.Context, query, masterName string) ([]contractx.Service, error) {
	f.searchQuery = query
	f.searchMaster = masterName
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.services, nil
}

func (f *fakeToolset) FindSlots(_ context.Context, q contractx.SlotQuery) ([]contractx.SlotOption, error) {
	f.slotQueries = append(f.slotQueries, q)
	if f.slotsErr != nil {
		return nil, f.slotsErr
	}
	return f.slots, nil
}

func (f *fakeToolset) Create(_ context.Context, req contractx.CreateBookingRequest) (contractx.BookingResult, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return contractx.BookingResult{}, f.createErr
	}
	return f.result, nil
}

// echoCompleter returns its fixed response, or fails the phrasing so the
// handler falls back to the prepared text.
type echoCompleter struct {
	response     string
	err          error
	instructions string
}

func (c *echoCompleter) Complete(_ context.Context, instructions string, _ []statex.Turn) (string, error) {
	c.instructions = instructions
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func requestWith(b statex.Booking) contractx.StageRequest {
	return contractx.StageRequest{Message: "хочу записаться", Booking: b}
}
