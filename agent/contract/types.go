package contract

import (
	statex "github.com/looktown/booking-assistant/agent/state"
)

type StageType string

const (
	StageTypeAnalyzer         StageType = "analyzer"
	StageTypeServiceManager   StageType = "service_manager"
	StageTypeSlotManager      StageType = "slot_manager"
	StageTypeContactCollector StageType = "contact_collector"
	StageTypeFinalizer        StageType = "finalizer"
)

// StageRequest is what every stage handler receives for one invocation.
type StageRequest struct {
	Message string
	History []statex.Turn
	Booking statex.Booking
}

// StageResponse is the uniform handler result: a user-facing reply (may be
// empty when the pipeline should continue in the same turn), a partial state
// delta keyed by booking field name, the tools that were invoked, and an
// optional manager alert that terminates routing for the turn.
type StageResponse struct {
	Reply        string
	Updates      map[string]any
	ToolCalls    []string
	ManagerAlert string
}

type Service struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price_min"`
}

type Category struct {
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Services []Service `json:"services"`
}

// SlotQuery scopes a slot-availability lookup. Date is YYYY-MM-DD; StartMin
// and EndMin bound the time of day in minutes from midnight (both zero means
// the whole day).
type SlotQuery struct {
	ServiceID  int
	Date       string
	StartMin   int
	EndMin     int
	MasterID   int
	MasterName string
}

type SlotOption struct {
	MasterID   int      `json:"master_id"`
	MasterName string   `json:"master_name"`
	Date       string   `json:"date"`
	Times      []string `json:"times"` // HH:MM points
}

type CreateBookingRequest struct {
	ServiceID   int
	ClientName  string
	ClientPhone string
	SlotTime    string // YYYY-MM-DD HH:MM
	MasterID    *int
}

type BookingResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
