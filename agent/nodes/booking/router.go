package bookingnode

import (
	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

// StageEnd terminates routing for the turn.
const StageEnd contractx.StageType = "end"

// Route picks the next stage from the booking alone. The order encodes the
// funnel: a finalized booking routes nowhere, then service, then time, then
// contacts, then the final confirmation.
func Route(b statex.Booking) contractx.StageType {
	switch {
	case b.Finalized():
		return StageEnd
	case b.ServiceID == nil:
		return contractx.StageTypeServiceManager
	case b.SlotTime == nil:
		return contractx.StageTypeSlotManager
	case !b.SlotVerified():
		return contractx.StageTypeSlotManager
	case !b.HasContacts():
		return contractx.StageTypeContactCollector
	default:
		return contractx.StageTypeFinalizer
	}
}

// RouteAfterSlot decides what follows the slot stage. A slot that is still
// unverified after the stage ran means the stage already answered the client
// (or could not help), so routing stops instead of re-entering the same
// stage in this turn.
func RouteAfterSlot(b statex.Booking) contractx.StageType {
	if b.SlotTime != nil && !b.SlotVerified() {
		return StageEnd
	}
	return Route(b)
}
