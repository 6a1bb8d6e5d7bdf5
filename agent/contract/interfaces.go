package contract

import (
	"context"

	statex "github.com/looktown/booking-assistant/agent/state"
)

// Completer is the narrow language-completion seam: best-effort natural
// language in, best-effort text out. Stage handlers and the analyzer depend
// on this interface only, never on a concrete model client.
type Completer interface {
	Complete(ctx context.Context, instructions string, turns []statex.Turn) (string, error)
}

// StageHandler owns one sub-task of the booking dialogue.
type StageHandler interface {
	Handle(ctx context.Context, req StageRequest) (StageResponse, error)
}

// Registry exposes the stage handlers constructed once at startup.
type Registry interface {
	ServiceManager() StageHandler
	SlotManager() StageHandler
	ContactCollector() StageHandler
	Finalizer() StageHandler
}

// Catalog is the CRM service-catalog tool.
type Catalog interface {
	Categories(ctx context.Context) ([]Category, error)
	Search(ctx context.Context, query string, masterName string) ([]Service, error)
}

// SlotFinder is the CRM slot-availability tool.
type SlotFinder interface {
	FindSlots(ctx context.Context, q SlotQuery) ([]SlotOption, error)
}

// BookingCreator is the CRM booking-creation tool.
type BookingCreator interface {
	Create(ctx context.Context, req CreateBookingRequest) (BookingResult, error)
}

// Toolset bundles the CRM tools handed to the stage registry.
type Toolset interface {
	Catalog
	SlotFinder
	BookingCreator
}
