package stages

import (
	"fmt"
	"time"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	promptx "github.com/looktown/booking-assistant/agent/prompt"
)

type registryImpl struct {
	serviceManager   contractx.StageHandler
	slotManager      contractx.StageHandler
	contactCollector contractx.StageHandler
	finalizer        contractx.StageHandler
}

func (r *registryImpl) ServiceManager() contractx.StageHandler {
	return r.serviceManager
}

func (r *registryImpl) SlotManager() contractx.StageHandler {
	return r.slotManager
}

func (r *registryImpl) ContactCollector() contractx.StageHandler {
	return r.contactCollector
}

func (r *registryImpl) Finalizer() contractx.StageHandler {
	return r.finalizer
}

// Deps carries everything the stage handlers need. Completers may be nil, in
// which case the handlers fall back to their deterministic phrasing.
type Deps struct {
	ServiceCompleter contractx.Completer
	SlotCompleter    contractx.Completer
	Tools            contractx.Toolset
	Prompts          promptx.PromptSet
	Now              func() time.Time
}

func NewRegistry(d Deps) (contractx.Registry, error) {
	if d.Tools == nil {
		return nil, fmt.Errorf("%w: toolset is nil", contractx.ErrValidation)
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	return &registryImpl{
		serviceManager:   newServiceManager(d.ServiceCompleter, d.Prompts.ServiceManager, d.Tools),
		slotManager:      newSlotManager(d.SlotCompleter, d.Prompts.SlotManager, d.Tools, d.Now),
		contactCollector: newContactCollector(d.Prompts.ContactCollector),
		finalizer:        newFinalizer(d.Tools),
	}, nil
}
