package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/analyzer.txt
	analyzerRaw string

	//go:embed template/service_manager.txt
	serviceManagerRaw string

	//go:embed template/slot_manager.txt
	slotManagerRaw string

	//go:embed template/contact_collector.txt
	contactCollectorRaw string
)

// PromptSet holds the loaded prompt templates. The templates are Sprintf
// patterns; each handler documents its placeholder order.
type PromptSet struct {
	Analyzer         string
	ServiceManager   string
	SlotManager      string
	ContactCollector string
}

// LoadPromptSet returns trimmed prompt templates. Safe to call concurrently.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Analyzer:         strings.TrimSpace(analyzerRaw),
		ServiceManager:   strings.TrimSpace(serviceManagerRaw),
		SlotManager:      strings.TrimSpace(slotManagerRaw),
		ContactCollector: strings.TrimSpace(contactCollectorRaw),
	}
}
