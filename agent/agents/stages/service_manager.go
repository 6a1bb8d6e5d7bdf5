package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

// serviceManager resolves the client's wish into a concrete catalog service.
// Matching is deterministic; the completer only rewords the prepared reply.
type serviceManager struct {
	completer contractx.Completer
	prompt    string
	catalog   contractx.Catalog
}

func newServiceManager(completer contractx.Completer, prompt string, catalog contractx.Catalog) *serviceManager {
	return &serviceManager{completer: completer, prompt: prompt, catalog: catalog}
}

func (h *serviceManager) Handle(ctx context.Context, req contractx.StageRequest) (contractx.StageResponse, error) {
	b := req.Booking

	if b.ServiceName == nil || strings.TrimSpace(*b.ServiceName) == "" {
		return h.listCatalog(ctx, req)
	}

	masterName := ""
	if b.MasterName != nil {
		masterName = *b.MasterName
	}

	services, err := h.catalog.Search(ctx, *b.ServiceName, masterName)
	if err != nil {
		return contractx.StageResponse{}, err
	}
	resp := contractx.StageResponse{ToolCalls: []string{"catalog.search"}}

	switch {
	case len(services) == 0:
		prepared := fmt.Sprintf(
			"К сожалению, я не нашла услугу «%s». Уточните, пожалуйста, название, или напишите, что вас интересует.",
			*b.ServiceName,
		)
		resp.Reply = h.phrase(ctx, req, prepared)
		return resp, nil

	case len(services) == 1:
		// Resolved without asking; the pipeline continues to the next stage.
		resp.Updates = resolutionUpdates(b, services[0])
		return resp, nil

	default:
		if svc, ok := exactMatch(services, *b.ServiceName); ok {
			resp.Updates = resolutionUpdates(b, svc)
			return resp, nil
		}
		var sb strings.Builder
		sb.WriteString("Нашла несколько подходящих услуг:\n")
		for i, svc := range services {
			fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, svc.Title, formatPrice(svc.Price))
		}
		sb.WriteString("Какая из них вам нужна?")
		resp.Reply = h.phrase(ctx, req, sb.String())
		return resp, nil
	}
}

func (h *serviceManager) listCatalog(ctx context.Context, req contractx.StageRequest) (contractx.StageResponse, error) {
	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		return contractx.StageResponse{}, err
	}

	var sb strings.Builder
	sb.WriteString("Вот услуги, на которые можно записаться:\n")
	n := 0
	for _, cat := range categories {
		fmt.Fprintf(&sb, "\n%s:\n", cat.Title)
		for _, svc := range cat.Services {
			n++
			fmt.Fprintf(&sb, "%d. %s — %s\n", n, svc.Title, formatPrice(svc.Price))
		}
	}
	sb.WriteString("\nНапишите, что вас интересует.")

	return contractx.StageResponse{
		Reply:     h.phrase(ctx, req, sb.String()),
		ToolCalls: []string{"catalog.categories"},
	}, nil
}

// phrase asks the completer to reword the prepared text. The prepared text
// itself is the fallback, so a model outage never blocks the funnel.
func (h *serviceManager) phrase(ctx context.Context, req contractx.StageRequest, prepared string) string {
	if h.completer == nil {
		return prepared
	}
	instructions := fmt.Sprintf(h.prompt, prepared)
	turns := append(req.History, statex.Turn{Role: statex.RoleUser, Content: req.Message})

	out, err := h.completer.Complete(ctx, instructions, turns)
	if err != nil || strings.TrimSpace(out) == "" {
		log.Warn().Err(err).Msg("service manager phrasing fell back to prepared text")
		return prepared
	}
	return strings.TrimSpace(out)
}

// resolutionUpdates re-supplies the master and slot fields already in hand so
// the service cascade in Merge does not clear values the client gave in the
// same message.
func resolutionUpdates(b statex.Booking, svc contractx.Service) map[string]any {
	u := map[string]any{
		statex.KeyServiceID:   svc.ID,
		statex.KeyServiceName: svc.Title,
	}
	if b.MasterID != nil {
		u[statex.KeyMasterID] = *b.MasterID
	}
	if b.MasterName != nil {
		u[statex.KeyMasterName] = *b.MasterName
	}
	if b.SlotTime != nil {
		u[statex.KeySlotTime] = *b.SlotTime
	}
	return u
}

func exactMatch(services []contractx.Service, name string) (contractx.Service, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, svc := range services {
		if strings.ToLower(strings.TrimSpace(svc.Title)) == want {
			return svc, true
		}
	}
	return contractx.Service{}, false
}

func formatPrice(price float64) string {
	if price == float64(int(price)) {
		return fmt.Sprintf("%d руб.", int(price))
	}
	return fmt.Sprintf("%.2f руб.", price)
}
