// Package analyzer turns the latest user message plus recent history into a
// partial update to the booking state via a constrained language-model call.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	promptx "github.com/looktown/booking-assistant/agent/prompt"
	statex "github.com/looktown/booking-assistant/agent/state"
)

// historyWindow caps how many recent non-system turns the extractor sees.
// Tool turns stay in so the model can resolve IDs from prior tool output.
const historyWindow = 10

type Extractor struct {
	completer contractx.Completer
	template  string
	now       func() time.Time
}

func NewExtractor(completer contractx.Completer) *Extractor {
	return &Extractor{
		completer: completer,
		template:  promptx.LoadPromptSet().Analyzer,
		now:       time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (e *Extractor) WithNow(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract returns the partial booking update inferred from the message.
// It never fails: any model or parse problem yields an empty map, which the
// caller treats as "no update this turn".
func (e *Extractor) Extract(ctx context.Context, message string, history []statex.Turn, current statex.Booking) map[string]any {
	instructions := fmt.Sprintf(
		e.template,
		e.now().Format("2006-01-02"),
		describeBooking(current),
		message,
	)

	turns := trimHistory(history, historyWindow)
	if n := len(turns); n == 0 || turns[n-1].Role != statex.RoleUser || turns[n-1].Content != message {
		turns = append(turns, statex.Turn{Role: statex.RoleUser, Content: message})
	}

	raw, err := e.completer.Complete(ctx, instructions, turns)
	if err != nil {
		log.Error().Err(err).Msg("analyzer completion failed, skipping update")
		return map[string]any{}
	}
	if strings.TrimSpace(raw) == "" {
		log.Warn().Msg("analyzer returned empty response")
		return map[string]any{}
	}

	extracted := ParseLooseJSON(raw)
	if extracted == nil {
		log.Warn().Str("response", truncate(raw, 200)).Msg("analyzer response is not JSON, skipping update")
		return map[string]any{}
	}

	log.Debug().Interface("extracted", extracted).Msg("analyzer extracted booking fields")
	return extracted
}

func trimHistory(history []statex.Turn, n int) []statex.Turn {
	filtered := make([]statex.Turn, 0, len(history))
	for _, t := range history {
		if t.Role == statex.RoleSystem {
			continue
		}
		if strings.TrimSpace(t.Content) == "" && t.Role != statex.RoleTool {
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}

func describeBooking(b statex.Booking) string {
	var parts []string
	switch {
	case b.ServiceID != nil:
		parts = append(parts, fmt.Sprintf("Услуга ID: %d", *b.ServiceID))
	case b.ServiceName != nil:
		parts = append(parts, "Услуга: "+*b.ServiceName)
	}
	switch {
	case b.MasterID != nil:
		parts = append(parts, fmt.Sprintf("Мастер ID: %d", *b.MasterID))
	case b.MasterName != nil:
		parts = append(parts, "Мастер: "+*b.MasterName)
	}
	if b.SlotTime != nil {
		parts = append(parts, "Время: "+*b.SlotTime)
	}
	if b.ClientName != nil {
		parts = append(parts, "Имя клиента: "+*b.ClientName)
	}
	if b.ClientPhone != nil {
		parts = append(parts, "Телефон: "+*b.ClientPhone)
	}
	if len(parts) == 0 {
		return "Нет сохраненных данных о бронировании."
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
