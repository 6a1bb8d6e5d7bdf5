package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
	toolx "github.com/looktown/booking-assistant/agent/tool"
)

const maxTimesPerMaster = 5

// slotManager runs in two modes. With a chosen but unverified time it checks
// that exact point against the schedule; otherwise it searches availability
// scoped by whatever date and time-of-day wishes the message carries.
type slotManager struct {
	completer contractx.Completer
	prompt    string
	slots     contractx.SlotFinder
	now       func() time.Time
}

func newSlotManager(completer contractx.Completer, prompt string, slots contractx.SlotFinder, now func() time.Time) *slotManager {
	return &slotManager{completer: completer, prompt: prompt, slots: slots, now: now}
}

func (h *slotManager) Handle(ctx context.Context, req contractx.StageRequest) (contractx.StageResponse, error) {
	if req.Booking.ServiceID == nil {
		return contractx.StageResponse{}, fmt.Errorf("%w: slot stage without service", contractx.ErrValidation)
	}

	if req.Booking.SlotTime != nil && !req.Booking.SlotVerified() {
		return h.verify(ctx, req)
	}
	return h.search(ctx, req)
}

func (h *slotManager) verify(ctx context.Context, req contractx.StageRequest) (contractx.StageResponse, error) {
	b := req.Booking

	date, clock, err := toolx.SplitSlotTime(*b.SlotTime)
	if err != nil {
		// The analyzer let a malformed time through; drop it and re-ask.
		log.Warn().Err(err).Str("slot_time", *b.SlotTime).Msg("dropping malformed slot time")
		return contractx.StageResponse{
			Reply:   "Не совсем поняла, какое время вам удобно. Напишите, пожалуйста, дату и время, например «5 сентября в 14:00».",
			Updates: map[string]any{statex.KeySlotTime: nil},
		}, nil
	}

	q := contractx.SlotQuery{ServiceID: *b.ServiceID, Date: date}
	if b.MasterID != nil {
		q.MasterID = *b.MasterID
	}
	options, err := h.slots.FindSlots(ctx, q)
	if err != nil {
		return contractx.StageResponse{}, err
	}
	resp := contractx.StageResponse{ToolCalls: []string{"slots.find"}}

	if slotAvailable(options, clock) {
		// Confirmed silently; routing continues to contacts in this turn.
		resp.Updates = map[string]any{statex.KeySlotTimeVerified: true}
		return resp, nil
	}

	prepared := fmt.Sprintf("К сожалению, время %s уже занято.", toolx.FormatSlotForClient(*b.SlotTime))
	if alternatives := collectTimes(options); len(alternatives) > 0 {
		prepared += fmt.Sprintf(" В этот день свободно: %s. Какое время вам подходит?", strings.Join(alternatives, ", "))
	} else {
		prepared += " В этот день свободных окон нет. Может быть, рассмотрим другой день?"
	}
	resp.Reply = h.phrase(ctx, req, prepared)
	resp.Updates = map[string]any{statex.KeySlotTime: nil}
	return resp, nil
}

func (h *slotManager) search(ctx context.Context, req contractx.StageRequest) (contractx.StageResponse, error) {
	b := req.Booking
	pref := toolx.ParsePreference(req.Message, h.now())

	q := contractx.SlotQuery{
		ServiceID: *b.ServiceID,
		Date:      pref.Date,
		StartMin:  pref.StartMin,
		EndMin:    pref.EndMin,
	}
	if b.MasterID != nil {
		q.MasterID = *b.MasterID
	}
	if b.MasterName != nil {
		q.MasterName = *b.MasterName
	}

	options, err := h.slots.FindSlots(ctx, q)
	if err != nil {
		return contractx.StageResponse{}, err
	}
	resp := contractx.StageResponse{ToolCalls: []string{"slots.find"}}

	var lines []string
	for _, opt := range options {
		times := opt.Times
		if pref.Bounded() {
			times = toolx.FilterTimes(times, pref.StartMin, pref.EndMin)
		}
		if len(times) == 0 {
			continue
		}
		if len(times) > maxTimesPerMaster {
			times = times[:maxTimesPerMaster]
		}
		lines = append(lines, fmt.Sprintf("%s, %s: %s", opt.MasterName, formatDateForClient(opt.Date), strings.Join(times, ", ")))
	}

	// The time-of-day filter can eat every option, not just an empty schedule.
	if len(lines) == 0 {
		scope := "в ближайшие дни"
		if pref.Label != "" {
			scope = pref.Label
		}
		resp.Reply = h.phrase(ctx, req, fmt.Sprintf(
			"К сожалению, свободных окон %s не нашлось. Хотите посмотреть другое время или день?", scope,
		))
		return resp, nil
	}

	prepared := "Вот свободное время для записи:\n" + strings.Join(lines, "\n") + "\nКакое время вам удобно?"
	resp.Reply = h.phrase(ctx, req, prepared)
	return resp, nil
}

func (h *slotManager) phrase(ctx context.Context, req contractx.StageRequest, prepared string) string {
	if h.completer == nil {
		return prepared
	}
	instructions := fmt.Sprintf(h.prompt, prepared)
	turns := append(req.History, statex.Turn{Role: statex.RoleUser, Content: req.Message})

	out, err := h.completer.Complete(ctx, instructions, turns)
	if err != nil || strings.TrimSpace(out) == "" {
		log.Warn().Err(err).Msg("slot manager phrasing fell back to prepared text")
		return prepared
	}
	return strings.TrimSpace(out)
}

func slotAvailable(options []contractx.SlotOption, clock string) bool {
	for _, opt := range options {
		for _, t := range opt.Times {
			if t == clock {
				return true
			}
		}
	}
	return false
}

func collectTimes(options []contractx.SlotOption) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, opt := range options {
		for _, t := range opt.Times {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
			if len(out) == maxTimesPerMaster {
				return out
			}
		}
	}
	return out
}

func formatDateForClient(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("02.01.2006")
}
