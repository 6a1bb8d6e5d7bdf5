package state

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Booking is the per-conversation slot-filling record for one booking
// attempt. All data fields are optional; absence means "not collected yet".
// Routing is always recomputed from the raw fields, DialogStep is an
// informational label only.
type Booking struct {
	ServiceID        *int    `json:"service_id,omitempty"`
	ServiceName      *string `json:"service_name,omitempty"`
	MasterID         *int    `json:"master_id,omitempty"`
	MasterName       *string `json:"master_name,omitempty"`
	SlotTime         *string `json:"slot_time,omitempty"` // YYYY-MM-DD HH:MM
	SlotTimeVerified *bool   `json:"slot_time_verified,omitempty"`
	ClientName       *string `json:"client_name,omitempty"`
	ClientPhone      *string `json:"client_phone,omitempty"`
	IsFinalized      *bool   `json:"is_finalized,omitempty"`
	DialogStep       Step    `json:"dialog_step,omitempty"`
}

type Step string

const (
	StepService      Step = "service"
	StepSlot         Step = "slot"
	StepContacts     Step = "contacts"
	StepConfirmation Step = "confirmation"
)

// Update-map keys shared by the analyzer and the stage handlers.
const (
	KeyServiceID        = "service_id"
	KeyServiceName      = "service_name"
	KeyMasterID         = "master_id"
	KeyMasterName       = "master_name"
	KeySlotTime         = "slot_time"
	KeySlotTimeVerified = "slot_time_verified"
	KeyClientName       = "client_name"
	KeyClientPhone      = "client_phone"
	KeyIsFinalized      = "is_finalized"
)

const SlotTimeLayout = "2006-01-02 15:04"

func NewBooking() Booking {
	return Booking{DialogStep: StepService}
}

func (b Booking) Finalized() bool {
	return b.IsFinalized != nil && *b.IsFinalized
}

func (b Booking) SlotVerified() bool {
	return b.SlotTimeVerified != nil && *b.SlotTimeVerified
}

func (b Booking) HasContacts() bool {
	return b.ClientName != nil && b.ClientPhone != nil
}

// ComputeStep derives the informational dialog step from field completeness.
func ComputeStep(b Booking) Step {
	switch {
	case b.ServiceID == nil:
		return StepService
	case b.SlotTime == nil:
		return StepSlot
	case b.ClientName == nil || b.ClientPhone == nil:
		return StepContacts
	default:
		return StepConfirmation
	}
}

// IsMidnight reports whether slotTime parses as YYYY-MM-DD HH:MM with a 00:00
// time component, which the extractor produces when the client gave a date
// without a time. Unparseable input is not midnight.
func IsMidnight(slotTime string) bool {
	t, err := time.Parse(SlotTimeLayout, strings.TrimSpace(slotTime))
	if err != nil {
		return false
	}
	return t.Hour() == 0 && t.Minute() == 0
}

// Merge reconciles freshly extracted updates into the current booking.
//
// Rules, in order:
//  1. A finalized attempt is immutable; callers reset to an empty Booking
//     before merging a new attempt.
//  2. A midnight slot_time is dropped from the update entirely.
//  3. Keys absent from updates leave current untouched; an explicit null on a
//     resettable key (service_id, master_id, master_name, slot_time) clears
//     that field.
//  4. Numeric-looking strings for service_id/master_id are coerced to int;
//     coercion failure skips the key.
//  5. Only the highest-priority change fires its cascade (service > master >
//     slot > contact), and a cascade never clears a field re-supplied in the
//     same update.
func Merge(current Booking, updates map[string]any) Booking {
	if current.Finalized() || len(updates) == 0 {
		current.DialogStep = ComputeStep(current)
		return current
	}

	// Copy so the midnight rule does not mutate the caller's map.
	up := make(map[string]any, len(updates))
	for k, v := range updates {
		up[k] = v
	}
	if v, ok := up[KeySlotTime]; ok {
		if s, isStr := v.(string); isStr && IsMidnight(s) {
			log.Info().Str("slot_time", s).Msg("date-only slot_time dropped from update")
			delete(up, KeySlotTime)
		}
	}

	next := current

	serviceChanged := applyServiceUpdate(&next, up)
	masterChanged := applyMasterUpdate(&next, up)
	slotChanged := applySlotUpdate(&next, up)
	nameChanged, phoneChanged := applyContactUpdate(&next, up)
	applyVerifiedUpdate(&next, up)
	applyFinalizedUpdate(&next, up)

	supplied := func(key string) bool {
		v, ok := up[key]
		return ok && v != nil
	}

	switch {
	case serviceChanged:
		if !supplied(KeyMasterID) {
			next.MasterID = nil
		}
		if !supplied(KeyMasterName) {
			next.MasterName = nil
		}
		if !supplied(KeySlotTime) {
			next.SlotTime = nil
		}
		if !supplied(KeySlotTimeVerified) {
			next.SlotTimeVerified = nil
		}
		if !supplied(KeyClientName) {
			next.ClientName = nil
		}
		if !supplied(KeyClientPhone) {
			next.ClientPhone = nil
		}
	case masterChanged:
		if !supplied(KeySlotTime) {
			next.SlotTime = nil
		}
		if !supplied(KeySlotTimeVerified) {
			next.SlotTimeVerified = nil
		}
		if !supplied(KeyClientName) {
			next.ClientName = nil
		}
		if !supplied(KeyClientPhone) {
			next.ClientPhone = nil
		}
	case slotChanged:
		if !supplied(KeySlotTimeVerified) {
			next.SlotTimeVerified = nil
		}
		if !supplied(KeyClientName) {
			next.ClientName = nil
		}
		if !supplied(KeyClientPhone) {
			next.ClientPhone = nil
		}
	case nameChanged && !supplied(KeyClientPhone):
		// New name, old phone likely belonged to someone else.
		next.ClientPhone = nil
	case phoneChanged && !supplied(KeyClientName):
		next.ClientName = nil
	}

	// slot_time_verified must never outlive slot_time.
	if next.SlotTime == nil {
		next.SlotTimeVerified = nil
	}

	next.DialogStep = ComputeStep(next)
	return next
}

func applyServiceUpdate(b *Booking, up map[string]any) bool {
	changed := false

	if v, ok := up[KeyServiceID]; ok {
		if v == nil {
			if b.ServiceID != nil {
				changed = true
			}
			b.ServiceID = nil
		} else if id, err := coerceInt(v); err != nil {
			log.Warn().Interface("value", v).Err(err).Msg("unusable service_id in update, skipped")
		} else {
			if b.ServiceID == nil || *b.ServiceID != id {
				changed = true
			}
			b.ServiceID = &id
		}
	}

	if v, ok := up[KeyServiceName]; ok && v != nil {
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
			name := strings.TrimSpace(s)
			if b.ServiceName == nil || !strings.EqualFold(*b.ServiceName, name) {
				changed = true
			}
			b.ServiceName = &name
		}
	}

	return changed
}

func applyMasterUpdate(b *Booking, up map[string]any) bool {
	changed := false

	if v, ok := up[KeyMasterID]; ok {
		if v == nil {
			if b.MasterID != nil {
				changed = true
			}
			b.MasterID = nil
			b.MasterName = nil
		} else if id, err := coerceInt(v); err != nil {
			log.Warn().Interface("value", v).Err(err).Msg("unusable master_id in update, skipped")
		} else {
			if b.MasterID == nil || *b.MasterID != id {
				changed = true
			}
			b.MasterID = &id
		}
	}

	if v, ok := up[KeyMasterName]; ok {
		if v == nil {
			b.MasterName = nil
		} else if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
			name := strings.TrimSpace(s)
			if b.MasterName == nil || !strings.EqualFold(*b.MasterName, name) {
				changed = true
			}
			b.MasterName = &name
		}
	}

	return changed
}

func applySlotUpdate(b *Booking, up map[string]any) bool {
	v, ok := up[KeySlotTime]
	if !ok {
		return false
	}
	if v == nil {
		changed := b.SlotTime != nil
		b.SlotTime = nil
		return changed
	}
	s, isStr := v.(string)
	if !isStr || strings.TrimSpace(s) == "" {
		return false
	}
	slot := strings.TrimSpace(s)
	changed := b.SlotTime == nil || *b.SlotTime != slot
	b.SlotTime = &slot
	return changed
}

func applyContactUpdate(b *Booking, up map[string]any) (nameChanged, phoneChanged bool) {
	if v, ok := up[KeyClientName]; ok && v != nil {
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
			name := strings.TrimSpace(s)
			if b.ClientName == nil || *b.ClientName != name {
				nameChanged = true
			}
			b.ClientName = &name
		}
	}
	if v, ok := up[KeyClientPhone]; ok && v != nil {
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
			phone := strings.TrimSpace(s)
			if b.ClientPhone == nil || *b.ClientPhone != phone {
				phoneChanged = true
			}
			b.ClientPhone = &phone
		}
	}
	return nameChanged, phoneChanged
}

func applyVerifiedUpdate(b *Booking, up map[string]any) {
	v, ok := up[KeySlotTimeVerified]
	if !ok {
		return
	}
	if v == nil {
		b.SlotTimeVerified = nil
		return
	}
	if flag, isBool := v.(bool); isBool {
		b.SlotTimeVerified = &flag
	}
}

func applyFinalizedUpdate(b *Booking, up map[string]any) {
	v, ok := up[KeyIsFinalized]
	if !ok || v == nil {
		return
	}
	if flag, isBool := v.(bool); isBool && flag {
		b.IsFinalized = &flag
	}
}

func coerceInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != float64(int(t)) {
			return 0, fmt.Errorf("non-integral number %v", t)
		}
		return int(t), nil
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("non-numeric string %q", t)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
