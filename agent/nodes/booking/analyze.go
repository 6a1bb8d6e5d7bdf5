package bookingnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	analyzerx "github.com/looktown/booking-assistant/agent/analyzer"
	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

// AnalyzeMessage extracts booking fields from the client's message and merges
// them into the session. A message that names a new service or time after the
// previous attempt was finalized opens a fresh attempt first.
func AnalyzeMessage(
	ctx context.Context,
	in *GraphState,
	extractor *analyzerx.Extractor,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	updates := extractor.Extract(ctx, in.Text, in.Session.Turns, in.Session.Booking)

	if in.Session.Booking.Finalized() && startsNewAttempt(updates) {
		log.Info().
			Str("session_id", in.SessionID).
			Str("attempt_id", in.Session.AttemptID).
			Msg("finalized booking, opening new attempt")
		in.Session.ResetAttempt()
	}

	in.Updates = updates
	in.Session.Booking = statex.Merge(in.Session.Booking, updates)
	return in, nil
}

// startsNewAttempt reports whether the extracted fields express a new booking
// wish rather than small talk about the finished one.
func startsNewAttempt(updates map[string]any) bool {
	for _, key := range []string{
		statex.KeyServiceID,
		statex.KeyServiceName,
		statex.KeyMasterID,
		statex.KeyMasterName,
		statex.KeySlotTime,
	} {
		if v, ok := updates[key]; ok && v != nil {
			return true
		}
	}
	return false
}
