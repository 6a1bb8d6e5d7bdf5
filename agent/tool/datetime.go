package tool

import (
	"fmt"
	"strings"
	"time"

	statex "github.com/looktown/booking-assistant/agent/state"
)

// NormalizeDatetime converts a stored slot time ("2006-01-02 15:04") into
// the seconds-precision form the CRM API expects. A "T" separator, trailing
// seconds, and a trailing zone marker are tolerated.
func NormalizeDatetime(slotTime string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(slotTime), "T", " ")
	s = strings.TrimSuffix(s, "Z")
	if idx := strings.IndexAny(s, "+"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	if len(s) > len(statex.SlotTimeLayout) {
		s = s[:len(statex.SlotTimeLayout)]
	}

	t, err := time.Parse(statex.SlotTimeLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid slot time %q: %w", slotTime, err)
	}
	return t.Format("2006-01-02 15:04:05"), nil
}

// SplitSlotTime breaks a stored slot time into its date and HH:MM parts.
func SplitSlotTime(slotTime string) (date, clock string, err error) {
	t, err := time.Parse(statex.SlotTimeLayout, strings.TrimSpace(slotTime))
	if err != nil {
		return "", "", fmt.Errorf("invalid slot time %q: %w", slotTime, err)
	}
	return t.Format("2006-01-02"), t.Format("15:04"), nil
}

// FormatSlotForClient renders a stored slot time the way it is shown to
// the client, e.g. "05.09.2026 в 14:30".
func FormatSlotForClient(slotTime string) string {
	t, err := time.Parse(statex.SlotTimeLayout, strings.TrimSpace(slotTime))
	if err != nil {
		return slotTime
	}
	return t.Format("02.01.2006") + " в " + t.Format("15:04")
}
