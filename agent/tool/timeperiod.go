package tool

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Predefined day-part bounds, minutes from midnight.
const (
	morningStart = 9 * 60
	morningEnd   = 11 * 60
	dayStart     = 11 * 60
	dayEnd       = 17 * 60
	eveningStart = 17 * 60
	eveningEnd   = 22 * 60

	pointSlotMinutes = 30
	wholeDayEnd      = 24 * 60
)

// TimePreference is the slot-search scope inferred from the client's
// phrasing: an optional concrete date plus a time-of-day window. Zero
// StartMin/EndMin means the whole day.
type TimePreference struct {
	Date     string // YYYY-MM-DD, empty when no date was named
	StartMin int
	EndMin   int
	Label    string
}

func (p TimePreference) Bounded() bool {
	return p.StartMin != 0 || p.EndMin != 0
}

var (
	afterRe    = regexp.MustCompile(`после\s+(\d{1,2})[:.]?(\d{2})?`)
	beforeRe   = regexp.MustCompile(`до\s+(\d{1,2})[:.]?(\d{2})?`)
	intervalRe = regexp.MustCompile(`(\d{1,2})[:.](\d{2})\s*-\s*(\d{1,2})[:.](\d{2})`)
)

// ParseTimeOfDay parses "16:00" or "16.00" into minutes from midnight.
func ParseTimeOfDay(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", ":")
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}
	if hours < 0 || hours >= 24 || minutes < 0 || minutes >= 60 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return hours*60 + minutes, nil
}

// PeriodBounds resolves a period expression into (start, end) minutes.
// Supported: "morning"/"day"/"evening", "before HH:MM", "after HH:MM",
// "HH:MM-HH:MM", and a bare "HH:MM" point (30-minute window). Anything else
// falls back to the whole day.
func PeriodBounds(period string) (int, int) {
	period = strings.ToLower(strings.TrimSpace(period))

	switch period {
	case "morning":
		return morningStart, morningEnd
	case "day":
		return dayStart, dayEnd
	case "evening":
		return eveningStart, eveningEnd
	}

	if rest, ok := strings.CutPrefix(period, "before "); ok {
		if end, err := ParseTimeOfDay(rest); err == nil {
			return 0, end
		}
		return 0, wholeDayEnd
	}
	if rest, ok := strings.CutPrefix(period, "after "); ok {
		if start, err := ParseTimeOfDay(rest); err == nil {
			return start, wholeDayEnd
		}
		return 0, wholeDayEnd
	}

	if from, to, ok := strings.Cut(period, "-"); ok {
		start, errA := ParseTimeOfDay(from)
		end, errB := ParseTimeOfDay(to)
		if errA == nil && errB == nil {
			return start, end
		}
	}

	if point, err := ParseTimeOfDay(period); err == nil {
		return point, point + pointSlotMinutes
	}

	return 0, wholeDayEnd
}

// ParsePreference infers the client's date/time wishes from their free-form
// Russian phrasing: day parts, "после 18:00" / "до 11", explicit intervals,
// and today/tomorrow keywords.
func ParsePreference(message string, now time.Time) TimePreference {
	lower := strings.ToLower(message)

	pref := TimePreference{}

	switch {
	case containsAny(lower, "утром", "утра", "утреннее"):
		pref.StartMin, pref.EndMin = morningStart, morningEnd
		pref.Label = "утром"
	case containsAny(lower, "днем", "днём", "дневное"):
		pref.StartMin, pref.EndMin = dayStart, dayEnd
		pref.Label = "днем"
	case containsAny(lower, "вечером", "вечер", "вечернее"):
		pref.StartMin, pref.EndMin = eveningStart, eveningEnd
		pref.Label = "вечером"
	case intervalRe.MatchString(lower):
		m := intervalRe.FindStringSubmatch(lower)
		start, _ := ParseTimeOfDay(m[1] + ":" + m[2])
		end, _ := ParseTimeOfDay(m[3] + ":" + m[4])
		pref.StartMin, pref.EndMin = start, end
		pref.Label = fmt.Sprintf("с %s:%s до %s:%s", m[1], m[2], m[3], m[4])
	case afterRe.MatchString(lower):
		m := afterRe.FindStringSubmatch(lower)
		minute := m[2]
		if minute == "" {
			minute = "00"
		}
		if start, err := ParseTimeOfDay(m[1] + ":" + minute); err == nil {
			pref.StartMin, pref.EndMin = start, wholeDayEnd
			pref.Label = fmt.Sprintf("после %s:%s", m[1], minute)
		}
	case beforeRe.MatchString(lower):
		m := beforeRe.FindStringSubmatch(lower)
		minute := m[2]
		if minute == "" {
			minute = "00"
		}
		if end, err := ParseTimeOfDay(m[1] + ":" + minute); err == nil {
			pref.StartMin, pref.EndMin = 0, end
			pref.Label = fmt.Sprintf("до %s:%s", m[1], minute)
		}
	}

	switch {
	case strings.Contains(lower, "послезавтра"):
		pref.Date = now.AddDate(0, 0, 2).Format("2006-01-02")
	case strings.Contains(lower, "завтра"):
		pref.Date = now.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(lower, "сегодня"):
		pref.Date = now.Format("2006-01-02")
	}

	return pref
}

// FilterTimes keeps the HH:MM points that fall inside [startMin, endMin).
// The upper bound is exclusive so "до 11:00" does not offer an 11:00 start.
func FilterTimes(times []string, startMin, endMin int) []string {
	if startMin == 0 && endMin == 0 {
		return times
	}
	var out []string
	for _, t := range times {
		m, err := ParseTimeOfDay(t)
		if err != nil {
			continue
		}
		if m >= startMin && m < endMin {
			out = append(out, t)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
