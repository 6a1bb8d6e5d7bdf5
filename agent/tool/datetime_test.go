package tool

import "testing"

func TestNormalizeDatetime(t *testing.T) {
	t.Parallel()

	got, err := NormalizeDatetime("2026-09-05 14:30")
	if err != nil {
		t.Fatalf("NormalizeDatetime() error = %v", err)
	}
	if got != "2026-09-05 14:30:00" {
		t.Fatalf("NormalizeDatetime() = %q", got)
	}

	got, err = NormalizeDatetime("2026-09-05T14:30:00Z")
	if err != nil {
		t.Fatalf("NormalizeDatetime() error = %v", err)
	}
	if got != "2026-09-05 14:30:00" {
		t.Fatalf("NormalizeDatetime() = %q", got)
	}

	if _, err := NormalizeDatetime("завтра"); err == nil {
		t.Fatal("NormalizeDatetime() error = nil, want parse error")
	}
}

func TestSplitSlotTime(t *testing.T) {
	t.Parallel()

	date, clock, err := SplitSlotTime("2026-09-05 14:30")
	if err != nil {
		t.Fatalf("SplitSlotTime() error = %v", err)
	}
	if date != "2026-09-05" || clock != "14:30" {
		t.Fatalf("SplitSlotTime() = %q, %q", date, clock)
	}
}

func TestFormatSlotForClient(t *testing.T) {
	t.Parallel()

	if got := FormatSlotForClient("2026-09-05 14:30"); got != "05.09.2026 в 14:30" {
		t.Fatalf("FormatSlotForClient() = %q", got)
	}
	// Unparseable input passes through untouched.
	if got := FormatSlotForClient("скоро"); got != "скоро" {
		t.Fatalf("FormatSlotForClient() = %q", got)
	}
}
