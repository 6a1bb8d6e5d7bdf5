package tool

import "strings"

// NormalizePhone brings a user-typed phone number to +7XXXXXXXXXX form.
// Non-digits are dropped, a leading 8 on an 11-digit number becomes +7,
// and a bare 10-digit mobile number gets the +7 prefix. Numbers that do
// not match those shapes are returned digits-only with their original
// leading plus preserved.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	hadPlus := strings.HasPrefix(raw, "+")

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 11 && d[0] == '8':
		return "+7" + d[1:]
	case len(d) == 11 && d[0] == '7':
		return "+" + d
	case len(d) == 10 && d[0] == '9':
		return "+7" + d
	}
	if hadPlus && d != "" {
		return "+" + d
	}
	return d
}
