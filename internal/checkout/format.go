package checkout

import "strings"

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCardNumber groups up to 16 digits in blocks of four. Anything that is not
// purely digits and spaces is returned trimmed so validation can still report it.
func FormatCardNumber(raw string) string {
	digits := strings.Join(strings.Fields(raw), "")
	if digits == "" || digitsOnly(digits) != digits || len(digits) > 16 {
		return strings.TrimSpace(raw)
	}
	parts := make([]string, 0, 4)
	for i := 0; i < len(digits); i += 4 {
		end := min(i+4, len(digits))
		parts = append(parts, digits[i:end])
	}
	return strings.Join(parts, " ")
}

// FormatExpiry renders "MMYY" style input as "MM/YY".
func FormatExpiry(raw string) string {
	digits := digitsOnly(raw)
	if len(digits) < 2 {
		return strings.TrimSpace(raw)
	}
	if len(digits) > 4 {
		digits = digits[:4]
	}
	return digits[:2] + "/" + digits[2:]
}

// FormatPhone renders a 10-digit number as "(555) 123-4567". Other input is returned trimmed.
func FormatPhone(raw string) string {
	digits := digitsOnly(raw)
	if len(digits) != 10 {
		return strings.TrimSpace(raw)
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}
