package scoring

import (
	"strconv"
	"strings"
)

// ParseHours parses an "HH:MM-HH:MM" span and returns the number of open
// hours. A closing time before the opening time wraps past midnight; equal
// times count as zero hours.
func ParseHours(span string) (float64, bool) {
	start, end, ok := strings.Cut(strings.TrimSpace(span), "-")
	if !ok {
		return 0, false
	}
	sm, ok := parseClock(start)
	if !ok {
		return 0, false
	}
	em, ok := parseClock(end)
	if !ok {
		return 0, false
	}
	mins := em - sm
	if mins < 0 {
		mins += 24 * 60
	}
	return float64(mins) / 60, true
}

// parseClock returns minutes after midnight for "HH:MM" or "HH".
func parseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	hs, ms, hasMin := strings.Cut(s, ":")
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m := 0
	if hasMin {
		m, err = strconv.Atoi(ms)
		if err != nil || m < 0 || m > 59 {
			return 0, false
		}
	}
	if h == 24 && m != 0 {
		return 0, false
	}
	return h*60 + m, true
}
