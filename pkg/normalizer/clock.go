package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

const minutesPerDay = 24 * 60

// FormatTimeInput turns partially typed digits into "HH" or "HH:MM". It is
// applied on every keystroke, so feeding its own output back is a no-op.
func FormatTimeInput(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	if len(digits) < 2 {
		return digits
	}
	hours := digits[:2]
	if len(digits) < 4 {
		return hours
	}
	return hours + ":" + digits[2:4]
}

// ParseSourceTime converts a time cell read from a spreadsheet into "HH:MM".
// Numbers are fractions of a day (0.5 is noon). Text that already carries a
// separator is kept, and bare four digit runs get one inserted. Unusable
// input degrades to an empty or trimmed string.
func ParseSourceTime(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case float64:
		return fromDayFraction(v)
	case float32:
		return fromDayFraction(float64(v))
	case int:
		return fromDayFraction(float64(v))
	case int64:
		return fromDayFraction(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return fromDayFraction(f)
		}
		return strings.TrimSpace(v.String())
	case string:
		return parseClockText(v)
	case fmt.Stringer:
		return parseClockText(v.String())
	default:
		return ""
	}
}

func parseClockText(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	if strings.ContainsAny(text, ":hH") {
		return text
	}
	if len(text) == 4 && allDigits(text) {
		return text[:2] + ":" + text[2:]
	}
	// Raw spreadsheet values arrive as text like "0.875".
	if strings.Contains(text, ".") {
		if f, err := strconv.ParseFloat(text, 64); err == nil && f >= 0 && f < 1 {
			return fromDayFraction(f)
		}
	}
	return text
}

func fromDayFraction(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ""
	}
	// Whole days are dropped; only the time of day is kept.
	_, frac := math.Modf(v)
	total := int64(math.Round(frac*minutesPerDay)) % minutesPerDay
	hours := total / 60
	minutes := total % 60
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
