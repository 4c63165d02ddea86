package normalizer

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFormatTimeInput(t *testing.T) {
	cases := map[string]string{
		"":       "",
		"1":      "1",
		"14":     "14",
		"143":    "14",
		"1430":   "14:30",
		"14:30":  "14:30",
		"14h30m": "14:30",
		"143059": "14:30",
		"ab":     "",
	}
	for in, want := range cases {
		if got := FormatTimeInput(in); got != want {
			t.Fatalf("FormatTimeInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatTimeInputIdempotent(t *testing.T) {
	for _, in := range []string{"0", "08", "0815", "23:59", "9:5"} {
		once := FormatTimeInput(in)
		if twice := FormatTimeInput(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestParseSourceTime(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"", ""},
		{"   ", ""},
		{0.5, "12:00"},
		{0.875, "21:00"},
		{float32(0.25), "06:00"},
		{1.5, "12:00"},
		{0.999999, "00:00"},
		{"0800", "08:00"},
		{"08:00", "08:00"},
		{" 21:30 ", "21:30"},
		{"0.75", "18:00"},
		{"MAÑANA", "MAÑANA"},
		{json.Number("0.5"), "12:00"},
		{math.NaN(), ""},
		{-0.5, ""},
		{1e20, "00:00"},
		{45413.75, "18:00"},
		{math.MaxFloat64, "00:00"},
		{true, ""},
	}
	for _, tc := range cases {
		if got := ParseSourceTime(tc.in); got != tc.want {
			t.Fatalf("ParseSourceTime(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
