package http

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"dompet/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		query     string
		wantMonth int
		wantYear  int
		wantErr   bool
	}{
		{"", 0, 2025, false},
		{"month=11&year=2024", 11, 2024, false},
		{"month= 3 ", 3, 2025, false},
		{"month=12", 0, 0, true},
		{"month=x", 0, 0, true},
		{"year=0", 0, 0, true},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		month, year, err := parseMonthParams(q, now)
		if tt.wantErr {
			var re *requestError
			if !errors.As(err, &re) {
				t.Errorf("%q: expected request error, got %v", tt.query, err)
			}
			continue
		}
		if err != nil || month != tt.wantMonth || year != tt.wantYear {
			t.Errorf("%q: got %d/%d (err=%v), want %d/%d", tt.query, month, year, err, tt.wantMonth, tt.wantYear)
		}
	}
}

func TestParseOccurredAt(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	now := time.Date(2025, 5, 17, 1, 15, 0, 0, time.UTC)

	got, err := parseOccurredAt("", "", now, loc)
	if err != nil || !got.IsZero() {
		t.Fatalf("empty input should give the zero time, got %v (err=%v)", got, err)
	}

	got, err = parseOccurredAt("2025-04-30", "", now, loc)
	if err != nil {
		t.Fatalf("date only: %v", err)
	}
	if core.DateOf(got, loc).String() != "2025-04-30" || core.ClockOf(got, loc) != "08:15" {
		t.Fatalf("date only should keep now's clock, got %v", got.In(loc))
	}

	got, err = parseOccurredAt("", "21:05", now, loc)
	if err != nil || core.DateOf(got, loc).String() != "2025-05-17" || core.ClockOf(got, loc) != "21:05" {
		t.Fatalf("clock only: %v (err=%v)", got.In(loc), err)
	}

	for _, tc := range []struct{ date, clock, field string }{
		{"17/05/2025", "", "date"},
		{"2025-05-17", "9pm", "time"},
	} {
		_, err := parseOccurredAt(tc.date, tc.clock, now, loc)
		var ve *core.ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Errorf("%q %q: expected validation error on %s, got %v", tc.date, tc.clock, tc.field, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  Makan siang  ":   "Makan siang",
		"a\x00b\x07c":       "abc",
		"line1\nline2\tend": "line1\nline2\tend",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRawAmount(t *testing.T) {
	for in, want := range map[string]string{`30000`: "30000", `"1500.5"`: "1500.5", ` 7 `: "7", ``: ""} {
		if got := rawAmount([]byte(in)); got != want {
			t.Errorf("rawAmount(%q) = %q, want %q", in, got, want)
		}
	}
}
