package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{".5", "0.5", true},
		{"50000", "50000", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Plain() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.Plain(), err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got.Plain())
		}
	}
}

func TestParseBalance(t *testing.T) {
	for in, want := range map[string]string{"": "0", "0": "0", "-250.5": "-250.5", "100000": "100000"} {
		got, err := ParseBalance(in)
		if err != nil || got.Plain() != want {
			t.Fatalf("%q expected %s, got %s (err=%v)", in, want, got.Plain(), err)
		}
	}
	if _, err := ParseBalance("lots"); err == nil {
		t.Fatalf("expected error for non numeric balance")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := M(100000)
	b := M(30000.25)
	if got := a.Sub(b); got.Plain() != "69999.75" {
		t.Fatalf("sub: %s", got.Plain())
	}
	if got := a.Add(b).Neg(); got.Plain() != "-130000.25" {
		t.Fatalf("add/neg: %s", got.Plain())
	}
	if !b.LessThan(a) || !a.GreaterThan(b) {
		t.Fatalf("comparison failed")
	}
	if got := M(250).Percent(M(1000)); got.String() != "25" {
		t.Fatalf("percent: %s", got)
	}
	if got := M(1).Percent(M(0)); !got.IsZero() {
		t.Fatalf("percent of zero: %s", got)
	}
}

func TestMoneyFormat(t *testing.T) {
	s := M(1234567.5).String()
	if !strings.HasPrefix(s, "Rp") || !strings.Contains(s, "1.234.567") {
		t.Fatalf("unexpected IDR format %q", s)
	}
}

func TestMoneyJSON(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`"12.5"`), &m); err != nil || m.Plain() != "12.5" {
		t.Fatalf("string form: %s (err=%v)", m.Plain(), err)
	}
	if err := json.Unmarshal([]byte(`7`), &m); err != nil || m.Plain() != "7" {
		t.Fatalf("number form: %s (err=%v)", m.Plain(), err)
	}
	if err := json.Unmarshal([]byte(`null`), &m); err == nil {
		t.Fatalf("expected error for null")
	}
	b, _ := json.Marshal(M(99.9))
	if string(b) != "99.9" {
		t.Fatalf("marshal: %s", b)
	}
}
