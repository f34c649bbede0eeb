package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{"2025-12-31", true},
		{" 2024-02-29 ", true},
		{"2025-02-30", false},
		{"01/02/2025", false},
		{"", false},
	}
	for i, tc := range cases {
		_, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	instant := time.Date(2025, 3, 31, 20, 30, 0, 0, time.UTC)

	if got := DateOf(instant, jakarta).String(); got != "2025-04-01" {
		t.Fatalf("expected local date 2025-04-01, got %s", got)
	}
	if got := ClockOf(instant, jakarta); got != "03:30" {
		t.Fatalf("expected local clock 03:30, got %s", got)
	}
}

func TestDateOrderingAndMonth(t *testing.T) {
	a := NewDate(2024, 12, 31)
	b := NewDate(2025, 1, 1)
	if !a.Before(b) || b.Before(a) || a.Before(a) {
		t.Fatalf("unexpected ordering for %s and %s", a, b)
	}
	if !b.InMonth(0, 2025) {
		t.Fatalf("expected %s in January 2025", b)
	}
	if a.InMonth(0, 2025) {
		t.Fatalf("did not expect %s in January 2025", a)
	}
}

func TestTransactionJSONShape(t *testing.T) {
	tx := Transaction{
		Type:        Expense,
		Amount:      M(30000),
		Description: "Bensin",
		Date:        NewDate(2025, 5, 17),
		Time:        "08:15",
		Timestamp:   1747469700000,
	}
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"expense","amount":30000,"description":"Bensin","date":"2025-05-17","time":"08:15","timestamp":1747469700000}`
	if string(b) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", b, want)
	}

	var back Transaction
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Date.String() != "2025-05-17" || !back.Amount.Equal(M(30000)) || back.Timestamp != tx.Timestamp {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestEffect(t *testing.T) {
	in := Transaction{Type: Income, Amount: M(50)}
	out := Transaction{Type: Expense, Amount: M(20)}
	if !in.Effect().Equal(M(50)) {
		t.Fatalf("income effect: %s", in.Effect().Plain())
	}
	if !out.Effect().Equal(M(-20)) {
		t.Fatalf("expense effect: %s", out.Effect().Plain())
	}
}

func TestParseTransactionType(t *testing.T) {
	if typ, err := ParseTransactionType(" Income "); err != nil || typ != Income {
		t.Fatalf("expected income, got %q (err=%v)", typ, err)
	}
	_, err := ParseTransactionType("transfer")
	if !errors.Is(err, ErrInvalidType) || !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	doc := `{
	  "balance": 120000,
	  "transactions": [
	    {"type":"income","amount":50000,"description":"Gajian","date":"2025-05-01","time":"09:00","timestamp":2},
	    {"type":"expense","amount":1500.5,"description":"Parkir","date":"2025-05-02","time":"10:30","timestamp":3}
	  ]
	}`
	snap, err := DecodeSnapshot(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !snap.Balance.Equal(M(120000)) || len(snap.Transactions) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !snap.Transactions[1].Amount.Equal(M(1500.5)) {
		t.Fatalf("unexpected amount: %s", snap.Transactions[1].Amount.Plain())
	}
}

func TestDecodeSnapshotRejectsMalformed(t *testing.T) {
	cases := map[string]struct {
		doc   string
		field string
	}{
		"not json":          {`{`, "document"},
		"missing balance":   {`{"transactions":[]}`, "balance"},
		"string balance":    {`{"balance":"10","transactions":[]}`, "balance"},
		"missing list":      {`{"balance":0}`, "transactions"},
		"missing amount":    {`{"balance":0,"transactions":[{"type":"expense","description":"x","date":"2025-01-01","time":"10:00","timestamp":1}]}`, "amount"},
		"bad type":          {`{"balance":0,"transactions":[{"type":"gift","amount":1,"description":"x","date":"2025-01-01","time":"10:00","timestamp":1}]}`, "type"},
		"bad date":          {`{"balance":0,"transactions":[{"type":"income","amount":1,"description":"x","date":"01-01-2025","time":"10:00","timestamp":1}]}`, "date"},
		"bad time":          {`{"balance":0,"transactions":[{"type":"income","amount":1,"description":"x","date":"2025-01-01","time":"25:00","timestamp":1}]}`, "time"},
		"fractional stamp":  {`{"balance":0,"transactions":[{"type":"income","amount":1,"description":"x","date":"2025-01-01","time":"10:00","timestamp":1.5}]}`, "timestamp"},
		"duplicate stamp":   {`{"balance":0,"transactions":[{"type":"income","amount":1,"description":"x","date":"2025-01-01","time":"10:00","timestamp":1},{"type":"income","amount":1,"description":"y","date":"2025-01-01","time":"10:00","timestamp":1}]}`, "timestamp"},
		"missing timestamp": {`{"balance":0,"transactions":[{"type":"income","amount":1,"description":"x","date":"2025-01-01","time":"10:00"}]}`, "timestamp"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot(strings.NewReader(tc.doc))
			var ie *ImportFormatError
			if !errors.As(err, &ie) {
				t.Fatalf("expected ImportFormatError, got %v", err)
			}
			if ie.Field != tc.field {
				t.Fatalf("expected field %q, got %q (%v)", tc.field, ie.Field, err)
			}
		})
	}
}

func TestEncodeSnapshotShape(t *testing.T) {
	var sb strings.Builder
	err := EncodeSnapshot(&sb, Snapshot{Balance: M(0)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(sb.String(), `"transactions": []`) || !strings.Contains(sb.String(), `"balance": 0`) {
		t.Fatalf("unexpected export: %s", sb.String())
	}
}

func TestExportFileName(t *testing.T) {
	got := ExportFileName(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	if got != "expense-tracker-data-2025-07-04.json" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestMonthKeyAndName(t *testing.T) {
	k := KeyOf(NewDate(2025, 3, 9))
	if k.Year != 2025 || k.Month != 2 {
		t.Fatalf("unexpected key %+v", k)
	}
	if MonthName(k.Month) != "Maret" {
		t.Fatalf("unexpected label %q", MonthName(k.Month))
	}
	if !(MonthKey{Year: 2025, Month: 0}).After(MonthKey{Year: 2024, Month: 11}) {
		t.Fatalf("expected January 2025 after December 2024")
	}
}
