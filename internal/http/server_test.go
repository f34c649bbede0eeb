package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/kv"
	"dompet/internal/kv/memory"
	"dompet/internal/ledger"
	"dompet/internal/log"
	"dompet/internal/report"
	"dompet/internal/settings"
)

var (
	fixedNow = time.Date(2025, 5, 17, 1, 15, 0, 0, time.UTC)
	jakarta  = time.FixedZone("WIB", 7*3600)
)

type fixture struct {
	srv    *Server
	ledger *ledger.Store
	kv     *memory.Store
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newFixture(t *testing.T, balance string, ready Pinger) *fixture {
	t.Helper()
	mem := memory.New(map[string]string{kv.KeyBalance: balance, kv.KeyTransactions: "[]"})
	clock := func() time.Time { return fixedNow }
	store := ledger.New(mem,
		ledger.WithClock(clock),
		ledger.WithLocation(jakarta),
		ledger.WithLogger(log.Discard()))
	srv := NewServer(Options{
		Ledger:   store,
		Settings: settings.New(mem, nil, log.Discard()),
		Ready:    ready,
		Reports:  cache.NewLRUCache[report.MonthReport](10, time.Minute),
		Logger:   log.Discard(),
		Now:      clock,
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &fixture{srv: srv, ledger: store, kv: mem}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestCreateAndListTransactions(t *testing.T) {
	f := newFixture(t, "100000", nil)

	rec := f.do(t, http.MethodPost, "/api/transactions", `{"type":"expense","amount":30000,"description":"Bensin motor"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}
	created := decode[createTransactionResponse](t, rec)
	if !created.Balance.Equal(core.M(70000)) {
		t.Fatalf("balance after expense = %s", created.Balance.Plain())
	}
	if created.Transaction.Date.String() != "2025-05-17" || created.Transaction.Time != "08:15" {
		t.Fatalf("unexpected date/time %s %s", created.Transaction.Date, created.Transaction.Time)
	}

	rec = f.do(t, http.MethodPost, "/api/transactions", `{"type":"income","amount":"15000.50","description":"Jual barang","date":"2025-05-02","time":"19:30"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create income status %d: %s", rec.Code, rec.Body)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?type=income", 1},
		{"?type=all", 2},
		{"?q=BENSIN", 1},
		{"?month=3&year=2025", 0},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodGet, "/api/transactions"+tt.query, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("list%s status %d", tt.query, rec.Code)
		}
		if got := decode[transactionsResponse](t, rec); got.Count != tt.want {
			t.Errorf("list%s count = %d, want %d", tt.query, got.Count, tt.want)
		}
	}

	list := decode[transactionsResponse](t, f.do(t, http.MethodGet, "/api/transactions", ""))
	if list.Transactions[0].Description != "Bensin motor" {
		t.Errorf("expected newest date first, got %q", list.Transactions[0].Description)
	}

	recent := decode[transactionsResponse](t, f.do(t, http.MethodGet, "/api/transactions/recent?n=1", ""))
	if recent.Count != 1 || recent.Transactions[0].Description != "Jual barang" {
		t.Errorf("recent should order by timestamp, got %+v", recent.Transactions)
	}
}

func TestListRejectsBadParams(t *testing.T) {
	f := newFixture(t, "0", nil)
	for _, q := range []string{"?month=12", "?month=-1", "?year=abc", "?type=transfer"} {
		rec := f.do(t, http.MethodGet, "/api/transactions"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, rec.Code)
		}
	}
}

func TestCountParamsMustBePositive(t *testing.T) {
	f := newFixture(t, "0", nil)
	for _, target := range []string{
		"/api/transactions/recent?n=0",
		"/api/transactions/recent?n=-3",
		"/api/reports/monthly?months=0",
		"/api/reports/monthly?months=-1",
		"/api/reports/monthly?months=six",
	} {
		if rec := f.do(t, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", target, rec.Code)
		}
	}
	for _, target := range []string{"/api/transactions/recent", "/api/reports/monthly?months=1"} {
		if rec := f.do(t, http.MethodGet, target, ""); rec.Code != http.StatusOK {
			t.Errorf("%s: status %d, want 200", target, rec.Code)
		}
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"insufficient balance", `{"type":"expense","amount":200000,"description":"TV"}`, http.StatusUnprocessableEntity, "amount"},
		{"zero amount", `{"type":"income","amount":0,"description":"x"}`, http.StatusUnprocessableEntity, "amount"},
		{"text amount", `{"type":"income","amount":"abc","description":"x"}`, http.StatusUnprocessableEntity, "amount"},
		{"blank description", `{"type":"income","amount":10,"description":"   "}`, http.StatusUnprocessableEntity, "description"},
		{"bad type", `{"type":"gift","amount":10,"description":"x"}`, http.StatusUnprocessableEntity, "type"},
		{"bad date", `{"type":"income","amount":10,"description":"x","date":"2025-02-30"}`, http.StatusUnprocessableEntity, "date"},
		{"bad time", `{"type":"income","amount":10,"description":"x","time":"25:00"}`, http.StatusUnprocessableEntity, "time"},
		{"unknown field", `{"type":"income","amount":10,"description":"x","category":"y"}`, http.StatusBadRequest, "body"},
		{"malformed json", `{"type":`, http.StatusBadRequest, "body"},
		{"two values", `{"type":"income","amount":10,"description":"x"}{}`, http.StatusBadRequest, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "100000", nil)
			rec := f.do(t, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if got := decode[errorResponse](t, rec); got.Field != tt.field {
				t.Fatalf("field %q, want %q", got.Field, tt.field)
			}
			balance, _ := f.ledger.Balance(context.Background())
			if !balance.Equal(core.M(100000)) {
				t.Fatalf("balance changed to %s", balance.Plain())
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	f := newFixture(t, "100000", nil)
	created := decode[createTransactionResponse](t,
		f.do(t, http.MethodPost, "/api/transactions", `{"type":"expense","amount":30000,"description":"Parkir"}`))

	if rec := f.do(t, http.MethodDelete, "/api/transactions/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad timestamp status %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/api/transactions/42", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing timestamp status %d", rec.Code)
	}

	path := "/api/transactions/" + jsonInt(created.Transaction.Timestamp)
	if rec := f.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", rec.Code, rec.Body)
	}
	bal := decode[balanceResponse](t, f.do(t, http.MethodGet, "/api/balance", ""))
	if !bal.Balance.Equal(core.M(100000)) {
		t.Fatalf("balance after delete = %s", bal.Balance.Plain())
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestBalanceEndpoints(t *testing.T) {
	f := newFixture(t, "0", nil)

	rec := f.do(t, http.MethodPut, "/api/balance", `{"balance":250000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set status %d: %s", rec.Code, rec.Body)
	}
	got := decode[balanceResponse](t, f.do(t, http.MethodGet, "/api/balance", ""))
	if !got.Balance.Equal(core.M(250000)) || !strings.HasPrefix(got.Formatted, "Rp") {
		t.Fatalf("unexpected balance %+v", got)
	}

	for _, body := range []string{`{"balance":-1}`, `{}`, `{"balance":"lots"}`} {
		if rec := f.do(t, http.MethodPut, "/api/balance", body); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status %d, want 422", body, rec.Code)
		}
	}
	if rec := f.do(t, http.MethodDelete, "/api/balance", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/balance status %d, want 405", rec.Code)
	}
}

func TestMonthReportCacheInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t, "0", nil)

	rep := decode[report.MonthReport](t, f.do(t, http.MethodGet, "/api/reports/month", ""))
	if rep.Month != 4 || rep.Year != 2025 || !rep.Income.IsZero() {
		t.Fatalf("unexpected empty report %+v", rep)
	}

	f.do(t, http.MethodPost, "/api/transactions", `{"type":"income","amount":50000,"description":"Gajian"}`)

	rep = decode[report.MonthReport](t, f.do(t, http.MethodGet, "/api/reports/month?month=4&year=2025", ""))
	if !rep.Income.Equal(core.M(50000)) || !rep.TotalBalance.Equal(core.M(50000)) {
		t.Fatalf("stale report after write: %+v", rep)
	}

	monthly := decode[monthlyResponse](t, f.do(t, http.MethodGet, "/api/reports/monthly", ""))
	if len(monthly.Months) != 1 || monthly.Months[0].Label != "Mei" {
		t.Fatalf("unexpected monthly series %+v", monthly.Months)
	}
}

// racingLedger runs onExport once, right after the first snapshot is read.
type racingLedger struct {
	*ledger.Store
	once     sync.Once
	onExport func()
}

func (l *racingLedger) ExportSnapshot(ctx context.Context) (core.Snapshot, error) {
	snap, err := l.Store.ExportSnapshot(ctx)
	l.once.Do(l.onExport)
	return snap, err
}

func TestMonthReportNotCachedAcrossConcurrentWrite(t *testing.T) {
	f := newFixture(t, "100000", nil)
	racing := &racingLedger{Store: f.ledger}
	srv := NewServer(Options{
		Ledger:   racing,
		Settings: settings.New(f.kv, nil, log.Discard()),
		Reports:  cache.NewLRUCache[report.MonthReport](10, time.Minute),
		Logger:   log.Discard(),
		Now:      func() time.Time { return fixedNow },
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	get := func() report.MonthReport {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/month", nil))
		return decode[report.MonthReport](t, rec)
	}
	racing.onExport = func() {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions",
			strings.NewReader(`{"type":"expense","amount":30000,"description":"Bensin motor"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Errorf("concurrent write status %d: %s", rec.Code, rec.Body)
		}
	}

	if rep := get(); !rep.TotalBalance.Equal(core.M(100000)) {
		t.Fatalf("first report balance %s", rep.TotalBalance.Plain())
	}
	rep := get()
	if !rep.TotalBalance.Equal(core.M(70000)) || !rep.Expense.Equal(core.M(30000)) {
		t.Fatalf("report cached from before the write: balance %s expense %s",
			rep.TotalBalance.Plain(), rep.Expense.Plain())
	}
}

const importDoc = `{
  "balance": 120000,
  "transactions": [
    {"type":"income","amount":50000,"description":"Gajian","date":"2024-01-05","time":"09:00","timestamp":1704420000000},
    {"type":"expense","amount":1500,"description":"Parkir","date":"2025-05-02","time":"10:30","timestamp":1746156600000}
  ]
}`

func TestExportImport(t *testing.T) {
	f := newFixture(t, "0", nil)

	if rec := f.do(t, http.MethodGet, "/api/export", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("empty export status %d", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/api/import", `{"balance":0,"transactions":[{"type":"gift","amount":1,"description":"x","date":"2025-01-01","time":"10:00","timestamp":1}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed import status %d", rec.Code)
	}
	if e := decode[errorResponse](t, rec); e.Field != "type" || e.Index == nil || *e.Index != 0 {
		t.Fatalf("unexpected import error %+v", e)
	}

	if rec := f.do(t, http.MethodPost, "/api/import", importDoc); rec.Code != http.StatusOK {
		t.Fatalf("import status %d: %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodGet, "/api/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "expense-tracker-data-2025-05-17.json") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	snap, err := core.DecodeSnapshot(rec.Body)
	if err != nil {
		t.Fatalf("export is not importable: %v", err)
	}
	if !snap.Balance.Equal(core.M(120000)) || len(snap.Transactions) != 2 || snap.Transactions[1].Timestamp != 1746156600000 {
		t.Fatalf("round trip mismatch %+v", snap)
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	f := newFixture(t, "0", nil)
	f.do(t, http.MethodPost, "/api/import", importDoc)

	if rec := f.do(t, http.MethodPost, "/api/clear", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed clear status %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/clear?confirm=true", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear status %d", rec.Code)
	}
	snap, _ := f.ledger.ExportSnapshot(context.Background())
	if !snap.Balance.IsZero() || len(snap.Transactions) != 0 {
		t.Fatalf("ledger not cleared: %+v", snap)
	}
}

func TestPrune(t *testing.T) {
	f := newFixture(t, "0", nil)
	f.do(t, http.MethodPost, "/api/import", importDoc)

	if rec := f.do(t, http.MethodPost, "/api/prune?before=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad cutoff status %d", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/api/prune", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("prune status %d", rec.Code)
	}
	var got struct {
		Removed int    `json:"removed"`
		Cutoff  string `json:"cutoff"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Removed != 1 || got.Cutoff != "2024-05-17" {
		t.Fatalf("unexpected prune result %+v", got)
	}

	bal := decode[balanceResponse](t, f.do(t, http.MethodGet, "/api/balance", ""))
	if !bal.Balance.Equal(core.M(120000)) {
		t.Fatalf("prune must not touch the balance, got %s", bal.Balance.Plain())
	}
}

func TestSettingsEndpoints(t *testing.T) {
	f := newFixture(t, "0", nil)

	rec := f.do(t, http.MethodPut, "/api/settings", `{"dark_mode":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rec.Code, rec.Body)
	}
	if got := decode[settings.Settings](t, rec); !got.DarkMode {
		t.Fatalf("dark mode not applied: %+v", got)
	}

	rec = f.do(t, http.MethodPut, "/api/settings", `{"background":"https://example.com/a.png"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid background status %d", rec.Code)
	}

	got := decode[settings.Settings](t, f.do(t, http.MethodGet, "/api/settings", ""))
	if !got.DarkMode || got.Background != "" {
		t.Fatalf("unexpected settings %+v", got)
	}
}

func TestHealthReadyAndHeaders(t *testing.T) {
	f := newFixture(t, "0", pingerFunc(func(context.Context) error { return errors.New("database is locked") }))

	rec := f.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing middleware headers: %v", rec.Header())
	}

	rec = f.do(t, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status %d", rec.Code)
	}

	if rec := f.do(t, http.MethodGet, "/api/balance", ""); rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("api responses must not be cached")
	}
}

func TestPersistenceFailureIsInternalError(t *testing.T) {
	f := newFixture(t, "0", nil)
	f.kv.Close()

	rec := f.do(t, http.MethodGet, "/api/balance", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error != "internal error" {
		t.Fatalf("internal detail leaked: %q", got.Error)
	}
}
