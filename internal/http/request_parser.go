package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dompet/internal/core"
)

var (
	errNotANumber   = errors.New("must be an integer")
	errOutOfRange   = errors.New("out of range")
	errTrailingData = errors.New("unexpected data after JSON body")
)

// parseMonthParams reads the 0-based month and the year from the query,
// defaulting to the month containing now.
func parseMonthParams(q url.Values, now time.Time) (month, year int, err error) {
	month = int(now.Month()) - 1
	year = now.Year()

	if month, err = intParam(q, "month", month); err != nil {
		return 0, 0, err
	}
	if month < 0 || month > 11 {
		return 0, 0, badRequest("month", errOutOfRange)
	}
	if year, err = intParam(q, "year", year); err != nil {
		return 0, 0, err
	}
	if year < 1 || year > 9999 {
		return 0, 0, badRequest("year", errOutOfRange)
	}
	return month, year, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest(name, errNotANumber)
	}
	return n, nil
}

// countParam is intParam for counts: an explicit value below 1 is rejected
// rather than replaced by def.
func countParam(q url.Values, name string, def int) (int, error) {
	n, err := intParam(q, name, def)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, badRequest(name, errOutOfRange)
	}
	return n, nil
}

// decodeJSONBody decodes exactly one JSON value into dst, rejecting unknown
// fields and bodies over maxBodyBytes.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mb *http.MaxBytesError
		if errors.As(err, &mb) {
			return err
		}
		return badRequest("body", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return badRequest("body", errTrailingData)
	}
	return nil
}

// parseTimestamp reads the {timestamp} path value.
func parseTimestamp(r *http.Request) (int64, error) {
	ts, err := strconv.ParseInt(r.PathValue("timestamp"), 10, 64)
	if err != nil || ts <= 0 {
		return 0, badRequest("timestamp", errNotANumber)
	}
	return ts, nil
}

// parseOccurredAt turns optional date and clock strings into an instant in
// loc. Both empty means the zero time (now, for the ledger); a date without
// a clock takes now's clock.
func parseOccurredAt(date, clock string, now time.Time, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" && clock == "" {
		return time.Time{}, nil
	}

	d := core.DateOf(now, loc)
	if date != "" {
		parsed, err := core.ParseDate(date)
		if err != nil {
			return time.Time{}, &core.ValidationError{Field: "date", Err: err}
		}
		d = parsed
	}

	if clock == "" {
		clock = core.ClockOf(now, loc)
	}
	hm, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: "time", Err: core.ErrInvalidClock}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
}

// rawAmount accepts an amount as a JSON number or a numeric string.
func rawAmount(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}
