// Package httpx has the small request/response helpers shared by the handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/validate"
)

const maxBody = 1 << 20

var ErrBadID = errors.New("invalid id")

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteValidation writes a 400 with the failing fields when err is a
// validation error, and reports whether it did.
func WriteValidation(w http.ResponseWriter, err error) bool {
	var ve *validate.Error
	if !errors.As(err, &ve) {
		return false
	}
	WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": ve.Fields})
	return true
}

func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// PathID reads a positive integer path value.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadID
	}
	return id, nil
}

// ParseView reads sort, mode, date, page and size from a query string.
func ParseView(q url.Values) (engine.View, error) {
	v := engine.View{Sort: q.Get("sort"), Mode: engine.Mode(q.Get("mode"))}
	date, err := engine.ParseDateOrder(q.Get("date"))
	if err != nil {
		return v, err
	}
	v.Date = date
	if v.Page, err = intParam(q, "page", 1); err != nil {
		return v, err
	}
	if v.Size, err = intParam(q, "size", 20); err != nil {
		return v, err
	}
	return v, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// OptionalInt64 parses an optional amount filter; empty means no bound.
func OptionalInt64(raw string, parse func(string) (int64, error)) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
