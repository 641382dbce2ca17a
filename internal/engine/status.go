package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/bimerz/portal-service/internal/jalali"
)

// Status is the effective, derived payment state of an installment.
type Status int

const (
	StatusUnknown Status = iota
	StatusPaid
	StatusOverdue
	StatusUpcoming
)

// Labels as stored by the backend and shown in the dashboards.
const (
	LabelPaid     = "پرداخت شده"
	LabelOverdue  = "معوق"
	LabelUpcoming = "آینده"
	LabelUnknown  = "نامشخص"
)

func (s Status) Label() string {
	switch s {
	case StatusPaid:
		return LabelPaid
	case StatusOverdue:
		return LabelOverdue
	case StatusUpcoming:
		return LabelUpcoming
	}
	return LabelUnknown
}

func (s Status) String() string {
	switch s {
	case StatusPaid:
		return "paid"
	case StatusOverdue:
		return "overdue"
	case StatusUpcoming:
		return "upcoming"
	}
	return "unknown"
}

// ParseStatus accepts both the Persian label and the English name.
func ParseStatus(v string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case LabelPaid, "paid":
		return StatusPaid, true
	case LabelOverdue, "overdue":
		return StatusOverdue, true
	case LabelUpcoming, "upcoming":
		return StatusUpcoming, true
	case LabelUnknown, "unknown":
		return StatusUnknown, true
	}
	return StatusUnknown, false
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.Label()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, ok := ParseStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown installment status %q", string(b))
	}
	*s = v
	return nil
}

// IsPaid reports whether a stored status string is the paid sentinel.
func IsPaid(stored string) bool {
	s, ok := ParseStatus(stored)
	return ok && s == StatusPaid
}

// Derivation is the outcome of deriving an installment's status.
// DaysOverdue is zero unless Status is StatusOverdue.
type Derivation struct {
	Status      Status
	DaysOverdue int
}

// ParseError reports a due date that could not be read. Callers surface the
// record as StatusUnknown.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Derive classifies an installment against the Jalaali day of now in loc.
// A due date equal to today is still upcoming.
func Derive(due jalali.Date, stored string, now time.Time, loc *time.Location) Derivation {
	if IsPaid(stored) {
		return Derivation{Status: StatusPaid}
	}
	today := jalali.Today(now, loc)
	if due.Before(today) {
		return Derivation{Status: StatusOverdue, DaysOverdue: jalali.DaysBetween(due, today)}
	}
	return Derivation{Status: StatusUpcoming}
}

// DeriveRaw is Derive for a due date still in its display form. A paid
// installment never needs its date, so it derives even when the date is bad.
func DeriveRaw(dueRaw, stored string, now time.Time, loc *time.Location) (Derivation, error) {
	if IsPaid(stored) {
		return Derivation{Status: StatusPaid}, nil
	}
	due, err := jalali.Parse(dueRaw)
	if err != nil {
		return Derivation{Status: StatusUnknown}, &ParseError{Field: "due_date", Value: dueRaw, Err: err}
	}
	return Derive(due, stored, now, loc), nil
}

// Policy status labels.
const (
	PolicyActive     = "فعال"
	PolicyNearExpiry = "نزدیک انقضا"
	PolicyExpired    = "منقضی"
)

// DerivePolicyStatus recomputes the date-driven policy states. Statuses
// outside active/near-expiry/expired (for example "غیرفعال") are kept as stored,
// as is any status when the end date is unknown.
func DerivePolicyStatus(end jalali.Date, stored string, now time.Time, loc *time.Location, window int) string {
	switch stored {
	case PolicyActive, PolicyNearExpiry, PolicyExpired, "":
	default:
		return stored
	}
	if end.IsZero() {
		if stored == "" {
			return PolicyActive
		}
		return stored
	}
	today := jalali.Today(now, loc)
	left := jalali.DaysBetween(today, end)
	switch {
	case left < 0:
		return PolicyExpired
	case left <= window:
		return PolicyNearExpiry
	}
	return PolicyActive
}
