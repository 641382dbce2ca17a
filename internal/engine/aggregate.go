package engine

import (
	"time"

	"github.com/bimerz/portal-service/internal/jalali"
)

// CountStatus counts rows whose derived status is s.
func CountStatus(rows []Installment, s Status) int {
	n := 0
	for _, r := range rows {
		if r.Status == s {
			n++
		}
	}
	return n
}

// CountDueWithin counts upcoming installments due in the next window days,
// today included.
func CountDueWithin(rows []Installment, now time.Time, loc *time.Location, window int) int {
	today := jalali.Today(now, loc)
	n := 0
	for _, r := range rows {
		if r.Status != StatusUpcoming || !r.DueOK {
			continue
		}
		if jalali.DaysBetween(today, r.DueDate) <= window {
			n++
		}
	}
	return n
}

// CountPolicyStatus counts policies in the given display status.
func CountPolicyStatus(rows []Policy, status string) int {
	n := 0
	for _, p := range rows {
		if p.Status == status {
			n++
		}
	}
	return n
}
