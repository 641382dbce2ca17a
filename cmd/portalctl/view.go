package main

import (
	"time"

	"github.com/bimerz/portal-service/internal/engine"
)

// listOptions is what the user asked for on the command line. Sorts holds
// one entry per --sort flag; repeating a column cycles its mode the way
// repeated clicks on a header do.
type listOptions struct {
	Sorts []string
	Date  engine.DateOrder
	Page  int
	Size  int
}

func sortState[T any](t *engine.Table[T], sorts []string) (engine.SortState, error) {
	var s engine.SortState
	for _, key := range sorts {
		var err error
		if s, err = t.Activate(s, key); err != nil {
			return s, err
		}
	}
	return s, nil
}

func window[T any](t *engine.Table[T], rows []T, p engine.Predicate[T], o listOptions) (engine.Page[T], error) {
	s, err := sortState(t, o.Sorts)
	if err != nil {
		return engine.Page[T]{}, err
	}
	return engine.ApplyState(t, rows, p, s, o.Date, o.Page, o.Size), nil
}

// installmentPage re-derives every status against the local clock before
// filtering, so a row fetched yesterday as upcoming can show as overdue today.
func installmentPage(rows []engine.Installment, c engine.InstallmentCriteria, o listOptions, now time.Time, loc *time.Location) (engine.Page[engine.Installment], error) {
	fresh := make([]engine.Installment, len(rows))
	for i, r := range rows {
		fresh[i] = r.Rederive(now, loc)
	}
	return window(engine.InstallmentTable, fresh, c.Predicate(), o)
}

func policyPage(rows []engine.Policy, c engine.PolicyCriteria, o listOptions, now time.Time, loc *time.Location, nearExpiryDays int) (engine.Page[engine.Policy], error) {
	fresh := make([]engine.Policy, len(rows))
	for i, r := range rows {
		r.Status = engine.DerivePolicyStatus(r.EndDate, r.Status, now, loc, nearExpiryDays)
		fresh[i] = r
	}
	return window(engine.PolicyTable, fresh, c.Predicate(), o)
}
