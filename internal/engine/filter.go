package engine

import (
	"strings"

	"golang.org/x/text/cases"
)

// Predicate decides whether a record stays in the view.
type Predicate[T any] func(T) bool

// All is the conjunction of ps. Nil predicates are skipped; no predicates keeps everything.
func All[T any](ps ...Predicate[T]) Predicate[T] {
	active := make([]Predicate[T], 0, len(ps))
	for _, p := range ps {
		if p != nil {
			active = append(active, p)
		}
	}
	return func(v T) bool {
		for _, p := range active {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Filter returns the records that satisfy p, in input order.
func Filter[T any](rows []T, p Predicate[T]) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if p == nil || p(r) {
			out = append(out, r)
		}
	}
	return out
}

// IsAll reports the "no constraint" selector: empty or the literal "all".
func IsAll(selector string) bool {
	s := strings.TrimSpace(selector)
	return s == "" || strings.EqualFold(s, "all")
}

// TextMatch keeps records where any of the fields contains query, ignoring case.
func TextMatch[T any](query string, fields ...func(T) string) Predicate[T] {
	if IsAll(query) {
		return nil
	}
	folder := cases.Fold()
	q := folder.String(strings.TrimSpace(query))
	return func(v T) bool {
		for _, f := range fields {
			if strings.Contains(folder.String(f(v)), q) {
				return true
			}
		}
		return false
	}
}

// Equals keeps records whose field equals selected exactly.
func Equals[T any](selected string, field func(T) string) Predicate[T] {
	if IsAll(selected) {
		return nil
	}
	return func(v T) bool { return field(v) == selected }
}

// Range keeps records whose numeric field lies in [lo, hi]; nil bounds are
// open. Records whose value could not be read fail an active range.
func Range[T any](lo, hi *int64, field func(T) (int64, bool)) Predicate[T] {
	if lo == nil && hi == nil {
		return nil
	}
	return func(v T) bool {
		n, ok := field(v)
		if !ok {
			return false
		}
		if lo != nil && n < *lo {
			return false
		}
		if hi != nil && n > *hi {
			return false
		}
		return true
	}
}
