package engine

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Mode names one comparator variant of a sortable column.
type Mode string

const (
	Ascending  Mode = "asc"
	Descending Mode = "desc"

	OverdueFirst  Mode = "overdue-first"
	UpcomingFirst Mode = "upcoming-first"
	PaidFirst     Mode = "paid-first"
)

var (
	ErrUnknownColumn = errors.New("unknown sort column")
	ErrUnknownMode   = errors.New("unknown sort mode")
)

// Column is a sortable column: an ordered cycle of named modes and a
// comparator for each of them. The first mode is the one a fresh activation selects.
type Column[T any] struct {
	Key     string
	Modes   []Mode
	compare func(m Mode, a, b T) int
}

// NextMode is the mode that follows current in the cycle. Unknown modes restart it.
func (c Column[T]) NextMode(current Mode) Mode {
	for i, m := range c.Modes {
		if m == current {
			return c.Modes[(i+1)%len(c.Modes)]
		}
	}
	return c.Modes[0]
}

func (c Column[T]) HasMode(m Mode) bool {
	for _, v := range c.Modes {
		if v == m {
			return true
		}
	}
	return false
}

// Comparator returns the ordering for mode m.
func (c Column[T]) Comparator(m Mode) func(a, b T) int {
	if !c.HasMode(m) {
		m = c.Modes[0]
	}
	return func(a, b T) int { return c.compare(m, a, b) }
}

// Directional builds a two-mode column over a natural ordering. When
// descendingFirst is set, the first activation sorts large values first.
func Directional[T any](key string, natural func(a, b T) int, descendingFirst bool) Column[T] {
	modes := []Mode{Ascending, Descending}
	if descendingFirst {
		modes = []Mode{Descending, Ascending}
	}
	return Column[T]{
		Key:   key,
		Modes: modes,
		compare: func(m Mode, a, b T) int {
			if m == Descending {
				return -natural(a, b)
			}
			return natural(a, b)
		},
	}
}

// Priority builds a categorical column where every mode is an explicit
// ranking of values. Values missing from a ranking sort after the listed
// ones, in the order given by fallback.
func Priority[T any](key string, value func(T) string, modes []Mode, rankings map[Mode][]string, fallback []string) Column[T] {
	rank := func(list []string, v string) int {
		for i, x := range list {
			if x == v {
				return i
			}
		}
		for i, x := range fallback {
			if x == v {
				return len(list) + i
			}
		}
		return len(list) + len(fallback)
	}
	return Column[T]{
		Key:   key,
		Modes: modes,
		compare: func(m Mode, a, b T) int {
			list := rankings[m]
			return rank(list, value(a)) - rank(list, value(b))
		},
	}
}

// SortState is the UI-owned sort selection: the active column and the
// current mode of every column that has been activated. It is a value; every
// transition returns a new state.
type SortState struct {
	Active string
	Modes  map[string]Mode
}

// Mode returns the current mode of column key, or "" when never activated.
func (s SortState) Mode(key string) Mode {
	return s.Modes[key]
}

// Activate applies one click on column c: the active column advances to its
// next mode, any other column becomes active in its first mode.
func Activate[T any](s SortState, c Column[T]) SortState {
	next := SortState{Active: c.Key, Modes: maps.Clone(s.Modes)}
	if next.Modes == nil {
		next.Modes = map[string]Mode{}
	}
	if s.Active == c.Key {
		next.Modes[c.Key] = c.NextMode(s.Modes[c.Key])
	} else {
		next.Modes[c.Key] = c.Modes[0]
	}
	return next
}

// Cycle applies n activations of c in a row.
func Cycle[T any](s SortState, c Column[T], n int) SortState {
	for range n {
		s = Activate(s, c)
	}
	return s
}

// Select sets column c active in mode m directly, as when the state arrives
// from a query string.
func Select[T any](s SortState, c Column[T], m Mode) (SortState, error) {
	if m == "" {
		m = c.Modes[0]
	}
	if !c.HasMode(m) {
		return s, fmt.Errorf("%w %q for column %q", ErrUnknownMode, m, c.Key)
	}
	next := SortState{Active: c.Key, Modes: maps.Clone(s.Modes)}
	if next.Modes == nil {
		next.Modes = map[string]Mode{}
	}
	next.Modes[c.Key] = m
	return next, nil
}

// DateOrder is the global due-date ordering that takes precedence over the column sort.
type DateOrder string

const (
	DateNone   DateOrder = "none"
	DateNewest DateOrder = "newest"
	DateOldest DateOrder = "oldest"
)

func ParseDateOrder(v string) (DateOrder, error) {
	switch DateOrder(strings.ToLower(strings.TrimSpace(v))) {
	case "", DateNone:
		return DateNone, nil
	case DateNewest:
		return DateNewest, nil
	case DateOldest:
		return DateOldest, nil
	}
	return DateNone, fmt.Errorf("unknown date order %q", v)
}
