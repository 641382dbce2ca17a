package engine

import (
	"fmt"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bimerz/portal-service/internal/jalali"
)

// Table is the set of sortable columns for one record type, plus the
// accessor used by the global date ordering.
type Table[T any] struct {
	columns map[string]Column[T]
	keys    []string
	date    func(T) (jalali.Date, bool)
}

func NewTable[T any](date func(T) (jalali.Date, bool), cols ...Column[T]) *Table[T] {
	t := &Table[T]{columns: make(map[string]Column[T], len(cols)), date: date}
	for _, c := range cols {
		t.columns[c.Key] = c
		t.keys = append(t.keys, c.Key)
	}
	return t
}

func (t *Table[T]) Column(key string) (Column[T], bool) {
	c, ok := t.columns[key]
	return c, ok
}

// Keys lists the sortable columns in declaration order.
func (t *Table[T]) Keys() []string { return slices.Clone(t.keys) }

// Activate is the package-level Activate resolved by column name.
func (t *Table[T]) Activate(s SortState, key string) (SortState, error) {
	c, ok := t.columns[key]
	if !ok {
		return s, fmt.Errorf("%w %q", ErrUnknownColumn, key)
	}
	return Activate(s, c), nil
}

// Select is the package-level Select resolved by column name.
func (t *Table[T]) Select(s SortState, key string, m Mode) (SortState, error) {
	c, ok := t.columns[key]
	if !ok {
		return s, fmt.Errorf("%w %q", ErrUnknownColumn, key)
	}
	return Select(s, c, m)
}

// Comparator combines the date ordering (primary) with the active column
// (tiebreaker). It returns nil when neither is in effect.
func (t *Table[T]) Comparator(s SortState, order DateOrder) func(a, b T) int {
	var column func(a, b T) int
	if c, ok := t.columns[s.Active]; ok {
		column = c.Comparator(s.Mode(c.Key))
	}
	byDate := t.dateComparator(order)
	switch {
	case byDate == nil:
		return column
	case column == nil:
		return byDate
	}
	return func(a, b T) int {
		if r := byDate(a, b); r != 0 {
			return r
		}
		return column(a, b)
	}
}

// Sort returns a sorted copy of rows. The input is not modified and full ties
// keep their input order.
func (t *Table[T]) Sort(rows []T, s SortState, order DateOrder) []T {
	out := slices.Clone(rows)
	if cmp := t.Comparator(s, order); cmp != nil {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

// Records without a usable date go last in either direction.
func (t *Table[T]) dateComparator(order DateOrder) func(a, b T) int {
	if t.date == nil || (order != DateNewest && order != DateOldest) {
		return nil
	}
	return func(a, b T) int {
		da, oka := t.date(a)
		db, okb := t.date(b)
		switch {
		case !oka && !okb:
			return 0
		case !oka:
			return 1
		case !okb:
			return -1
		}
		if order == DateNewest {
			return db.Compare(da)
		}
		return da.Compare(db)
	}
}

// Paginate returns the 1-based page of rows and the total page count.
func Paginate[T any](rows []T, page, size int) ([]T, int) {
	if size <= 0 {
		return rows, 1
	}
	pages := (len(rows) + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return []T{}, pages
	}
	end := min(start+size, len(rows))
	return rows[start:end], pages
}

var collators = sync.Pool{New: func() any { return collate.New(language.Persian) }}

// CompareText orders strings the way a Persian reader expects.
func CompareText(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(a, b)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareDate puts missing dates after present ones in the natural order.
func compareDate(a, b jalali.Date) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}
