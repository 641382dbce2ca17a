package engine

// View is one request for a table: which column/mode to sort by, the global
// date order and the page window. The zero View keeps input order and
// returns everything.
type View struct {
	Sort string
	Mode Mode
	Date DateOrder
	Page int
	Size int
}

// Page is a filtered, sorted window of rows.
type Page[T any] struct {
	Items []T       `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Pages int       `json:"pages"`
	Sort  string    `json:"sort,omitempty"`
	Mode  Mode      `json:"mode,omitempty"`
	Date  DateOrder `json:"date"`
}

// Apply runs filter, then sort, then paginate. An unknown column or mode is an error.
func Apply[T any](t *Table[T], rows []T, p Predicate[T], v View) (Page[T], error) {
	var s SortState
	if v.Sort != "" {
		var err error
		if s, err = t.Select(s, v.Sort, v.Mode); err != nil {
			return Page[T]{}, err
		}
	}
	return ApplyState(t, rows, p, s, v.Date, v.Page, v.Size), nil
}

// ApplyState is Apply for a caller that already holds a SortState, such as
// one built up by repeated Activate calls.
func ApplyState[T any](t *Table[T], rows []T, p Predicate[T], s SortState, date DateOrder, page, size int) Page[T] {
	filtered := Filter(rows, p)
	if date == "" {
		date = DateNone
	}
	page = max(page, 1)
	items, pages := Paginate(t.Sort(filtered, s, date), page, size)
	return Page[T]{
		Items: items,
		Total: len(filtered),
		Page:  page,
		Pages: pages,
		Sort:  s.Active,
		Mode:  s.Mode(s.Active),
		Date:  date,
	}
}
