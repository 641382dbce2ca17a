// Package engine derives installment and policy display status and provides
// the filter and sort machinery behind every dashboard table.
//
// Everything here is pure: functions take the already-fetched records, the
// reference time and the UI-owned sort state, and return new values. Nothing
// is cached and nothing performs I/O, so callers may re-run a view on every
// request or render.
//
// Sorting is two-tier. A DateOrder other than DateNone orders rows by due
// date first; the active column of a SortState breaks ties; rows that still
// tie keep their input order.
package engine
