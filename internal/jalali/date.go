// Package jalali handles Solar Hijri calendar dates. All dates shown to and
// entered by users are Jalaali and are stored as YYYY/MM/DD text; arithmetic
// and "today" go through the Gregorian calendar here.
package jalali

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// Date is a calendar day in the Jalaali calendar. The zero value means "no date".
type Date struct {
	Year  int
	Month int
	Day   int
}

var ErrInvalidDate = errors.New("invalid jalali date")

const tehranOffset = 3*3600 + 1800

// LoadLocation returns the named location, falling back to a fixed +03:30
// zone when the tz database is not available.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = "Asia/Tehran"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IRST", tehranOffset)
	}
	return loc
}

// New builds a Date and validates it against the calendar (month lengths, leap Esfand).
func New(year, month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if !d.Valid() {
		return Date{}, fmt.Errorf("%w: %s", ErrInvalidDate, d.String())
	}
	return d, nil
}

// MustParse is Parse for literals in tests and seed data.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse reads YYYY/MM/DD (or with '-' separators). Persian and Arabic-Indic
// digits are accepted.
func Parse(s string) (Date, error) {
	raw := strings.TrimSpace(ToLatinDigits(s))
	if raw == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	return New(nums[0], nums[1], nums[2])
}

// FromTime converts t (in its own location) to the Jalaali day it falls on.
func FromTime(t time.Time) Date {
	p := ptime.New(t)
	return Date{Year: p.Year(), Month: int(p.Month()), Day: p.Day()}
}

// Today is the Jalaali date of now as observed in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = LoadLocation("")
	}
	return FromTime(now.In(loc))
}

// FromGregorian maps a DATE column value (year/month/day only) to Jalaali.
// A zero time maps to the zero Date.
func FromGregorian(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return FromTime(time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC))
}

func (d Date) IsZero() bool { return d == Date{} }

// Valid reports whether d names a real day. The check round-trips through the
// Gregorian calendar so leap years come from the conversion library.
func (d Date) Valid() bool {
	if d.Year < 1 || d.Year > 3000 || d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return false
	}
	if d.Month > 6 && d.Day > 30 {
		return false
	}
	return FromTime(d.gregorianNoon()) == d
}

func (d Date) gregorianNoon() time.Time {
	return ptime.Date(d.Year, ptime.Month(d.Month), d.Day, 12, 0, 0, 0, time.UTC).Time()
}

// Gregorian returns the Gregorian calendar day as midnight UTC, suitable for DATE columns.
func (d Date) Gregorian() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	g := d.gregorianNoon()
	return time.Date(g.Year(), g.Month(), g.Day(), 0, 0, 0, 0, time.UTC)
}

// Time returns the start of the day in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = LoadLocation("")
	}
	g := d.gregorianNoon()
	return time.Date(g.Year(), g.Month(), g.Day(), 0, 0, 0, 0, loc)
}

// Compare returns -1, 0 or +1. Jalaali tuples order the same way as the days they name.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(d.Month - o.Month)
	default:
		return sign(d.Day - o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// DaysBetween is the whole number of calendar days from a to b (negative if b is earlier).
// Time of day plays no part.
func DaysBetween(a, b Date) int {
	return int(b.Gregorian().Sub(a.Gregorian()).Hours() / 24)
}

// AddDays moves d by n calendar days.
func (d Date) AddDays(n int) Date {
	return FromGregorian(d.Gregorian().AddDate(0, 0, n))
}

// AddMonths moves d by n Jalaali months, clamping the day to the target month length.
func (d Date) AddMonths(n int) Date {
	idx := d.Year*12 + (d.Month - 1) + n
	y, m := idx/12, idx%12+1
	day := d.Day
	if l := MonthLength(y, m); day > l {
		day = l
	}
	return Date{Year: y, Month: m, Day: day}
}

func (d Date) AddYears(n int) Date { return d.AddMonths(12 * n) }

// MonthLength returns the number of days of month m in year y.
func MonthLength(y, m int) int {
	switch {
	case m <= 6:
		return 31
	case m <= 11:
		return 30
	case IsLeap(y):
		return 30
	default:
		return 29
	}
}

// IsLeap reports whether Esfand of year y has 30 days.
func IsLeap(y int) bool {
	return FromTime(ptime.Date(y, ptime.Esfand, 30, 12, 0, 0, 0, time.UTC).Time()) == Date{Year: y, Month: 12, Day: 30}
}

// MonthDay is used for birthday matching.
func (d Date) MonthDay() (int, int) { return d.Month, d.Day }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Date{}
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
