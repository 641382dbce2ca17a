package jalali

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{"1403/02/10", Date{1403, 2, 10}, false},
		{"1403-2-10", Date{1403, 2, 10}, false},
		{"۱۴۰۳/۰۲/۱۰", Date{1403, 2, 10}, false},
		{" 1402/12/29 ", Date{1402, 12, 29}, false},
		{"1403/07/31", Date{}, true},
		{"1403/13/01", Date{}, true},
		{"1403/02", Date{}, true},
		{"abc", Date{}, true},
		{"", Date{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGregorianRoundTrip(t *testing.T) {
	// Nowruz 1403 fell on 20 March 2024.
	d := MustParse("1403/01/01")
	g := d.Gregorian()
	assert.Equal(t, 2024, g.Year())
	assert.Equal(t, time.March, g.Month())
	assert.Equal(t, 20, g.Day())
	assert.Equal(t, d, FromGregorian(g))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 5, DaysBetween(MustParse("1403/02/10"), MustParse("1403/02/15")))
	assert.Equal(t, -5, DaysBetween(MustParse("1403/02/15"), MustParse("1403/02/10")))
	assert.Equal(t, 0, DaysBetween(MustParse("1403/02/15"), MustParse("1403/02/15")))
	// across a month boundary: Ordibehesht has 31 days
	assert.Equal(t, 2, DaysBetween(MustParse("1403/02/31"), MustParse("1403/03/02")))
}

func TestTodayIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("IRST", tehranOffset)
	day := MustParse("1403/02/15")
	morning := day.Time(loc).Add(1 * time.Minute)
	night := day.Time(loc).Add(23*time.Hour + 59*time.Minute)
	assert.Equal(t, day, Today(morning, loc))
	assert.Equal(t, day, Today(night, loc))
	// the same instant seen from UTC is still the previous evening for the first minutes
	assert.Equal(t, MustParse("1403/02/14"), Today(morning, time.UTC))
}

func TestAddMonths(t *testing.T) {
	assert.Equal(t, MustParse("1403/07/30"), MustParse("1403/06/31").AddMonths(1))
	assert.Equal(t, MustParse("1404/01/15"), MustParse("1403/12/15").AddMonths(1))
	assert.Equal(t, MustParse("1404/02/10"), MustParse("1403/02/10").AddYears(1))
}

func TestMonthLength(t *testing.T) {
	assert.Equal(t, 31, MonthLength(1403, 1))
	assert.Equal(t, 30, MonthLength(1403, 7))
	assert.Equal(t, 30, MonthLength(1403, 12))
	assert.Equal(t, 29, MonthLength(1404, 12))
}

func TestCompare(t *testing.T) {
	a, b := MustParse("1402/12/29"), MustParse("1403/01/01")
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestTextMarshalling(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("1403/2/5")))
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1403/02/05", string(b))

	require.NoError(t, d.UnmarshalText([]byte("")))
	assert.True(t, d.IsZero())
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "1403/02/10", ToLatinDigits("۱۴۰۳/۰۲/۱۰"))
	assert.Equal(t, "۱۲۳", ToPersianDigits("123"))
}
