package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimerz/portal-service/internal/jalali"
)

var tehran = time.FixedZone("IRST", 3*3600+1800)

// at returns 10:30 local time on the given Jalaali day.
func at(day string) time.Time {
	return jalali.MustParse(day).Time(tehran).Add(10*time.Hour + 30*time.Minute)
}

func TestDeriveOverdue(t *testing.T) {
	d := Derive(jalali.MustParse("1403/02/10"), "unset", at("1403/02/15"), tehran)
	assert.Equal(t, StatusOverdue, d.Status)
	assert.Equal(t, 5, d.DaysOverdue)
}

func TestDeriveUpcoming(t *testing.T) {
	d := Derive(jalali.MustParse("1403/02/20"), "", at("1403/02/15"), tehran)
	assert.Equal(t, StatusUpcoming, d.Status)
	assert.Equal(t, 0, d.DaysOverdue)
}

func TestDeriveDueTodayIsUpcoming(t *testing.T) {
	late := jalali.MustParse("1403/02/15").Time(tehran).Add(23*time.Hour + 59*time.Minute)
	d := Derive(jalali.MustParse("1403/02/15"), "", late, tehran)
	assert.Equal(t, StatusUpcoming, d.Status)
	assert.Zero(t, d.DaysOverdue)
}

func TestDerivePaidWins(t *testing.T) {
	d := Derive(jalali.MustParse("1400/01/01"), LabelPaid, at("1403/02/15"), tehran)
	assert.Equal(t, Derivation{Status: StatusPaid}, d)

	d = Derive(jalali.MustParse("1400/01/01"), "paid", at("1403/02/15"), tehran)
	assert.Equal(t, StatusPaid, d.Status)
}

func TestDeriveStoredOverdueIsRecomputed(t *testing.T) {
	// a stale "overdue" label on a future installment is not trusted
	d := Derive(jalali.MustParse("1403/03/01"), LabelOverdue, at("1403/02/15"), tehran)
	assert.Equal(t, StatusUpcoming, d.Status)
}

func TestDeriveOverdueDaysMatchCalendar(t *testing.T) {
	now := at("1403/02/15")
	for _, due := range []string{"1403/02/14", "1403/01/15", "1402/12/29", "1402/02/15"} {
		d := Derive(jalali.MustParse(due), "", now, tehran)
		require.Equal(t, StatusOverdue, d.Status, due)
		assert.Equal(t, jalali.DaysBetween(jalali.MustParse(due), jalali.MustParse("1403/02/15")), d.DaysOverdue, due)
		assert.Positive(t, d.DaysOverdue, due)
	}
}

func TestDeriveRaw(t *testing.T) {
	d, err := DeriveRaw("۱۴۰۳/۰۲/۱۰", "", at("1403/02/15"), tehran)
	require.NoError(t, err)
	assert.Equal(t, Derivation{Status: StatusOverdue, DaysOverdue: 5}, d)

	d, err = DeriveRaw("not a date", "", at("1403/02/15"), tehran)
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "due_date", pe.Field)
	assert.ErrorIs(t, err, jalali.ErrInvalidDate)
	assert.Equal(t, StatusUnknown, d.Status)

	d, err = DeriveRaw("", LabelPaid, at("1403/02/15"), tehran)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, d.Status)
}

func TestStatusText(t *testing.T) {
	for _, s := range []Status{StatusPaid, StatusOverdue, StatusUpcoming, StatusUnknown} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var back Status
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}
	var s Status
	assert.Error(t, s.UnmarshalText([]byte("later")))
}

func TestDerivePolicyStatus(t *testing.T) {
	now := at("1403/02/15")
	cases := []struct {
		end, stored, want string
	}{
		{"1403/02/14", PolicyActive, PolicyExpired},
		{"1403/02/15", PolicyActive, PolicyNearExpiry},
		{"1403/03/10", PolicyActive, PolicyNearExpiry},
		{"1404/02/15", PolicyNearExpiry, PolicyActive},
		{"1404/02/15", "", PolicyActive},
		{"1402/01/01", "غیرفعال", "غیرفعال"},
	}
	for _, c := range cases {
		got := DerivePolicyStatus(jalali.MustParse(c.end), c.stored, now, tehran, 30)
		assert.Equal(t, c.want, got, c.end)
	}
	assert.Equal(t, PolicyNearExpiry, DerivePolicyStatus(jalali.Date{}, PolicyNearExpiry, now, tehran, 30))
}
