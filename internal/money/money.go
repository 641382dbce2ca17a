// Package money parses and formats amounts in Rials. Amounts are whole,
// non-negative numbers of the smallest currency unit.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bimerz/portal-service/internal/jalali"
)

var ErrInvalidAmount = errors.New("invalid amount")

var maxAmount = decimal.NewFromInt(math.MaxInt64)

var stripper = strings.NewReplacer(
	",", "", "٬", "", "،", "", "_", "", " ", "",
	"ریال", "", "تومان", "", "IRR", "", "irr", "",
)

// Parse accepts user-formatted amounts such as "1,500,000", "۱٬۵۰۰٬۰۰۰ ریال"
// or "1500000.00". Fractions are truncated.
func Parse(s string) (int64, error) {
	clean := stripper.Replace(jalali.ToLatinDigits(strings.TrimSpace(s)))
	if clean == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.ContainsAny(clean, "eE") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative %q", ErrInvalidAmount, s)
	}
	d = d.Truncate(0)
	if d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: too large %q", ErrInvalidAmount, s)
	}
	return d.IntPart(), nil
}

// Split divides total into n parts; the rounding remainder goes to the last part.
func Split(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	parts := make([]int64, n)
	share := decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(n))).Floor().IntPart()
	for i := range parts {
		parts[i] = share
	}
	parts[n-1] += total - share*int64(n)
	return parts
}

// Group renders v with thousands separators.
func Group(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Format is Group plus the currency name.
func Format(v int64) string { return Group(v) + " ریال" }
