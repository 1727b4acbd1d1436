// Package money implements fixed-point amounts and percentages.
//
// Amounts are integer cents and render with exactly two fraction digits.
// Percentages are integer basis points (2500 = 25.00%).
package money

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	centsExp       = 2
	basisPointsExp = 4

	// Accepted exponent range of a parsed amount. Anything outside cannot
	// fit int64 cents or carries more fraction digits than any caller sends.
	maxExponent = 18
	minExponent = -32

	// BasisPointsOne is 100.00% expressed in basis points.
	BasisPointsOne BasisPoints = 10_000
)

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// Cents is a monetary amount in hundredths of the currency unit.
type Cents int64

// BasisPoints is a percentage in hundredths of a percent.
type BasisPoints int64

// ParseMoney parses a decimal string into cents. Up to 32 fraction digits are
// accepted as long as the value is an exact number of cents.
func ParseMoney(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if exp := d.Exponent(); exp > maxExponent || exp < minExponent {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	scaled := d.Shift(centsExp)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q has sub-cent precision", ErrInvalidAmount, s)
	}
	if scaled.GreaterThan(maxCents) || scaled.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return Cents(scaled.IntPart()), nil
}

// MustParse is ParseMoney for constants; it panics on error.
func MustParse(s string) Cents {
	c, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FormatMoney renders cents with exactly two fraction digits.
func FormatMoney(c Cents) string {
	return c.Decimal().StringFixed(centsExp)
}

// Decimal returns the amount in currency units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -centsExp)
}

func (c Cents) String() string { return FormatMoney(c) }

// MarshalText renders the amount as a 2-decimal string.
func (c Cents) MarshalText() ([]byte, error) {
	return []byte(FormatMoney(c)), nil
}

// UnmarshalText accepts any exact decimal string.
func (c *Cents) UnmarshalText(b []byte) error {
	v, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Decimal returns the percentage as a plain number (2500 -> 25).
func (b BasisPoints) Decimal() decimal.Decimal {
	return decimal.New(int64(b), -centsExp)
}

// String renders the percentage with two fraction digits ("25.00").
func (b BasisPoints) String() string {
	return b.Decimal().StringFixed(centsExp)
}

// MarshalText renders the percentage as a 2-decimal string.
func (b BasisPoints) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses a percentage with at most two fraction digits.
func (b *BasisPoints) UnmarshalText(text []byte) error {
	v, err := ParseMoney(string(text))
	if err != nil {
		return err
	}
	*b = BasisPoints(v)
	return nil
}

// ComputeDiscountBasisPoints parses both amounts and returns Discount.
func ComputeDiscountBasisPoints(price, value string) (BasisPoints, error) {
	p, err := ParseMoney(price)
	if err != nil {
		return 0, err
	}
	v, err := ParseMoney(value)
	if err != nil {
		return 0, err
	}
	return Discount(p, v)
}

// Discount returns 1 - price/value in basis points. The quotient is rounded
// half-down to four fraction digits before subtraction, then scaled and
// truncated. A zero value is rejected.
func Discount(price, value Cents) (BasisPoints, error) {
	if value == 0 {
		return 0, fmt.Errorf("%w: zero value", ErrInvalidAmount)
	}
	ratio := quoHalfDown(price.Decimal(), value.Decimal(), basisPointsExp)
	d := decimal.NewFromInt(1).Sub(ratio).Shift(basisPointsExp).Truncate(0)
	return BasisPoints(d.IntPart()), nil
}

// Revalue increases an amount by percent and rounds half-down to cents.
func Revalue(old Cents, percent int) Cents {
	n := decimal.NewFromInt(int64(old)).Mul(decimal.NewFromInt(int64(100 + percent)))
	return Cents(quoHalfDown(n, decimal.NewFromInt(100), 0).IntPart())
}

// quoHalfDown divides n by d rounding to places fraction digits. Ties round
// toward zero.
func quoHalfDown(n, d decimal.Decimal, places int32) decimal.Decimal {
	q, r := n.QuoRem(d, places)
	if r.IsZero() {
		return q
	}
	half := d.Abs().Shift(-places)
	if r.Abs().Mul(decimal.NewFromInt(2)).GreaterThan(half) {
		step := decimal.New(int64(n.Sign()*d.Sign()), -places)
		q = q.Add(step)
	}
	return q
}
