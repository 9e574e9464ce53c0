// Package decimal implements exact base-10 arithmetic for order book prices,
// sizes and notional values. It is adapted from the shared Decimal type used
// elsewhere in this organization's services, generalized with explicit
// rounding modes so that price-to-bucket projection can be made
// deterministic under floating-point noise from feed decoders.
package decimal

import (
	"database/sql/driver"
	"fmt"
	"math"
	"math/big"
)

// RoundMode selects how Round resolves a value that falls between two
// representable values at the target scale.
type RoundMode int

const (
	// RoundFloor rounds toward negative infinity.
	RoundFloor RoundMode = iota
	// RoundCeiling rounds toward positive infinity.
	RoundCeiling
	// RoundHalfUp rounds to the nearest value, ties away from zero.
	RoundHalfUp
)

// Decimal is an exact, arbitrary-precision base-10 number backed by
// math/big.Rat. Because big.Rat keeps values in lowest terms, two Decimals
// produced by different but mathematically equivalent computations always
// compare and hash identically through Cmp/String - the property the order
// book relies on when using Decimal as a map/tree key.
type Decimal struct {
	value *big.Rat
}

var ten = big.NewInt(10)

// Zero returns the Decimal 0.
func Zero() Decimal {
	return Decimal{value: big.NewRat(0, 1)}
}

// NewFromInt64 builds a Decimal from an integer.
func NewFromInt64(v int64) Decimal {
	return Decimal{value: big.NewRat(v, 1)}
}

// NewFromString parses an exact decimal string such as "100.30".
func NewFromString(s string) (Decimal, error) {
	r := new(big.Rat)
	if _, ok := r.SetString(s); !ok {
		return Decimal{}, fmt.Errorf("decimal: invalid value %q", s)
	}
	return Decimal{value: r}, nil
}

// NewFromFloat lifts a feed-provided float64 into the decimal domain. Per
// the no-panic-on-the-hot-path rule, non-finite inputs (NaN, +/-Inf) fall
// back to zero instead of propagating an error or panicking - the feed is
// assumed well formed and this exists only as a last-resort guard.
func NewFromFloat(v float64) Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Zero()
	}
	r := new(big.Rat)
	r.SetFloat64(v)
	if r == nil {
		return Zero()
	}
	return Decimal{value: r}
}

func (d Decimal) rat() *big.Rat {
	if d.value == nil {
		return big.NewRat(0, 1)
	}
	return d.value
}

// Add returns d + other.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{value: new(big.Rat).Add(d.rat(), other.rat())}
}

// Sub returns d - other.
func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{value: new(big.Rat).Sub(d.rat(), other.rat())}
}

// Mul returns d * other.
func (d Decimal) Mul(other Decimal) Decimal {
	return Decimal{value: new(big.Rat).Mul(d.rat(), other.rat())}
}

// Div returns d / other. Division by zero returns zero rather than
// panicking, consistent with the hot-path no-panic rule; group sizes are
// not validated before use, so a zero group size reaches this path and
// yields zero.
func (d Decimal) Div(other Decimal) Decimal {
	if other.IsZero() {
		return Zero()
	}
	return Decimal{value: new(big.Rat).Quo(d.rat(), other.rat())}
}

// Cmp returns -1, 0 or 1 as d is less than, equal to, or greater than other.
func (d Decimal) Cmp(other Decimal) int {
	return d.rat().Cmp(other.rat())
}

// Equal reports value equality - 1.0 and 1.00 are equal.
func (d Decimal) Equal(other Decimal) bool { return d.Cmp(other) == 0 }

// LessThan reports whether d < other.
func (d Decimal) LessThan(other Decimal) bool { return d.Cmp(other) < 0 }

// GreaterThan reports whether d > other.
func (d Decimal) GreaterThan(other Decimal) bool { return d.Cmp(other) > 0 }

// IsZero reports whether d is exactly zero.
func (d Decimal) IsZero() bool { return d.rat().Sign() == 0 }

// IsPositive reports whether d > 0.
func (d Decimal) IsPositive() bool { return d.rat().Sign() > 0 }

// IsNegative reports whether d < 0.
func (d Decimal) IsNegative() bool { return d.rat().Sign() < 0 }

// Abs returns the absolute value of d.
func (d Decimal) Abs() Decimal { return Decimal{value: new(big.Rat).Abs(d.rat())} }

// Neg returns -d.
func (d Decimal) Neg() Decimal { return Decimal{value: new(big.Rat).Neg(d.rat())} }

// Float64 returns the closest float64 approximation, losing precision.
func (d Decimal) Float64() float64 {
	f, _ := d.rat().Float64()
	return f
}

// String returns a canonical decimal representation. Because big.Rat keeps
// values in lowest terms, this canonicalizes automatically: 1.0 and 1.00
// both print as "1", and 4.320 prints as "4.32". A value with no finite
// decimal expansion (such as 1/3 from Div) prints as a reduced fraction.
func (d Decimal) String() string {
	r := d.rat()
	if r.IsInt() {
		return r.Num().String()
	}
	// A denominator 2^a * 5^b needs exactly max(a, b) fractional digits.
	den := new(big.Int).Set(r.Denom())
	places := int(den.TrailingZeroBits())
	den.Rsh(den, uint(places))
	for fives := 1; new(big.Int).Mod(den, big.NewInt(5)).Sign() == 0; fives++ {
		den.Quo(den, big.NewInt(5))
		if fives > places {
			places = fives
		}
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		return r.RatString()
	}
	return r.FloatString(places)
}

func pow10Rat(places int) *big.Rat {
	p := new(big.Int).Exp(ten, big.NewInt(int64(places)), nil)
	return new(big.Rat).SetInt(p)
}

// Round rounds d to the given number of fractional digits using the
// supplied rounding mode. This is the scale-aware rounding primitive the
// bucket-projection algorithm (internal/bucket) is built on.
func (d Decimal) Round(places int, mode RoundMode) Decimal {
	if places < 0 {
		places = 0
	}
	mul := pow10Rat(places)
	scaled := new(big.Rat).Mul(d.rat(), mul)

	num := scaled.Num()
	den := scaled.Denom()

	q := new(big.Int)
	r := new(big.Int)
	q.QuoRem(num, den, r)

	if r.Sign() != 0 {
		switch mode {
		case RoundFloor:
			if r.Sign() < 0 {
				q.Sub(q, big.NewInt(1))
			}
		case RoundCeiling:
			if r.Sign() > 0 {
				q.Add(q, big.NewInt(1))
			}
		case RoundHalfUp:
			absR := new(big.Int).Abs(r)
			twice := new(big.Int).Lsh(absR, 1)
			if twice.Cmp(den) >= 0 {
				if num.Sign() >= 0 {
					q.Add(q, big.NewInt(1))
				} else {
					q.Sub(q, big.NewInt(1))
				}
			}
		}
	}

	result := new(big.Rat).SetFrac(q, big.NewInt(1))
	result.Quo(result, mul)
	return Decimal{value: result}
}

// Floor rounds d down to an integer.
func (d Decimal) Floor() Decimal { return d.Round(0, RoundFloor) }

// Value implements database/sql/driver.Valuer so Decimal can round-trip
// through a database column, matching the shared type's original contract.
func (d Decimal) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements database/sql.Scanner.
func (d *Decimal) Scan(value interface{}) error {
	if value == nil {
		*d = Zero()
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("decimal: cannot scan %T", value)
	}
	parsed, err := NewFromString(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
