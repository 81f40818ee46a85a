package orders

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Cents is an amount of money in minor units. JSON carries it as a decimal
// number with two fractional digits, e.g. 30.00.
type Cents int64

var (
	ErrInvalidAmount  = errors.New("amount must be a number with at most two decimals")
	ErrAmountOverflow = errors.New("amount out of range")
)

func (c Cents) Mul(n int) Cents { return c * Cents(n) }

// MulChecked is Mul that reports false instead of wrapping around.
func (c Cents) MulChecked(n int) (Cents, bool) {
	if c == 0 || n == 0 {
		return 0, true
	}
	r := c * Cents(n)
	if r/Cents(n) != c || (n == -1 && c == math.MinInt64) {
		return 0, false
	}
	return r, true
}

// AddChecked reports false when c+d does not fit in int64.
func (c Cents) AddChecked(d Cents) (Cents, bool) {
	r := c + d
	if (d > 0 && r < c) || (d < 0 && r > c) {
		return 0, false
	}
	return r, true
}

func (c Cents) String() string {
	neg := c < 0
	v := int64(c)
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v/100, 10) + "." + twoDigits(v%100)
	if neg {
		return "-" + s
	}
	return s
}

func twoDigits(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cents) UnmarshalJSON(b []byte) error {
	v, err := ParseCents(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseCents parses "10", "10.5" or "10.50" into 1050. Exponents, quotes and
// more than two fractional digits are rejected.
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || !allDigits(whole) || (hasDot && (frac == "" || len(frac) > 2 || !allDigits(frac))) {
		return 0, ErrInvalidAmount
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > (1<<62)/100 {
		return 0, ErrInvalidAmount
	}
	var minor int64
	if hasDot {
		if len(frac) == 1 {
			frac += "0"
		}
		minor, _ = strconv.ParseInt(frac, 10, 64)
	}
	v := Cents(units*100 + minor)
	if neg {
		v = -v
	}
	return v, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
