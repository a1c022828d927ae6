// Package fixedpoint holds the 18-decimal integer arithmetic used for prices,
// amounts, supplies and liquidity, plus the display helpers for alerts.
//
// A scaled value is a *big.Int holding x * 10^18. Conversion from and to
// decimal text only happens at the edges (API input, alert output).
package fixedpoint

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits carried by a scaled value.
const Decimals = 18

// Placeholder is rendered wherever a value is unknown.
const Placeholder = "-"

// ErrParse is returned for malformed decimal or integer input.
var ErrParse = errors.New("fixedpoint: malformed number")

// One is 10^18, the scaled representation of 1.
var One = pow10(Decimals)

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// Parse converts a decimal string ("0.0012", "-3", "1.5e-7", "2E+3") into a
// scaled value. Digits past the 18th fractional place are truncated.
func Parse(s string) (*big.Int, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return nil, err
	}
	return shift(d, Decimals), nil
}

// ParseRaw converts a smallest-unit integer quantity into a *big.Int. The
// upstream API sometimes emits these in scientific notation ("1e27"); plain
// values must be digits only. A scientific value with a fractional part is
// cut to its integer part.
func ParseRaw(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty input", ErrParse)
	}
	if !strings.ContainsAny(s, "eE") {
		for i := 0; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return nil, fmt.Errorf("%w: %q is not an integer", ErrParse, s)
			}
		}
		v, _ := new(big.Int).SetString(s, 10)
		return v, nil
	}
	d, err := parseDecimal(s)
	if err != nil {
		return nil, err
	}
	return shift(d, 0), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty input", ErrParse)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q: %v", ErrParse, s, err)
	}
	return d, nil
}

// shift returns trunc(d * 10^places) as an integer.
func shift(d decimal.Decimal, places int64) *big.Int {
	coef := d.Coefficient()
	exp := int64(d.Exponent()) + places
	if exp >= 0 {
		return coef.Mul(coef, pow10(exp))
	}
	// |coef| < 10^digits, so a larger negative exponent leaves nothing.
	if -exp > int64(len(coef.Text(10))) {
		return new(big.Int)
	}
	return coef.Quo(coef, pow10(-exp))
}

// Mul multiplies two scaled values and rescales the product.
func Mul(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, One)
}

// FormatFixed renders v with thousands separators and exactly decimals
// fractional digits. Extra precision is truncated, never rounded.
func FormatFixed(v *big.Int, decimals int) string {
	if v == nil {
		return Placeholder
	}
	if decimals < 0 {
		decimals = 0
	}
	abs := new(big.Int).Abs(v)
	whole, frac := new(big.Int).QuoRem(abs, One, new(big.Int))

	fracStr := frac.Text(10)
	fracStr = strings.Repeat("0", Decimals-len(fracStr)) + fracStr
	if decimals <= Decimals {
		fracStr = fracStr[:decimals]
	} else {
		fracStr += strings.Repeat("0", decimals-Decimals)
	}

	out := groupThousands(whole.Text(10))
	if decimals > 0 {
		out += "." + fracStr
	}
	if v.Sign() < 0 {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatShort renders v as 1.50K / 12.3M / 250B / 2.00T. Values under a
// thousand keep two fractional digits. This path goes through float64 and is
// for display only.
func FormatShort(v *big.Int) string {
	if v == nil {
		return Placeholder
	}
	n, _ := decimal.NewFromBigInt(v, -Decimals).Float64()
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return FormatFixed(v, 2)
	}
	abs := math.Abs(n)
	switch {
	case abs >= 1e12:
		return withUnit(n/1e12, "T")
	case abs >= 1e9:
		return withUnit(n/1e9, "B")
	case abs >= 1e6:
		return withUnit(n/1e6, "M")
	case abs >= 1e3:
		return withUnit(n/1e3, "K")
	}
	return strconv.FormatFloat(n, 'f', 2, 64)
}

func withUnit(val float64, unit string) string {
	prec := 2
	switch abs := math.Abs(val); {
	case abs >= 100:
		prec = 0
	case abs >= 10:
		prec = 1
	}
	return strconv.FormatFloat(val, 'f', prec, 64) + unit
}

// FormatAge renders the time elapsed since the unix timestamp createdAt as
// "2d 3h 0m 5s": zero day/hour/minute parts are skipped, seconds are always
// shown. A zero createdAt means unknown.
func FormatAge(createdAt int64, now time.Time) string {
	if createdAt <= 0 {
		return Placeholder
	}
	diff := now.Unix() - createdAt
	if diff < 0 {
		diff = 0
	}
	d := diff / 86400
	diff -= d * 86400
	h := diff / 3600
	diff -= h * 3600
	m := diff / 60
	s := diff - m*60

	parts := make([]string, 0, 4)
	if d > 0 {
		parts = append(parts, strconv.FormatInt(d, 10)+"d")
	}
	if h > 0 {
		parts = append(parts, strconv.FormatInt(h, 10)+"h")
	}
	if m > 0 {
		parts = append(parts, strconv.FormatInt(m, 10)+"m")
	}
	parts = append(parts, strconv.FormatInt(s, 10)+"s")
	return strings.Join(parts, " ")
}
