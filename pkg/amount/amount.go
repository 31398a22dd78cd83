package amount

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount: unable to parse")
)

// FormatBalance renders a fixed-point integer balance with the provided
// number of decimals. The integer part is always present, so 1 with 6
// decimals renders as "0.000001".
func FormatBalance(value uint64, decimals uint) string {
	digits := fmt.Sprintf("%0*d", decimals+1, value)
	if decimals == 0 {
		return digits
	}

	split := len(digits) - int(decimals)
	return digits[:split] + "." + digits[split:]
}

// Parse converts a decimal string into base units with the provided number
// of decimals. Fractional base units are truncated.
func Parse(val string, decimals uint) (uint64, error) {
	val = strings.TrimSpace(val)
	if len(val) == 0 {
		return 0, ErrInvalidAmount
	}

	parsed, err := decimal.NewFromString(val)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	if parsed.IsNegative() {
		return 0, ErrInvalidAmount
	}

	scaled := parsed.Shift(int32(decimals)).Truncate(0)
	if scaled.GreaterThan(decimal.NewFromUint64(math.MaxUint64)) {
		return 0, errors.Wrap(ErrInvalidAmount, "amount overflows uint64")
	}

	return scaled.BigInt().Uint64(), nil
}

// ParseDecimal parses a user supplied amount without scaling it. It's used
// where callers need the sign, which Parse rejects.
func ParseDecimal(val string) (decimal.Decimal, error) {
	val = strings.TrimSpace(val)
	if len(val) == 0 {
		return decimal.Zero, ErrInvalidAmount
	}

	parsed, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return parsed, nil
}
