package usdc

import (
	"github.com/code-payments/compressed-wallet/pkg/amount"
)

// FormatQuarks converts a quark amount to the string representation of USDC
func FormatQuarks(quarks uint64) string {
	return amount.FormatBalance(quarks, Decimals)
}

// ToQuarks converts a string representation of USDC to quarks. Values finer
// than a quark are truncated.
func ToQuarks(val string) (uint64, error) {
	return amount.Parse(val, Decimals)
}

// MustToQuarks calls ToQuarks, panicking if there's an error.
func MustToQuarks(val string) uint64 {
	result, err := ToQuarks(val)
	if err != nil {
		panic(err)
	}
	return result
}
