package sol

import (
	"github.com/code-payments/compressed-wallet/pkg/amount"
)

const (
	LamportsPerSol = 1000000000
	Decimals       = 9
)

// FromLamports returns the whole SOL component of a lamport amount
func FromLamports(lamports uint64) uint64 {
	return lamports / LamportsPerSol
}

func ToLamportsFromWhole(sol uint64) uint64 {
	return sol * LamportsPerSol
}

// FormatLamports converts a lamport amount to the string representation of SOL
func FormatLamports(lamports uint64) string {
	return amount.FormatBalance(lamports, Decimals)
}

// ToLamports converts a string representation of SOL to lamports. Values
// finer than a lamport are truncated.
func ToLamports(val string) (uint64, error) {
	return amount.Parse(val, Decimals)
}

// MustToLamports calls ToLamports, panicking if there's an error.
//
// This should only be used if you know for sure this will not panic.
func MustToLamports(val string) uint64 {
	result, err := ToLamports(val)
	if err != nil {
		panic(err)
	}
	return result
}
