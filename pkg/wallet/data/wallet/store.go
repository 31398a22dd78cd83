package wallet

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("wallet not found")
	ErrInvalidWallet = errors.New("invalid wallet")
)

type Store interface {
	// Put creates or updates a wallet, keyed by its public key. The private
	// key of an existing wallet is never changed.
	Put(ctx context.Context, record *Wallet) error

	// Get finds the wallet for a given public key
	//
	// Returns ErrNotFound if no wallet is found.
	Get(ctx context.Context, publicKey string) (*Wallet, error)

	// GetAll returns every wallet in creation order
	//
	// Returns ErrNotFound if no wallets exist.
	GetAll(ctx context.Context) ([]*Wallet, error)

	// Delete removes the wallet for a given public key
	//
	// Returns ErrNotFound if no wallet is found.
	Delete(ctx context.Context, publicKey string) error

	// Count returns the number of stored wallets
	Count(ctx context.Context) (uint64, error)
}
