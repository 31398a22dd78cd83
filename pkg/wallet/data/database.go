package data

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	pg "github.com/code-payments/compressed-wallet/pkg/database/postgres"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"

	wallet_memory_client "github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet/memory"
	wallet_postgres_client "github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet/postgres"
)

type DatabaseData interface {
	// Wallets
	// --------------------------------------------------------------------------------

	SaveWallet(ctx context.Context, record *wallet.Wallet) error
	GetWallet(ctx context.Context, publicKey string) (*wallet.Wallet, error)
	GetAllWallets(ctx context.Context) ([]*wallet.Wallet, error)
	DeleteWallet(ctx context.Context, publicKey string) error
	GetWalletCount(ctx context.Context) (uint64, error)

	// Utilities
	// --------------------------------------------------------------------------------

	ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error
}

type DatabaseProvider struct {
	wallets wallet.Store

	db *sqlx.DB
}

func NewDatabaseProvider(dbConfig *pg.Config, sealingKey [wallet_postgres_client.SealingKeySize]byte) (DatabaseData, error) {
	db, err := pg.Open(dbConfig)
	if err != nil {
		return nil, err
	}

	return &DatabaseProvider{
		wallets: wallet_postgres_client.New(db, sealingKey),

		db: sqlx.NewDb(db, "pgx"),
	}, nil
}

func NewTestDatabaseProvider() DatabaseData {
	return &DatabaseProvider{
		wallets: wallet_memory_client.New(),
	}
}

// ExecuteInTx runs fn within a single transaction. Serialization failures
// are retried. Without a database, fn runs directly.
func (dp *DatabaseProvider) ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	if dp.db == nil {
		return fn(ctx)
	}

	return pg.ExecuteRetryable(func() error {
		return pg.ExecuteTxWithinCtx(ctx, dp.db, isolation, fn)
	})
}

// Wallets
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) SaveWallet(ctx context.Context, record *wallet.Wallet) error {
	return dp.wallets.Put(ctx, record)
}
func (dp *DatabaseProvider) GetWallet(ctx context.Context, publicKey string) (*wallet.Wallet, error) {
	return dp.wallets.Get(ctx, publicKey)
}
func (dp *DatabaseProvider) GetAllWallets(ctx context.Context) ([]*wallet.Wallet, error) {
	return dp.wallets.GetAll(ctx)
}
func (dp *DatabaseProvider) DeleteWallet(ctx context.Context, publicKey string) error {
	return dp.wallets.Delete(ctx, publicKey)
}
func (dp *DatabaseProvider) GetWalletCount(ctx context.Context) (uint64, error) {
	return dp.wallets.Count(ctx)
}
