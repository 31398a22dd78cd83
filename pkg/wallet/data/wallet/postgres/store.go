package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
)

type store struct {
	db         *sqlx.DB
	sealingKey *[SealingKeySize]byte
}

// New returns a new postgres-backed wallet.Store. Private keys are sealed at
// rest with the provided key.
func New(db *sql.DB, sealingKey [SealingKeySize]byte) wallet.Store {
	return &store{
		db:         sqlx.NewDb(db, "pgx"),
		sealingKey: &sealingKey,
	}
}

// Put implements wallet.Store.Put
func (s *store) Put(ctx context.Context, record *wallet.Wallet) error {
	obj, err := toModel(s.sealingKey, record)
	if err != nil {
		return err
	}

	err = obj.dbPut(ctx, s.db)
	if err != nil {
		return err
	}

	res, err := fromModel(s.sealingKey, obj)
	if err != nil {
		return err
	}
	res.CopyTo(record)

	return nil
}

// Get implements wallet.Store.Get
func (s *store) Get(ctx context.Context, publicKey string) (*wallet.Wallet, error) {
	model, err := dbGetByPublicKey(ctx, s.db, publicKey)
	if err != nil {
		return nil, err
	}

	return fromModel(s.sealingKey, model)
}

// GetAll implements wallet.Store.GetAll
func (s *store) GetAll(ctx context.Context) ([]*wallet.Wallet, error) {
	models, err := dbGetAll(ctx, s.db)
	if err != nil {
		return nil, err
	}

	var res []*wallet.Wallet
	for _, model := range models {
		record, err := fromModel(s.sealingKey, model)
		if err != nil {
			return nil, err
		}
		res = append(res, record)
	}
	return res, nil
}

// Delete implements wallet.Store.Delete
func (s *store) Delete(ctx context.Context, publicKey string) error {
	return dbDelete(ctx, s.db, publicKey)
}

// Count implements wallet.Store.Count
func (s *store) Count(ctx context.Context) (uint64, error) {
	return dbCount(ctx, s.db)
}
