package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	pgutil "github.com/code-payments/compressed-wallet/pkg/database/postgres"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
)

const (
	tableName = "compressedwallet__core_wallet"

	allColumns = `id, public_key, sealed_private_key, sol_balance, spl_balance, zk_balance, txn_history, created_at, last_refreshed_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	PublicKey        string `db:"public_key"`
	SealedPrivateKey []byte `db:"sealed_private_key"`

	SolBalance int64 `db:"sol_balance"`
	SplBalance int64 `db:"spl_balance"`
	ZkBalance  int64 `db:"zk_balance"`

	TxnHistory []byte `db:"txn_history"`

	CreatedAt       time.Time    `db:"created_at"`
	LastRefreshedAt sql.NullTime `db:"last_refreshed_at"`
}

func toModel(key *[SealingKeySize]byte, obj *wallet.Wallet) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, errors.Wrap(wallet.ErrInvalidWallet, err.Error())
	}

	sealed, err := seal(key, obj.PrivateKey)
	if err != nil {
		return nil, err
	}

	history := obj.TxnHistory
	if history == nil {
		history = []wallet.TxnHistoryItem{}
	}
	encodedHistory, err := json.Marshal(history)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding history")
	}

	return &model{
		PublicKey:        obj.PublicKey,
		SealedPrivateKey: sealed,

		SolBalance: int64(obj.SolBalance),
		SplBalance: int64(obj.SplBalance),
		ZkBalance:  int64(obj.ZkBalance),

		TxnHistory: encodedHistory,

		CreatedAt: obj.CreatedAt,
		LastRefreshedAt: sql.NullTime{
			Valid: !obj.LastRefreshedAt.IsZero(),
			Time:  obj.LastRefreshedAt,
		},
	}, nil
}

func fromModel(key *[SealingKeySize]byte, obj *model) (*wallet.Wallet, error) {
	privateKey, err := unseal(key, obj.SealedPrivateKey)
	if err != nil {
		return nil, errors.Wrapf(err, "wallet %s", obj.PublicKey)
	}

	var history []wallet.TxnHistoryItem
	if len(obj.TxnHistory) > 0 {
		if err := json.Unmarshal(obj.TxnHistory, &history); err != nil {
			return nil, errors.Wrap(err, "error decoding history")
		}
	}
	if len(history) == 0 {
		history = nil
	}

	res := &wallet.Wallet{
		PublicKey:  obj.PublicKey,
		PrivateKey: privateKey,

		SolBalance: uint64(obj.SolBalance),
		SplBalance: uint64(obj.SplBalance),
		ZkBalance:  uint64(obj.ZkBalance),

		TxnHistory: history,

		CreatedAt: obj.CreatedAt,
	}
	if obj.LastRefreshedAt.Valid {
		res.LastRefreshedAt = obj.LastRefreshedAt.Time
	}
	return res, nil
}

// dbPut upserts the wallet. Existing rows keep their private key and creation
// time.
func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(public_key, sealed_private_key, sol_balance, spl_balance, zk_balance, txn_history, created_at, last_refreshed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (public_key)
			DO UPDATE
				SET sol_balance = $3, spl_balance = $4, zk_balance = $5, txn_history = $6, last_refreshed_at = $8
				WHERE ` + tableName + `.public_key = $1
			RETURNING ` + allColumns

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		return tx.QueryRowxContext(
			ctx,
			query,
			m.PublicKey,
			m.SealedPrivateKey,
			m.SolBalance,
			m.SplBalance,
			m.ZkBalance,
			m.TxnHistory,
			m.CreatedAt,
			m.LastRefreshedAt,
		).StructScan(m)
	})
}

func dbGetByPublicKey(ctx context.Context, db *sqlx.DB, publicKey string) (*model, error) {
	var res model
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE public_key = $1
	`

	err := db.GetContext(ctx, &res, query, publicKey)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, wallet.ErrNotFound)
	}
	return &res, nil
}

func dbGetAll(ctx context.Context, db *sqlx.DB) ([]*model, error) {
	res := []*model{}
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		ORDER BY created_at ASC, public_key ASC
	`

	err := db.SelectContext(ctx, &res, query)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, wallet.ErrNotFound)
	} else if len(res) == 0 {
		return nil, wallet.ErrNotFound
	}
	return res, nil
}

func dbDelete(ctx context.Context, db *sqlx.DB, publicKey string) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `DELETE FROM ` + tableName + `
			WHERE public_key = $1
		`

		result, err := tx.ExecContext(ctx, query, publicKey)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		} else if affected == 0 {
			return wallet.ErrNotFound
		}
		return nil
	})
}

func dbCount(ctx context.Context, db *sqlx.DB) (uint64, error) {
	var res uint64
	query := `SELECT COUNT(*) FROM ` + tableName

	err := db.GetContext(ctx, &res, query)
	if err != nil {
		return 0, err
	}
	return res, nil
}
