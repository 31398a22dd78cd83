package postgres

import (
	"database/sql"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet/tests"

	postgrestest "github.com/code-payments/compressed-wallet/pkg/database/postgres/test"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
		CREATE TABLE compressedwallet__core_wallet (
			id SERIAL NOT NULL PRIMARY KEY,

			public_key TEXT NOT NULL UNIQUE,
			sealed_private_key BYTEA NOT NULL,

			sol_balance BIGINT NOT NULL CHECK (sol_balance >= 0),
			spl_balance BIGINT NOT NULL CHECK (spl_balance >= 0),
			zk_balance BIGINT NOT NULL CHECK (zk_balance >= 0),

			txn_history JSONB NOT NULL,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			last_refreshed_at TIMESTAMP WITH TIME ZONE
		);
	`

	// Used for testing ONLY, the table and migrations are external to this repository
	tableDestroy = `
		DROP TABLE compressedwallet__core_wallet;
	`
)

var (
	testStore wallet.Store
	teardown  func()

	testSealingKey = [SealingKeySize]byte{1, 2, 3, 4}
)

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	// The docker backed suite is skipped when docker is unavailable, but the
	// remaining tests in this package don't need it.
	testPool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Warn("Error creating docker pool")
		os.Exit(m.Run())
	}

	var cleanUpFunc func()
	db, cleanUpFunc, err := postgrestest.StartPostgresDB(testPool)
	if err != nil {
		log.WithError(err).Warn("Error starting postgres image")
		os.Exit(m.Run())
	}
	defer db.Close()

	if err := createTestTables(db); err != nil {
		logrus.StandardLogger().WithError(err).Error("Error creating test tables")
		cleanUpFunc()
		os.Exit(1)
	}

	testStore = New(db, testSealingKey)
	teardown = func() {
		if pc := recover(); pc != nil {
			cleanUpFunc()
			panic(pc)
		}

		if err := resetTestTables(db); err != nil {
			logrus.StandardLogger().WithError(err).Error("Error resetting test tables")
			cleanUpFunc()
			os.Exit(1)
		}
	}

	code := m.Run()
	cleanUpFunc()
	os.Exit(code)
}

func TestWalletPostgresStore(t *testing.T) {
	if testStore == nil {
		t.Skip("postgres unavailable")
	}

	tests.RunTests(t, testStore, teardown)
}

func createTestTables(db *sql.DB) error {
	_, err := db.Exec(tableCreate)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not create test tables")
		return err
	}
	return nil
}

func resetTestTables(db *sql.DB) error {
	_, err := db.Exec(tableDestroy)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not drop test tables")
		return err
	}

	return createTestTables(db)
}
