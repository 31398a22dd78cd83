package data

import (
	pg "github.com/code-payments/compressed-wallet/pkg/database/postgres"

	wallet_postgres_client "github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet/postgres"
)

type Provider interface {
	DatabaseData
	EstimatedData

	GetDatabaseDataProvider() DatabaseData
	GetEstimatedDataProvider() EstimatedData
}

type provider struct {
	*DatabaseProvider
	*EstimatedProvider
}

func NewDataProvider(dbConfig *pg.Config, sealingKey [wallet_postgres_client.SealingKeySize]byte) (Provider, error) {
	db, err := NewDatabaseProvider(dbConfig, sealingKey)
	if err != nil {
		return nil, err
	}

	estimated, err := NewEstimatedProvider()
	if err != nil {
		return nil, err
	}

	return &provider{
		DatabaseProvider:  db.(*DatabaseProvider),
		EstimatedProvider: estimated.(*EstimatedProvider),
	}, nil
}

// NewMemoryDataProvider returns a Provider that keeps wallets in process
// memory. Nothing survives a restart.
func NewMemoryDataProvider() (Provider, error) {
	estimated, err := NewEstimatedProvider()
	if err != nil {
		return nil, err
	}

	return &provider{
		DatabaseProvider:  NewTestDatabaseProvider().(*DatabaseProvider),
		EstimatedProvider: estimated.(*EstimatedProvider),
	}, nil
}

func NewTestDataProvider() Provider {
	p, err := NewMemoryDataProvider()
	if err != nil {
		panic(err)
	}
	return p
}

func (p *provider) GetDatabaseDataProvider() DatabaseData {
	return p.DatabaseProvider
}
func (p *provider) GetEstimatedDataProvider() EstimatedData {
	return p.EstimatedProvider
}
