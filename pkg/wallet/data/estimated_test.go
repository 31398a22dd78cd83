package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
)

func TestEstimatedProvider_KnownWallets(t *testing.T) {
	ctx := context.Background()

	p, err := NewEstimatedProvider()
	require.NoError(t, err)

	known, err := wallet.Generate()
	require.NoError(t, err)

	unknown, err := wallet.Generate()
	require.NoError(t, err)

	ok, err := p.TestForKnownWallet(ctx, known.PublicKeyBytes())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.AddKnownWallet(ctx, known.PublicKeyBytes()))

	ok, err = p.TestForKnownWallet(ctx, known.PublicKeyBytes())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.TestForKnownWallet(ctx, unknown.PublicKeyBytes())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.TestForKnownWallet(ctx, nil)
	assert.Equal(t, ErrInvalidWalletKey, err)
	assert.Equal(t, ErrInvalidWalletKey, p.AddKnownWallet(ctx, nil))
}

func TestTestDataProvider(t *testing.T) {
	ctx := context.Background()

	p := NewTestDataProvider()

	record, err := wallet.Generate()
	require.NoError(t, err)

	require.NoError(t, p.ExecuteInTx(ctx, 0, func(ctx context.Context) error {
		return p.SaveWallet(ctx, record)
	}))

	actual, err := p.GetWallet(ctx, record.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, record.PublicKey, actual.PublicKey)

	count, err := p.GetWalletCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, p.DeleteWallet(ctx, record.PublicKey))
	_, err = p.GetAllWallets(ctx)
	assert.Equal(t, wallet.ErrNotFound, err)
}
