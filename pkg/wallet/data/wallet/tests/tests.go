package tests

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
)

func RunTests(t *testing.T, s wallet.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s wallet.Store){
		testHappyPath,
		testUpsert,
		testGetAllOrdering,
		testInvalidWallets,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s wallet.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		record, err := wallet.Generate()
		require.NoError(t, err)
		record.SolBalance = 1_000_000_000
		record.SplBalance = 2_500_000
		record.ZkBalance = 1
		record.TxnHistory = []wallet.TxnHistoryItem{
			{Signature: "sig1", Slot: 20, IsCompressed: true},
			{Signature: "sig2", Slot: 10},
		}
		record.LastRefreshedAt = time.Now().Add(-time.Minute)
		cloned := record.Clone()

		_, err = s.Get(ctx, record.PublicKey)
		assert.Equal(t, wallet.ErrNotFound, err)

		_, err = s.GetAll(ctx)
		assert.Equal(t, wallet.ErrNotFound, err)

		assert.Equal(t, wallet.ErrNotFound, s.Delete(ctx, record.PublicKey))

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		require.NoError(t, s.Put(ctx, record))

		actual, err := s.Get(ctx, record.PublicKey)
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assertEquivalentRecords(t, &cloned, all[0])

		count, err = s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		require.NoError(t, s.Delete(ctx, record.PublicKey))

		_, err = s.Get(ctx, record.PublicKey)
		assert.Equal(t, wallet.ErrNotFound, err)

		count, err = s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func testUpsert(t *testing.T, s wallet.Store) {
	t.Run("testUpsert", func(t *testing.T) {
		ctx := context.Background()

		record, err := wallet.Generate()
		require.NoError(t, err)
		require.NoError(t, s.Put(ctx, record))

		original, err := s.Get(ctx, record.PublicKey)
		require.NoError(t, err)

		record.SolBalance = 42
		record.ZkBalance = 7
		record.TxnHistory = []wallet.TxnHistoryItem{{Signature: "sig", Slot: 1}}
		record.LastRefreshedAt = time.Now()
		record.CreatedAt = time.Now().Add(time.Hour)
		require.NoError(t, s.Put(ctx, record))

		// Creation time is fixed by the first write
		assert.Equal(t, original.CreatedAt.Unix(), record.CreatedAt.Unix())

		actual, err := s.Get(ctx, record.PublicKey)
		require.NoError(t, err)
		assert.EqualValues(t, 42, actual.SolBalance)
		assert.EqualValues(t, 0, actual.SplBalance)
		assert.EqualValues(t, 7, actual.ZkBalance)
		require.Len(t, actual.TxnHistory, 1)
		assert.Equal(t, "sig", actual.TxnHistory[0].Signature)
		assert.Equal(t, original.CreatedAt.Unix(), actual.CreatedAt.Unix())
		assert.Equal(t, record.PrivateKey, actual.PrivateKey)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func testGetAllOrdering(t *testing.T, s wallet.Store) {
	t.Run("testGetAllOrdering", func(t *testing.T) {
		ctx := context.Background()

		start := time.Now().Add(-time.Hour)

		var expected []string
		for i := 0; i < 5; i++ {
			record, err := wallet.Generate()
			require.NoError(t, err)
			record.CreatedAt = start.Add(time.Duration(i) * time.Minute)
			require.NoError(t, s.Put(ctx, record))

			expected = append(expected, record.PublicKey)
		}

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, len(expected))
		for i, record := range all {
			assert.Equal(t, expected[i], record.PublicKey)
		}
	})
}

func testInvalidWallets(t *testing.T, s wallet.Store) {
	t.Run("testInvalidWallets", func(t *testing.T) {
		ctx := context.Background()

		valid, err := wallet.Generate()
		require.NoError(t, err)

		other, err := wallet.Generate()
		require.NoError(t, err)

		for _, invalid := range []*wallet.Wallet{
			{},
			{PublicKey: valid.PublicKey},
			{PublicKey: "not-base58!", PrivateKey: valid.PrivateKey},
			{PublicKey: other.PublicKey, PrivateKey: valid.PrivateKey},
			{PublicKey: valid.PublicKey, PrivateKey: valid.PrivateKey[:32]},
			{PublicKey: valid.PublicKey, PrivateKey: valid.PrivateKey, TxnHistory: []wallet.TxnHistoryItem{{}}},
		} {
			err := s.Put(ctx, invalid)
			assert.Equal(t, wallet.ErrInvalidWallet, errors.Cause(err))
		}

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *wallet.Wallet) {
	assert.Equal(t, obj1.PublicKey, obj2.PublicKey)
	assert.Equal(t, obj1.PrivateKey, obj2.PrivateKey)
	assert.Equal(t, obj1.SolBalance, obj2.SolBalance)
	assert.Equal(t, obj1.SplBalance, obj2.SplBalance)
	assert.Equal(t, obj1.ZkBalance, obj2.ZkBalance)
	assert.Equal(t, obj1.TxnHistory, obj2.TxnHistory)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
	assert.Equal(t, obj1.LastRefreshedAt.Unix(), obj2.LastRefreshedAt.Unix())
}
