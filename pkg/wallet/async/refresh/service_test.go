package async_refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/code-payments/compressed-wallet/pkg/solana"
	"github.com/code-payments/compressed-wallet/pkg/wallet/collection"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
	memory_gateway "github.com/code-payments/compressed-wallet/pkg/wallet/gateway/memory"
)

type testEnv struct {
	ctx        context.Context
	data       data.Provider
	gateway    *memory_gateway.Gateway
	collection *collection.Collection
	service    *service
}

func setup(t *testing.T) testEnv {
	env := testEnv{
		ctx:     context.Background(),
		data:    data.NewTestDataProvider(),
		gateway: memory_gateway.New(solana.NetworkDevnet),
	}
	env.collection = collection.New(env.data, env.gateway)
	env.service = New(env.collection, withManualTestOverrides(&testOverrides{
		runTimeout:      time.Second,
		metricsInterval: 10 * time.Millisecond,
	})).(*service)
	return env
}

func TestRefreshLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := setup(t)
	require.NoError(t, env.collection.Load(env.ctx))

	record, err := env.collection.Generate(env.ctx)
	require.NoError(t, err)
	env.gateway.SetBalances(record.PublicKeyBytes(), gateway.Balances{Sol: 42, Spl: 7, Zk: 3})

	ctx, cancel := context.WithCancel(env.ctx)
	done := make(chan error, 1)
	go func() {
		done <- env.service.Start(ctx, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		persisted, err := env.data.GetWallet(env.ctx, record.PublicKey)
		return err == nil && persisted.SolBalance == 42
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}

	actual, err := env.collection.Get(record.PublicKey)
	require.NoError(t, err)
	assert.EqualValues(t, 7, actual.SplBalance)
	assert.EqualValues(t, 3, actual.ZkBalance)
	assert.False(t, actual.LastRefreshedAt.IsZero())
}

func TestRefreshLoop_StopsAtDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := setup(t)
	require.NoError(t, env.collection.Load(env.ctx))

	ctx, cancel := context.WithTimeout(env.ctx, 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- env.service.Start(ctx, 10*time.Millisecond)
	}()

	select {
	case err := <-done:
		assert.Equal(t, context.DeadlineExceeded, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop at deadline")
	}
}

func TestRefreshWorker_StopsAtDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := setup(t)

	ctx, cancel := context.WithTimeout(env.ctx, 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- env.service.refreshWorker(ctx, time.Millisecond)
	}()

	select {
	case err := <-done:
		assert.Equal(t, context.DeadlineExceeded, err)
	case <-time.After(time.Second):
		t.Fatal("refresh worker did not stop at deadline")
	}
}

func TestRefreshLoop_LoadsCollection(t *testing.T) {
	env := setup(t)

	record, err := env.collection.Generate(env.ctx)
	assert.Equal(t, collection.ErrNotHydrated, err)
	assert.Nil(t, record)

	require.NoError(t, env.service.runOnce(env.ctx))
	assert.True(t, env.collection.Hydrated())
}

func TestRefreshLoop_GatewayFailure(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.collection.Load(env.ctx))

	record, err := env.collection.Generate(env.ctx)
	require.NoError(t, err)

	env.gateway.InduceFailure("GetAllBalances", assert.AnError)
	env.gateway.SetBalances(record.PublicKeyBytes(), gateway.Balances{Sol: 1})

	// Per-wallet failures are skipped rather than failing the run
	require.NoError(t, env.service.runOnce(env.ctx))

	actual, err := env.collection.Get(record.PublicKey)
	require.NoError(t, err)
	assert.EqualValues(t, 0, actual.SolBalance)
	assert.True(t, actual.LastRefreshedAt.IsZero())
}

func TestRecordWalletStats(t *testing.T) {
	env := setup(t)

	// Not hydrated yet, nothing to record
	env.service.recordWalletStatsPollingEvent(env.ctx)

	require.NoError(t, env.collection.Load(env.ctx))
	_, err := env.collection.Generate(env.ctx)
	require.NoError(t, err)

	env.service.recordWalletStatsPollingEvent(env.ctx)
}

func TestStart_DefaultInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := setup(t)

	ctx, cancel := context.WithCancel(env.ctx)
	cancel()
	assert.Equal(t, context.Canceled, env.service.Start(ctx, 0))
}
