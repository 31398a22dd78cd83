package data

import (
	"context"
	"errors"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/code-payments/compressed-wallet/pkg/metrics"
)

const (
	estimatedProviderMetricsName = "data.estimated_provider"
)

var (
	maxEstimatedWallets        = 100000
	maxEstimatedWalletsErrRate = 0.01
)

var (
	ErrInvalidWalletKey = errors.New("invalid wallet key")
)

// EstimatedData answers membership questions probabilistically. A negative
// answer is definitive, a positive one must be confirmed.
type EstimatedData interface {
	TestForKnownWallet(ctx context.Context, publicKey []byte) (bool, error)
	AddKnownWallet(ctx context.Context, publicKey []byte) error
}

type EstimatedProvider struct {
	mu           sync.RWMutex
	knownWallets *bloom.BloomFilter
}

func NewEstimatedProvider() (EstimatedData, error) {
	return &EstimatedProvider{
		knownWallets: bloom.NewWithEstimates(uint(maxEstimatedWallets), maxEstimatedWalletsErrRate),
	}, nil
}

func (p *EstimatedProvider) TestForKnownWallet(ctx context.Context, publicKey []byte) (bool, error) {
	tracer := metrics.TraceMethodCall(ctx, estimatedProviderMetricsName, "TestForKnownWallet")
	defer tracer.End()

	if len(publicKey) == 0 {
		return false, ErrInvalidWalletKey
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.knownWallets.Test(publicKey), nil
}

func (p *EstimatedProvider) AddKnownWallet(ctx context.Context, publicKey []byte) error {
	tracer := metrics.TraceMethodCall(ctx, estimatedProviderMetricsName, "AddKnownWallet")
	defer tracer.End()

	if len(publicKey) == 0 {
		return ErrInvalidWalletKey
	}

	p.mu.Lock()
	p.knownWallets.Add(publicKey)
	p.mu.Unlock()
	return nil
}
