package async_refresh

import (
	"context"
	"time"

	"github.com/code-payments/compressed-wallet/pkg/metrics"
	"github.com/code-payments/compressed-wallet/pkg/wallet/collection"
)

const (
	walletStatsEventName      = "WalletCollectionPollingCheck"
	refreshDurationMetricName = "Refresh/duration_ms"
)

func (p *service) metricsGaugeWorker(ctx context.Context) error {
	delay := p.conf.metricsInterval.Get(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			start := time.Now()

			p.recordWalletStatsPollingEvent(ctx)

			delay = p.conf.metricsInterval.Get(ctx) - time.Since(start)
		}
	}
}

func (p *service) recordWalletStatsPollingEvent(ctx context.Context) {
	stats, err := p.collection.Stats()
	if err == collection.ErrNotHydrated {
		return
	} else if err != nil {
		p.log.WithError(err).Warn("failure getting wallet stats")
		return
	}

	metrics.SetWalletGauges(stats.Count, stats.SolBalance, stats.SplBalance, stats.ZkBalance)
	metrics.RecordEvent(ctx, walletStatsEventName, map[string]interface{}{
		"wallet_count": stats.Count,
		"sol_balance":  stats.SolBalance,
		"spl_balance":  stats.SplBalance,
		"zk_balance":   stats.ZkBalance,
	})
}
