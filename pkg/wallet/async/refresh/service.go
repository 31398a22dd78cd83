package async_refresh

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/compressed-wallet/pkg/metrics"
	"github.com/code-payments/compressed-wallet/pkg/retry"
	"github.com/code-payments/compressed-wallet/pkg/wallet/async"
	"github.com/code-payments/compressed-wallet/pkg/wallet/collection"
)

const (
	DefaultInterval = 10 * time.Second
)

type service struct {
	log        *logrus.Entry
	conf       *conf
	collection *collection.Collection
}

// New returns a service that periodically refreshes the balances and history
// of every wallet in the collection.
func New(collection *collection.Collection, configProvider ConfigProvider) async.Service {
	return &service{
		log:        logrus.StandardLogger().WithField("service", "refresh"),
		conf:       configProvider(),
		collection: collection,
	}
}

// Start runs the refresh and metrics loops until ctx is done. It returns once
// both loops have exited.
func (p *service) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		err := p.refreshWorker(ctx, interval)
		if err != nil && err != ctx.Err() {
			p.log.WithError(err).Warn("wallet refresh loop terminated unexpectedly")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		err := p.metricsGaugeWorker(ctx)
		if err != nil && err != ctx.Err() {
			p.log.WithError(err).Warn("wallet metrics gauge loop terminated unexpectedly")
		}
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (p *service) refreshWorker(serviceCtx context.Context, interval time.Duration) error {
	log := p.log.WithField("method", "refreshWorker")

	return retry.Loop(
		func() error {
			select {
			case <-serviceCtx.Done():
				return serviceCtx.Err()
			case <-time.After(interval):
			}

			err := p.runOnce(serviceCtx)
			if err != nil && serviceCtx.Err() == nil {
				log.WithError(err).Warn("failure refreshing wallets")
			}
			return serviceCtx.Err()
		},
		retry.NonRetriableErrors(context.Canceled, context.DeadlineExceeded),
		func(_ uint, _ error) bool {
			return serviceCtx.Err() == nil
		},
	)
}

func (p *service) runOnce(serviceCtx context.Context) error {
	tracedCtx, txn := metrics.StartTransaction(serviceCtx, "async__refresh_service__refresh_wallets")
	defer txn.End()

	ctx, cancel := context.WithTimeout(tracedCtx, p.conf.runTimeout.Get(serviceCtx))
	defer cancel()

	start := time.Now()

	err := p.collection.RefreshAll(ctx)
	if err == collection.ErrNotHydrated {
		err = p.collection.Load(ctx)
		if err == nil {
			err = p.collection.RefreshAll(ctx)
		}
	}

	metrics.ObserveRefreshRun(err == nil, time.Since(start))
	metrics.RecordDuration(ctx, refreshDurationMetricName, time.Since(start))
	if err != nil {
		txn.NoticeError(err)
		return err
	}
	return nil
}
