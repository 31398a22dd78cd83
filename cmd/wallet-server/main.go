package main

import (
	"context"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/compressed-wallet/pkg/wallet/collection"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
	"github.com/code-payments/compressed-wallet/pkg/wallet/server/web"
	"github.com/code-payments/compressed-wallet/pkg/wallet/transfer"
	"github.com/code-payments/compressed-wallet/pkg/web/app"

	async_refresh "github.com/code-payments/compressed-wallet/pkg/wallet/async/refresh"
)

// newGateway is swapped out in tests
var newGateway = func(conf *config) gateway.Gateway {
	return gateway.New(conf.Network, conf.HeliusApiKey, gateway.WithEnvConfigs())
}

type walletApp struct {
	log *logrus.Entry

	server *web.Server

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	cancelRefresh context.CancelFunc
	refreshDone   chan struct{}
}

func newWalletApp() *walletApp {
	return &walletApp{
		log:        logrus.StandardLogger().WithField("type", "wallet-server"),
		shutdownCh: make(chan struct{}),
	}
}

// Init implements app.App
func (a *walletApp) Init(appConfig app.Config, metricsProvider *newrelic.Application) error {
	conf, err := decodeConfig(appConfig)
	if err != nil {
		return err
	}

	provider, err := newDataProvider(conf)
	if err != nil {
		return err
	}

	gw := newGateway(conf)
	wallets := collection.New(provider, gw)

	// The server reports wallets as loading until this succeeds, either
	// here or on a later refresh run.
	loadCtx, cancel := context.WithTimeout(context.Background(), conf.LoadTimeout)
	if err := wallets.Load(loadCtx); err != nil {
		a.log.WithError(err).Warn("failure loading wallets, deferring to refresh service")
	}
	cancel()

	a.server = web.NewWalletServer(wallets, gw, transfer.New(gw, wallets))

	refreshCtx, cancelRefresh := context.WithCancel(context.Background())
	a.cancelRefresh = cancelRefresh
	a.refreshDone = make(chan struct{})

	refresher := async_refresh.New(wallets, async_refresh.WithEnvConfigs())
	go func() {
		defer close(a.refreshDone)

		err := refresher.Start(refreshCtx, conf.RefreshInterval)
		if err != nil && err != context.Canceled {
			a.log.WithError(err).Warn("refresh service terminated unexpectedly")
		}
	}()

	a.log.WithFields(logrus.Fields{
		"network":     gw.Network(),
		"persistence": conf.Database != nil,
	}).Info("wallet server initialized")
	return nil
}

// RegisterWithRouter implements app.App
func (a *walletApp) RegisterWithRouter(router chi.Router) {
	a.server.RegisterRoutes(router)
}

// ShutdownChan implements app.App
func (a *walletApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App
func (a *walletApp) Stop() {
	a.shutdownOnce.Do(func() {
		if a.cancelRefresh != nil {
			a.cancelRefresh()
			<-a.refreshDone
		}
		close(a.shutdownCh)
	})
}

func newDataProvider(conf *config) (data.Provider, error) {
	if conf.Database == nil {
		logrus.StandardLogger().WithField("type", "wallet-server").Warn("no database configured, wallets won't survive a restart")
		return data.NewMemoryDataProvider()
	}

	sealingKey, err := conf.sealingKey()
	if err != nil {
		return nil, err
	}
	return data.NewDataProvider(conf.Database, sealingKey)
}

func main() {
	if err := app.Run(newWalletApp()); err != nil {
		logrus.WithError(err).Fatal("error running wallet server")
	}
}
