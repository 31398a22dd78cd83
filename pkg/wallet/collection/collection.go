package collection

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/code-payments/compressed-wallet/pkg/metrics"
	xsync "github.com/code-payments/compressed-wallet/pkg/sync"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
)

const (
	metricsStructName = "wallet.collection"

	walletLockStripes      = 256
	maxConcurrentRefreshes = 8
)

var (
	ErrNotHydrated    = errors.New("wallet collection isn't hydrated")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")
)

// Stats are aggregates over every wallet in the collection
type Stats struct {
	Count      int
	SolBalance uint64
	SplBalance uint64
	ZkBalance  uint64
}

// Collection is the set of wallets managed by the service, kept in memory
// and written through to the data provider. Wallets are ordered by creation.
//
// Nothing can be read or modified until Load has been called.
type Collection struct {
	log     *logrus.Entry
	data    data.Provider
	gateway gateway.Gateway

	walletLocks *xsync.StripedLock

	// Held while deleting a wallet or persisting a refresh batch
	persistMu sync.Mutex

	mu       sync.RWMutex
	hydrated bool
	ordered  []string
	wallets  map[string]*wallet.Wallet
}

func New(data data.Provider, gateway gateway.Gateway) *Collection {
	return &Collection{
		log:         logrus.StandardLogger().WithField("type", "wallet/collection"),
		data:        data,
		gateway:     gateway,
		walletLocks: xsync.NewStripedLock(walletLockStripes),
		wallets:     make(map[string]*wallet.Wallet),
	}
}

// Load fills the collection from the data provider. Subsequent calls reload
// the collection from scratch.
func (c *Collection) Load(ctx context.Context) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Load")
	defer tracer.End()

	records, err := c.data.GetAllWallets(ctx)
	if err == wallet.ErrNotFound {
		records = nil
	} else if err != nil {
		tracer.OnError(err)
		return errors.Wrap(err, "error loading wallets")
	}

	for _, record := range records {
		if err := c.data.AddKnownWallet(ctx, record.PublicKeyBytes()); err != nil {
			return errors.Wrap(err, "error marking wallet as known")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ordered = make([]string, 0, len(records))
	c.wallets = make(map[string]*wallet.Wallet, len(records))
	for _, record := range records {
		c.ordered = append(c.ordered, record.PublicKey)
		c.wallets[record.PublicKey] = record
	}
	c.hydrated = true

	c.log.WithFields(logrus.Fields{
		"method": "Load",
		"count":  len(records),
	}).Info("wallet collection hydrated")
	return nil
}

func (c *Collection) Hydrated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hydrated
}

// Wallets returns a snapshot of every wallet in creation order
func (c *Collection) Wallets() ([]*wallet.Wallet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hydrated {
		return nil, ErrNotHydrated
	}

	res := make([]*wallet.Wallet, 0, len(c.ordered))
	for _, publicKey := range c.ordered {
		cloned := c.wallets[publicKey].Clone()
		res = append(res, &cloned)
	}
	return res, nil
}

// Get returns a copy of the wallet with the base58 public key
func (c *Collection) Get(publicKey string) (*wallet.Wallet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hydrated {
		return nil, ErrNotHydrated
	}

	record, ok := c.wallets[publicKey]
	if !ok {
		return nil, ErrWalletNotFound
	}

	cloned := record.Clone()
	return &cloned, nil
}

// IsManaged reports whether the account belongs to a wallet in the
// collection.
func (c *Collection) IsManaged(ctx context.Context, publicKey ed25519.PublicKey) (bool, error) {
	known, err := c.data.TestForKnownWallet(ctx, publicKey)
	if err != nil {
		return false, err
	} else if !known {
		return false, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hydrated {
		return false, ErrNotHydrated
	}

	_, ok := c.wallets[base58.Encode(publicKey)]
	return ok, nil
}

// Generate creates, persists and returns a new wallet
func (c *Collection) Generate(ctx context.Context) (*wallet.Wallet, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Generate")
	defer tracer.End()

	record, err := wallet.Generate()
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	if err := c.Import(ctx, record); err != nil {
		tracer.OnError(err)
		return nil, err
	}

	cloned := record.Clone()
	return &cloned, nil
}

// Import adds an existing wallet to the collection
func (c *Collection) Import(ctx context.Context, record *wallet.Wallet) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Import")
	defer tracer.End()

	if !c.Hydrated() {
		return ErrNotHydrated
	}

	if err := record.Validate(); err != nil {
		return errors.Wrap(wallet.ErrInvalidWallet, err.Error())
	}

	lock := c.walletLocks.Get([]byte(record.PublicKey))
	lock.Lock()
	defer lock.Unlock()

	c.mu.RLock()
	_, exists := c.wallets[record.PublicKey]
	c.mu.RUnlock()
	if exists {
		return ErrWalletExists
	}

	cloned := record.Clone()
	if cloned.TxnHistory == nil {
		cloned.TxnHistory = []wallet.TxnHistoryItem{}
	}

	if err := c.data.SaveWallet(ctx, &cloned); err != nil {
		tracer.OnError(err)
		return errors.Wrap(err, "error saving wallet")
	}
	if err := c.data.AddKnownWallet(ctx, cloned.PublicKeyBytes()); err != nil {
		return errors.Wrap(err, "error marking wallet as known")
	}

	c.mu.Lock()
	c.ordered = append(c.ordered, cloned.PublicKey)
	c.wallets[cloned.PublicKey] = &cloned
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"method": "Import",
		"wallet": cloned.PublicKey,
	}).Debug("wallet added")
	return nil
}

// Remove deletes the wallet from the collection and the data provider
func (c *Collection) Remove(ctx context.Context, publicKey string) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Remove")
	defer tracer.End()

	if !c.Hydrated() {
		return ErrNotHydrated
	}

	lock := c.walletLocks.Get([]byte(publicKey))
	lock.Lock()
	defer lock.Unlock()

	c.mu.RLock()
	_, exists := c.wallets[publicKey]
	c.mu.RUnlock()
	if !exists {
		return ErrWalletNotFound
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	err := c.data.DeleteWallet(ctx, publicKey)
	if err != nil && err != wallet.ErrNotFound {
		tracer.OnError(err)
		return errors.Wrap(err, "error deleting wallet")
	}

	c.mu.Lock()
	delete(c.wallets, publicKey)
	for i, existing := range c.ordered {
		if existing == publicKey {
			c.ordered = append(c.ordered[:i], c.ordered[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	return nil
}

// UpdateWalletBalance refetches all three balances for the wallet
func (c *Collection) UpdateWalletBalance(ctx context.Context, publicKey string) error {
	return c.update(ctx, "UpdateWalletBalance", publicKey, true, func(ctx context.Context, owner ed25519.PublicKey) (func(*wallet.Wallet), error) {
		balances, err := c.gateway.GetAllBalances(ctx, owner)
		if err != nil {
			return nil, err
		}
		return func(record *wallet.Wallet) {
			record.SolBalance = balances.Sol
			record.SplBalance = balances.Spl
			record.ZkBalance = balances.Zk
		}, nil
	})
}

// UpdateWalletSolBalance refetches the wallet's SOL balance
func (c *Collection) UpdateWalletSolBalance(ctx context.Context, publicKey string) error {
	return c.update(ctx, "UpdateWalletSolBalance", publicKey, true, func(ctx context.Context, owner ed25519.PublicKey) (func(*wallet.Wallet), error) {
		balance, err := c.gateway.GetSolBalance(ctx, owner)
		if err != nil {
			return nil, err
		}
		return func(record *wallet.Wallet) {
			record.SolBalance = balance
		}, nil
	})
}

// UpdateWalletZkBalance refetches the wallet's compressed USDC balance
func (c *Collection) UpdateWalletZkBalance(ctx context.Context, publicKey string) error {
	return c.update(ctx, "UpdateWalletZkBalance", publicKey, true, func(ctx context.Context, owner ed25519.PublicKey) (func(*wallet.Wallet), error) {
		balance, err := c.gateway.GetZkBalance(ctx, owner)
		if err != nil {
			return nil, err
		}
		return func(record *wallet.Wallet) {
			record.ZkBalance = balance
		}, nil
	})
}

// UpdateWalletHistory refetches the wallet's transaction history
func (c *Collection) UpdateWalletHistory(ctx context.Context, publicKey string) error {
	return c.update(ctx, "UpdateWalletHistory", publicKey, true, c.fetchHistory)
}

// RefreshAll refreshes the balances and history of every wallet, then
// persists the collection. Failures are isolated to the wallet they occur on.
func (c *Collection) RefreshAll(ctx context.Context) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "RefreshAll")
	defer tracer.End()

	log := c.log.WithField("method", "RefreshAll")

	c.mu.RLock()
	if !c.hydrated {
		c.mu.RUnlock()
		return ErrNotHydrated
	}
	publicKeys := make([]string, len(c.ordered))
	copy(publicKeys, c.ordered)
	c.mu.RUnlock()

	var refreshedMu sync.Mutex
	var refreshed []string

	var eg errgroup.Group
	eg.SetLimit(maxConcurrentRefreshes)
	for _, publicKey := range publicKeys {
		publicKey := publicKey

		eg.Go(func() error {
			err := c.update(ctx, "RefreshAll", publicKey, false, c.fetchAll)
			if err == ErrWalletNotFound {
				return nil
			} else if err != nil {
				log.WithError(err).WithField("wallet", publicKey).Warn("failure refreshing wallet")
				return nil
			}

			refreshedMu.Lock()
			refreshed = append(refreshed, publicKey)
			refreshedMu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	c.persistMu.Lock()
	err := c.data.ExecuteInTx(ctx, sql.LevelDefault, func(ctx context.Context) error {
		for _, publicKey := range refreshed {
			if err := c.persist(ctx, publicKey); err != nil {
				return err
			}
		}
		return nil
	})
	c.persistMu.Unlock()
	if err != nil {
		tracer.OnError(err)
		return errors.Wrap(err, "error persisting refreshed wallets")
	}

	log.WithFields(logrus.Fields{
		"wallets":   len(publicKeys),
		"refreshed": len(refreshed),
	}).Debug("wallets refreshed")
	return nil
}

// Stats aggregates balances over the collection
func (c *Collection) Stats() (*Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hydrated {
		return nil, ErrNotHydrated
	}

	res := &Stats{Count: len(c.ordered)}
	for _, record := range c.wallets {
		res.SolBalance += record.SolBalance
		res.SplBalance += record.SplBalance
		res.ZkBalance += record.ZkBalance
	}
	return res, nil
}

type fetchFunc func(ctx context.Context, owner ed25519.PublicKey) (func(*wallet.Wallet), error)

func (c *Collection) fetchHistory(ctx context.Context, owner ed25519.PublicKey) (func(*wallet.Wallet), error) {
	history, err := c.gateway.GetTxnHistory(ctx, owner)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []wallet.TxnHistoryItem{}
	}
	return func(record *wallet.Wallet) {
		record.TxnHistory = history
	}, nil
}

func (c *Collection) fetchAll(ctx context.Context, owner ed25519.PublicKey) (func(*wallet.Wallet), error) {
	var balances *gateway.Balances
	var applyHistory func(*wallet.Wallet)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		balances, err = c.gateway.GetAllBalances(ctx, owner)
		return errors.Wrap(err, "error getting balances")
	})
	eg.Go(func() (err error) {
		applyHistory, err = c.fetchHistory(ctx, owner)
		return errors.Wrap(err, "error getting history")
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	now := time.Now()
	return func(record *wallet.Wallet) {
		record.SolBalance = balances.Sol
		record.SplBalance = balances.Spl
		record.ZkBalance = balances.Zk
		applyHistory(record)
		record.LastRefreshedAt = now
	}, nil
}

// update fetches fresh state for a wallet and applies it. The wallet is
// locked for the duration so it can't be removed mid-update.
func (c *Collection) update(ctx context.Context, method, publicKey string, persist bool, fetchFn fetchFunc) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, method)
	defer tracer.End()

	if !c.Hydrated() {
		return ErrNotHydrated
	}

	owner, err := wallet.ParsePublicKey(publicKey)
	if err != nil {
		return ErrWalletNotFound
	}

	lock := c.walletLocks.Get([]byte(publicKey))
	lock.Lock()
	defer lock.Unlock()

	c.mu.RLock()
	_, exists := c.wallets[publicKey]
	c.mu.RUnlock()
	if !exists {
		return ErrWalletNotFound
	}

	applyFn, err := fetchFn(ctx, owner)
	if err != nil {
		tracer.OnError(err)
		return err
	}

	c.mu.Lock()
	record, ok := c.wallets[publicKey]
	if ok {
		applyFn(record)
	}
	c.mu.Unlock()
	if !ok {
		return ErrWalletNotFound
	}

	if !persist {
		return nil
	}

	if err := c.persist(ctx, publicKey); err != nil {
		tracer.OnError(err)
		return err
	}
	return nil
}

// persist writes the in-memory copy of the wallet through to the provider
func (c *Collection) persist(ctx context.Context, publicKey string) error {
	c.mu.RLock()
	record, ok := c.wallets[publicKey]
	var cloned wallet.Wallet
	if ok {
		cloned = record.Clone()
	}
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := c.data.SaveWallet(ctx, &cloned); err != nil {
		return errors.Wrapf(err, "error saving wallet %s", publicKey)
	}
	return nil
}
