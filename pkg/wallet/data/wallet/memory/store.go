package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
)

type store struct {
	mu      sync.Mutex
	records map[string]*wallet.Wallet
}

// New returns a new in memory wallet.Store
func New() wallet.Store {
	return &store{
		records: make(map[string]*wallet.Wallet),
	}
}

// Put implements wallet.Store.Put
func (s *store) Put(_ context.Context, data *wallet.Wallet) error {
	if err := data.Validate(); err != nil {
		return errors.Wrap(wallet.ErrInvalidWallet, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.records[data.PublicKey]; ok {
		privateKey := item.PrivateKey
		createdAt := item.CreatedAt

		data.CopyTo(item)
		item.PrivateKey = privateKey
		item.CreatedAt = createdAt

		item.CopyTo(data)
		return nil
	}

	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	cloned := data.Clone()
	s.records[data.PublicKey] = &cloned

	return nil
}

// Get implements wallet.Store.Get
func (s *store) Get(_ context.Context, publicKey string) (*wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[publicKey]
	if !ok {
		return nil, wallet.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetAll implements wallet.Store.GetAll
func (s *store) GetAll(_ context.Context) ([]*wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return nil, wallet.ErrNotFound
	}

	res := make([]*wallet.Wallet, 0, len(s.records))
	for _, item := range s.records {
		cloned := item.Clone()
		res = append(res, &cloned)
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].PublicKey < res[j].PublicKey
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})

	return res, nil
}

// Delete implements wallet.Store.Delete
func (s *store) Delete(_ context.Context, publicKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[publicKey]; !ok {
		return wallet.ErrNotFound
	}

	delete(s.records, publicKey)
	return nil
}

// Count implements wallet.Store.Count
func (s *store) Count(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.records)), nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*wallet.Wallet)
}
