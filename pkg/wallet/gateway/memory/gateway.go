package memory

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/solana"
	"github.com/code-payments/compressed-wallet/pkg/solana/compression"
	"github.com/code-payments/compressed-wallet/pkg/usdc"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
)

// FeeLamports is charged to the fee payer for every transaction
const FeeLamports = 5000

var ErrInsufficientFunds = errors.New("insufficient funds")

type transaction struct {
	sig  solana.Signature
	slot uint64

	isCompressed bool
	participants []string

	opened []*compression.AccountWithTokenData
	closed []*compression.AccountWithTokenData
}

// Gateway is an in memory ledger implementing gateway.Gateway. Transactions
// settle immediately.
type Gateway struct {
	mu sync.Mutex

	network solana.Network
	mint    ed25519.PublicKey

	balances     map[string]*gateway.Balances
	transactions []*transaction
	slot         uint64

	failures map[string]error
	calls    map[string]int
}

func New(network solana.Network) *Gateway {
	g := &Gateway{network: network}
	g.reset()
	return g
}

func (g *Gateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.mint = usdc.MintForNetwork(g.network.String())
	g.balances = make(map[string]*gateway.Balances)
	g.transactions = nil
	g.slot = 1
	g.failures = make(map[string]error)
	g.calls = make(map[string]int)
}

// SetBalances overrides the balances held by owner
func (g *Gateway) SetBalances(owner ed25519.PublicKey, balances gateway.Balances) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.balances[base58.Encode(owner)] = &balances
}

// InduceFailure makes every subsequent call to method fail with err. A nil
// error clears the failure.
func (g *Gateway) InduceFailure(method string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err == nil {
		delete(g.failures, method)
		return
	}
	g.failures[method] = err
}

// Calls returns the number of times method was called
func (g *Gateway) Calls(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls[method]
}

func (g *Gateway) Network() solana.Network {
	return g.network
}

func (g *Gateway) GetSolBalance(_ context.Context, owner ed25519.PublicKey) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter("GetSolBalance"); err != nil {
		return 0, err
	}
	return g.getBalances(owner).Sol, nil
}

func (g *Gateway) GetSplBalance(_ context.Context, owner ed25519.PublicKey) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter("GetSplBalance"); err != nil {
		return 0, err
	}
	return g.getBalances(owner).Spl, nil
}

func (g *Gateway) GetZkBalance(_ context.Context, owner ed25519.PublicKey) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter("GetZkBalance"); err != nil {
		return 0, err
	}
	return g.getBalances(owner).Zk, nil
}

func (g *Gateway) GetAllBalances(_ context.Context, owner ed25519.PublicKey) (*gateway.Balances, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter("GetAllBalances"); err != nil {
		return nil, err
	}

	cloned := *g.getBalances(owner)
	return &cloned, nil
}

func (g *Gateway) Airdrop(_ context.Context, owner ed25519.PublicKey, lamports uint64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter("Airdrop"); err != nil {
		return "", err
	}
	if g.network != solana.NetworkDevnet {
		return "", gateway.ErrAirdropUnavailable
	}
	if lamports == 0 {
		lamports = gateway.DefaultAirdropLamports
	}

	g.getBalances(owner).Sol += lamports
	return g.record(false, owner), nil
}

func (g *Gateway) GetTxnHistory(_ context.Context, owner ed25519.PublicKey) ([]wallet.TxnHistoryItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter("GetTxnHistory"); err != nil {
		return nil, err
	}

	address := base58.Encode(owner)

	var res []wallet.TxnHistoryItem
	for i := len(g.transactions) - 1; i >= 0 && len(res) < gateway.MaxTxnHistory; i-- {
		txn := g.transactions[i]
		if !contains(txn.participants, address) {
			continue
		}

		res = append(res, wallet.TxnHistoryItem{
			Signature:    txn.sig.String(),
			Slot:         txn.slot,
			IsCompressed: txn.isCompressed,
		})
	}
	return res, nil
}

func (g *Gateway) GetCompressedSigHistory(_ context.Context, owner ed25519.PublicKey) ([]*compression.SignatureInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter("GetCompressedSigHistory"); err != nil {
		return nil, err
	}

	address := base58.Encode(owner)

	var res []*compression.SignatureInfo
	for i := len(g.transactions) - 1; i >= 0; i-- {
		txn := g.transactions[i]
		if !txn.isCompressed || !contains(txn.participants, address) {
			continue
		}

		res = append(res, &compression.SignatureInfo{
			Signature: txn.sig,
			Slot:      txn.slot,
		})
	}
	return res, nil
}

func (g *Gateway) GetTransactionWithCompressionInfo(_ context.Context, sig string) (*compression.TransactionWithCompressionInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter("GetTransactionWithCompressionInfo"); err != nil {
		return nil, err
	}

	decoded, err := solana.ParseSignature(sig)
	if err != nil {
		return nil, err
	}

	for _, txn := range g.transactions {
		if txn.sig == decoded {
			return &compression.TransactionWithCompressionInfo{
				Signature:      txn.sig,
				Slot:           txn.slot,
				OpenedAccounts: txn.opened,
				ClosedAccounts: txn.closed,
			}, nil
		}
	}
	return nil, compression.ErrTransactionNotFound
}

func (g *Gateway) TransferSol(_ context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, lamports uint64) (string, error) {
	sig, err := g.transfer("TransferSol", feePayer, from, to, lamports, false, func(src, dst *gateway.Balances) bool {
		if src.Sol < lamports {
			return false
		}
		src.Sol -= lamports
		dst.Sol += lamports
		return true
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to transfer sol")
	}
	return sig, nil
}

func (g *Gateway) TransferSpl(_ context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error) {
	sig, err := g.transfer("TransferSpl", feePayer, from, to, quarks, false, func(src, dst *gateway.Balances) bool {
		if src.Spl < quarks {
			return false
		}
		src.Spl -= quarks
		dst.Spl += quarks
		return true
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to transfer spl tokens")
	}
	return sig, nil
}

func (g *Gateway) Compress(_ context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error) {
	sig, err := g.transfer("Compress", feePayer, from, to, quarks, true, func(src, dst *gateway.Balances) bool {
		if src.Spl < quarks {
			return false
		}
		src.Spl -= quarks
		dst.Zk += quarks
		return true
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to compress tokens")
	}
	return sig, nil
}

func (g *Gateway) Decompress(_ context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error) {
	sig, err := g.transfer("Decompress", feePayer, from, to, quarks, true, func(src, dst *gateway.Balances) bool {
		if src.Zk < quarks {
			return false
		}
		src.Zk -= quarks
		dst.Spl += quarks
		return true
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to decompress tokens")
	}
	return sig, nil
}

func (g *Gateway) TransferZk(_ context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error) {
	sig, err := g.transfer("TransferZk", feePayer, from, to, quarks, true, func(src, dst *gateway.Balances) bool {
		if src.Zk < quarks {
			return false
		}
		src.Zk -= quarks
		dst.Zk += quarks
		return true
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to transfer zk tokens")
	}
	return sig, nil
}

func (g *Gateway) ExplorerTxURL(sig string) string {
	return gateway.ExplorerTxURL(g.network, sig)
}

func (g *Gateway) ExplorerAddressURL(address string) string {
	return gateway.ExplorerAddressURL(g.network, address)
}

func (g *Gateway) transfer(
	method string,
	feePayer, from ed25519.PrivateKey,
	to ed25519.PublicKey,
	amount uint64,
	isCompressed bool,
	moveFn func(src, dst *gateway.Balances) bool,
) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(method); err != nil {
		return "", err
	}
	if amount == 0 {
		return "", gateway.ErrInvalidAmount
	}

	// Balances are staged so a failed move leaves the ledger untouched
	staged := make(map[string]*gateway.Balances)
	stage := func(owner ed25519.PublicKey) *gateway.Balances {
		address := base58.Encode(owner)
		if balances, ok := staged[address]; ok {
			return balances
		}
		cloned := *g.getBalances(owner)
		staged[address] = &cloned
		return &cloned
	}

	payer := stage(publicKey(feePayer))
	if payer.Sol < FeeLamports {
		return "", errors.Wrap(ErrInsufficientFunds, "fee payer can't cover the fee")
	}
	payer.Sol -= FeeLamports

	if !moveFn(stage(publicKey(from)), stage(to)) {
		return "", ErrInsufficientFunds
	}

	for address, balances := range staged {
		g.balances[address] = balances
	}

	if isCompressed {
		return g.recordCompressed(publicKey(from), to, amount, publicKey(feePayer)), nil
	}
	return g.record(false, publicKey(from), to, publicKey(feePayer)), nil
}

func (g *Gateway) enter(method string) error {
	g.calls[method]++
	return g.failures[method]
}

func (g *Gateway) getBalances(owner ed25519.PublicKey) *gateway.Balances {
	address := base58.Encode(owner)

	balances, ok := g.balances[address]
	if !ok {
		balances = &gateway.Balances{}
		g.balances[address] = balances
	}
	return balances
}

func (g *Gateway) record(isCompressed bool, participants ...ed25519.PublicKey) string {
	txn := &transaction{
		slot:         g.slot,
		isCompressed: isCompressed,
	}
	_, _ = rand.Read(txn.sig[:])
	for _, participant := range participants {
		txn.participants = append(txn.participants, base58.Encode(participant))
	}

	g.slot++
	g.transactions = append(g.transactions, txn)
	return txn.sig.String()
}

func (g *Gateway) recordCompressed(from, to ed25519.PublicKey, amount uint64, feePayer ed25519.PublicKey) string {
	sig := g.record(true, from, to, feePayer)

	txn := g.transactions[len(g.transactions)-1]
	txn.closed = []*compression.AccountWithTokenData{
		{TokenData: &compression.TokenData{Mint: g.mint, Owner: from, Amount: amount}},
	}
	txn.opened = []*compression.AccountWithTokenData{
		{TokenData: &compression.TokenData{Mint: g.mint, Owner: to, Amount: amount}},
	}
	return sig
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func publicKey(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}
