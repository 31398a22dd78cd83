package gateway

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/sol"
	"github.com/code-payments/compressed-wallet/pkg/solana"
	"github.com/code-payments/compressed-wallet/pkg/solana/compression"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
)

const (
	DefaultAirdropLamports = sol.LamportsPerSol

	// MaxTxnHistory is the number of history items returned per wallet
	MaxTxnHistory = 50

	UsdcFaucetURL = "https://faucet.circle.com/"

	explorerBaseURL = "https://explorer.solana.com"
)

var (
	ErrAirdropUnavailable = errors.New("airdrops are only available on devnet")
	ErrAirdropRateLimited = errors.New("airdrop rate limit exceeded for address")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrTransactionFailed  = errors.New("transaction failed")

	ErrInsufficientRentBalance = errors.New("fee payer cannot cover rent for the destination token account")
)

// Balances are a wallet's balances in base units
type Balances struct {
	Sol uint64
	Spl uint64
	Zk  uint64
}

// Gateway is the remote API used to read wallet state and move value. Sends
// take the fee payer and the source wallet's secret keys and return the
// base58 transaction signature once the transaction is confirmed.
type Gateway interface {
	Network() solana.Network

	GetSolBalance(ctx context.Context, owner ed25519.PublicKey) (uint64, error)
	GetSplBalance(ctx context.Context, owner ed25519.PublicKey) (uint64, error)
	GetZkBalance(ctx context.Context, owner ed25519.PublicKey) (uint64, error)
	GetAllBalances(ctx context.Context, owner ed25519.PublicKey) (*Balances, error)

	// Airdrop requests devnet SOL. A zero amount requests DefaultAirdropLamports.
	Airdrop(ctx context.Context, owner ed25519.PublicKey, lamports uint64) (string, error)

	GetTxnHistory(ctx context.Context, owner ed25519.PublicKey) ([]wallet.TxnHistoryItem, error)
	GetCompressedSigHistory(ctx context.Context, owner ed25519.PublicKey) ([]*compression.SignatureInfo, error)
	GetTransactionWithCompressionInfo(ctx context.Context, sig string) (*compression.TransactionWithCompressionInfo, error)

	TransferSol(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, lamports uint64) (string, error)
	TransferSpl(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error)
	Compress(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error)
	Decompress(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error)
	TransferZk(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error)

	ExplorerTxURL(sig string) string
	ExplorerAddressURL(address string) string
}

// ExplorerTxURL links to a transaction on the block explorer
func ExplorerTxURL(network solana.Network, sig string) string {
	return fmt.Sprintf("%s/tx/%s?cluster=%s", explorerBaseURL, sig, network.ExplorerCluster())
}

// ExplorerAddressURL links to an account on the block explorer
func ExplorerAddressURL(network solana.Network, address string) string {
	return fmt.Sprintf("%s/address/%s?cluster=%s", explorerBaseURL, address, network.ExplorerCluster())
}

// mergeHistory combines compressed and regular signatures. Compressed entries
// win duplicates, results are ordered by descending slot and capped at
// MaxTxnHistory.
func mergeHistory(compressed []*compression.SignatureInfo, regular []*solana.TransactionSignature) []wallet.TxnHistoryItem {
	seen := make(map[solana.Signature]struct{}, len(compressed))

	items := make([]wallet.TxnHistoryItem, 0, len(compressed)+len(regular))
	for _, sig := range compressed {
		if _, ok := seen[sig.Signature]; ok {
			continue
		}
		seen[sig.Signature] = struct{}{}

		items = append(items, wallet.TxnHistoryItem{
			Signature:    sig.Signature.String(),
			Slot:         sig.Slot,
			IsCompressed: true,
		})
	}
	for _, sig := range regular {
		if _, ok := seen[sig.Signature]; ok {
			continue
		}
		seen[sig.Signature] = struct{}{}

		items = append(items, wallet.TxnHistoryItem{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Slot > items[j].Slot
	})

	if len(items) > MaxTxnHistory {
		items = items[:MaxTxnHistory]
	}
	return items
}
