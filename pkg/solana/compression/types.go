package compression

import (
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"

	"github.com/code-payments/compressed-wallet/pkg/solana"
)

const (
	HashSize = 32

	proofASize = 32
	proofBSize = 64
	proofCSize = 32
)

// Hash identifies a compressed account leaf in a state tree
type Hash [HashSize]byte

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return base58.Encode(h[:])
}

// TokenBalance is the aggregate compressed balance of a single mint for an
// owner.
type TokenBalance struct {
	Mint    ed25519.PublicKey
	Balance uint64
}

// CompressedAccount is a leaf in a state tree, as reported by the indexer.
type CompressedAccount struct {
	Hash        Hash
	Address     []byte
	Owner       ed25519.PublicKey
	Lamports    uint64
	Tree        ed25519.PublicKey
	LeafIndex   uint32
	Seq         *uint64
	SlotCreated uint64
}

// TokenData is the token state packed into a compressed token account
type TokenData struct {
	Mint     ed25519.PublicKey
	Owner    ed25519.PublicKey
	Amount   uint64
	Delegate ed25519.PublicKey
	State    string
}

// TokenAccount is a compressed account owned by the compressed-token program
type TokenAccount struct {
	Account   CompressedAccount
	TokenData TokenData
}

// CompressedProof is a Groth16 proof in its compressed form
type CompressedProof struct {
	A [proofASize]byte
	B [proofBSize]byte
	C [proofCSize]byte
}

// ValidityProof proves the inclusion of a set of compressed accounts. The
// slices are parallel to the hashes the proof was requested for.
type ValidityProof struct {
	CompressedProof *CompressedProof
	Roots           []Hash
	RootIndices     []uint16
	LeafIndices     []uint32
	Leaves          []Hash
	MerkleTrees     []ed25519.PublicKey
	NullifierQueues []ed25519.PublicKey
}

// SignatureInfo is a transaction signature that touched compressed state
type SignatureInfo struct {
	Signature solana.Signature
	Slot      uint64
	BlockTime *time.Time
}

// AccountWithTokenData is a compressed account created or consumed by a
// transaction, along with its token state when it's a token account.
type AccountWithTokenData struct {
	Account   CompressedAccount
	TokenData *TokenData
}

// TransactionWithCompressionInfo describes the compressed state changes made
// by a transaction.
type TransactionWithCompressionInfo struct {
	Signature      solana.Signature
	Slot           uint64
	OpenedAccounts []*AccountWithTokenData
	ClosedAccounts []*AccountWithTokenData
}

// TokenBalanceDeltas sums the opened and closed token amounts per owner for
// the given mint. Positive values are received tokens.
func (t *TransactionWithCompressionInfo) TokenBalanceDeltas(mint ed25519.PublicKey) map[string]int64 {
	deltas := make(map[string]int64)

	apply := func(accounts []*AccountWithTokenData, sign int64) {
		for _, account := range accounts {
			if account.TokenData == nil || !account.TokenData.Mint.Equal(mint) {
				continue
			}
			owner := base58.Encode(account.TokenData.Owner)
			deltas[owner] += sign * int64(account.TokenData.Amount)
		}
	}

	apply(t.OpenedAccounts, 1)
	apply(t.ClosedAccounts, -1)

	return deltas
}
