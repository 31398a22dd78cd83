package token

import (
	"crypto/ed25519"

	"github.com/code-payments/compressed-wallet/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// AccountSize is the packed size of an SPL token account.
const AccountSize = 165

// COption fields in the token program use a four byte tag.
const optionTagSize = 4

// Account is the decoded state of an SPL token account.
type Account struct {
	Mint   ed25519.PublicKey
	Owner  ed25519.PublicKey
	Amount uint64

	// Delegate, when set, may move up to DelegatedAmount on behalf of Owner.
	Delegate ed25519.PublicKey
	State    AccountState

	// IsNative holds the rent exempt reserve for wrapped SOL accounts.
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	enc := binary.NewEncoder(AccountSize)
	enc.Key(a.Mint)
	enc.Key(a.Owner)
	enc.Uint64(a.Amount)
	enc.OptionalKey(a.Delegate, optionTagSize)
	enc.Uint8(uint8(a.State))
	enc.OptionalUint64(a.IsNative, optionTagSize)
	enc.Uint64(a.DelegatedAmount)
	enc.OptionalKey(a.CloseAuthority, optionTagSize)
	return enc.Bytes()
}

// Unmarshal decodes packed account state, reporting false when the data
// isn't sized like a token account.
func (a *Account) Unmarshal(data []byte) bool {
	if len(data) != AccountSize {
		return false
	}

	dec := binary.NewDecoder(data)
	a.Mint = dec.Key()
	a.Owner = dec.Key()
	a.Amount = dec.Uint64()
	a.Delegate = dec.OptionalKey(optionTagSize)
	a.State = AccountState(dec.Uint8())
	a.IsNative = dec.OptionalUint64(optionTagSize)
	a.DelegatedAmount = dec.Uint64()
	a.CloseAuthority = dec.OptionalKey(optionTagSize)
	return true
}
