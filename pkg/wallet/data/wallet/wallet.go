package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidPublicKey  = errors.New("invalid public key")
)

// TxnHistoryItem is a single transaction signature involving the wallet
type TxnHistoryItem struct {
	Signature    string `json:"signature"`
	Slot         uint64 `json:"slot"`
	IsCompressed bool   `json:"isCompressed"`
}

// Wallet is a disposable keypair along with its last observed balances and
// transaction history. Balances are in base units: lamports for SOL and quarks
// for USDC.
type Wallet struct {
	PublicKey  string
	PrivateKey ed25519.PrivateKey

	SolBalance uint64
	SplBalance uint64
	ZkBalance  uint64

	TxnHistory []TxnHistoryItem

	CreatedAt       time.Time
	LastRefreshedAt time.Time
}

// Generate creates a wallet over a new random keypair, with zero balances and
// no history.
func Generate() (*Wallet, error) {
	_, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "error generating keypair")
	}

	return FromPrivateKey(privateKey)
}

// FromPrivateKey creates a wallet for an existing 64 byte ed25519 secret key
func FromPrivateKey(privateKey ed25519.PrivateKey) (*Wallet, error) {
	if err := validatePrivateKey(privateKey); err != nil {
		return nil, err
	}

	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(key, privateKey)

	return &Wallet{
		PublicKey:  base58.Encode(key.Public().(ed25519.PublicKey)),
		PrivateKey: key,
		TxnHistory: []TxnHistoryItem{},
		CreatedAt:  time.Now(),
	}, nil
}

// ParsePrivateKey decodes a secret key in either of the formats wallets are
// commonly exported in: base58, or a JSON byte array as written by the Solana
// CLI.
func ParsePrivateKey(value string) (ed25519.PrivateKey, error) {
	value = strings.TrimSpace(value)

	var decoded []byte
	if strings.HasPrefix(value, "[") {
		var raw []int
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			return nil, ErrInvalidPrivateKey
		}
		for _, b := range raw {
			if b < 0 || b > 255 {
				return nil, ErrInvalidPrivateKey
			}
			decoded = append(decoded, byte(b))
		}
	} else {
		var err error
		decoded, err = base58.Decode(value)
		if err != nil {
			return nil, ErrInvalidPrivateKey
		}
	}

	if err := validatePrivateKey(decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// ParsePublicKey decodes a base58 encoded 32 byte public key
func ParsePublicKey(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(strings.TrimSpace(value))
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	return decoded, nil
}

func validatePrivateKey(privateKey []byte) error {
	if len(privateKey) != ed25519.PrivateKeySize {
		return ErrInvalidPrivateKey
	}

	derived := ed25519.NewKeyFromSeed(privateKey[:ed25519.SeedSize])
	if !bytes.Equal(derived, privateKey) {
		return ErrInvalidPrivateKey
	}
	return nil
}

// PublicKeyBytes returns the raw public key
func (w *Wallet) PublicKeyBytes() ed25519.PublicKey {
	return w.PrivateKey.Public().(ed25519.PublicKey)
}

// PrivateKeyString returns the base58 encoded secret key
func (w *Wallet) PrivateKeyString() string {
	return base58.Encode(w.PrivateKey)
}

func (w *Wallet) Validate() error {
	if len(w.PublicKey) == 0 {
		return errors.New("public key is required")
	}

	publicKey, err := ParsePublicKey(w.PublicKey)
	if err != nil {
		return err
	}

	if err := validatePrivateKey(w.PrivateKey); err != nil {
		return err
	}

	if !bytes.Equal(publicKey, w.PrivateKey.Public().(ed25519.PublicKey)) {
		return errors.New("public key doesn't match private key")
	}

	for _, item := range w.TxnHistory {
		if len(item.Signature) == 0 {
			return errors.New("history item signature is required")
		}
	}

	return nil
}

func (w *Wallet) Clone() Wallet {
	cloned := Wallet{}
	w.CopyTo(&cloned)
	return cloned
}

func (w *Wallet) CopyTo(dst *Wallet) {
	dst.PublicKey = w.PublicKey

	dst.PrivateKey = nil
	if w.PrivateKey != nil {
		dst.PrivateKey = make(ed25519.PrivateKey, len(w.PrivateKey))
		copy(dst.PrivateKey, w.PrivateKey)
	}

	dst.SolBalance = w.SolBalance
	dst.SplBalance = w.SplBalance
	dst.ZkBalance = w.ZkBalance

	dst.TxnHistory = nil
	if w.TxnHistory != nil {
		dst.TxnHistory = make([]TxnHistoryItem, len(w.TxnHistory))
		copy(dst.TxnHistory, w.TxnHistory)
	}

	dst.CreatedAt = w.CreatedAt
	dst.LastRefreshedAt = w.LastRefreshedAt
}
