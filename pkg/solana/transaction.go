package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// MaxTransactionSize is the largest serialized transaction the cluster
// accepts in a single packet.
const MaxTransactionSize = 1232

type Signature [ed25519.SignatureSize]byte

type Blockhash [sha256.Size]byte

var ErrInvalidSignature = errors.New("invalid transaction signature")

// ParseSignature decodes a base58 transaction signature.
func ParseSignature(value string) (Signature, error) {
	var sig Signature

	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != len(sig) {
		return sig, ErrInvalidSignature
	}

	copy(sig[:], decoded)
	return sig, nil
}

func (s Signature) String() string {
	return base58.Encode(s[:])
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewLegacyTransaction builds an unsigned transaction that references every
// account statically.
func NewLegacyTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	return newTransaction(compileMessage(payer, nil, instructions))
}

// NewV0Transaction builds an unsigned transaction that loads eligible
// accounts through the provided lookup tables. The legacy format is used
// when none of the tables end up referenced.
func NewV0Transaction(payer ed25519.PublicKey, addressLookupTables []AddressLookupTable, instructions []Instruction) Transaction {
	return newTransaction(compileMessage(payer, addressLookupTables, instructions))
}

func newTransaction(m Message) Transaction {
	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// Signature returns the fee payer's signature, which identifies the
// transaction on chain.
func (t *Transaction) Signature() []byte {
	return t.Signatures[0][:]
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign signs the current message with each key, placing every signature in
// the slot of its signer regardless of argument order.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	message := t.Message.Marshal()

	for _, signer := range signers {
		pub := signer.Public().(ed25519.PublicKey)

		index := indexOfKey(t.Message.Accounts, pub)
		switch {
		case index < 0:
			return errors.Errorf("signing account %s is not in the account list", base58.Encode(pub))
		case index >= len(t.Signatures):
			return errors.Errorf("signing account %s is not a required signer", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(signer, message))
	}

	return nil
}

func (t *Transaction) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s transaction, header=%+v, blockhash=%s\n", t.Message.Version, t.Message.Header, base58.Encode(t.Message.RecentBlockhash[:]))
	for i, sig := range t.Signatures {
		fmt.Fprintf(&sb, "  signature[%d]: %s\n", i, sig)
	}
	for i, account := range t.Message.Accounts {
		fmt.Fprintf(&sb, "  account[%d]: %s\n", i, base58.Encode(account))
	}
	for i, instruction := range t.Message.Instructions {
		fmt.Fprintf(&sb, "  instruction[%d]: program=%d accounts=%v data=%x\n", i, instruction.ProgramIndex, instruction.Accounts, instruction.Data)
	}
	for _, lookup := range t.Message.AddressTableLookups {
		fmt.Fprintf(&sb, "  lookup %s: writable=%v readonly=%v\n", base58.Encode(lookup.PublicKey), lookup.WritableIndexes, lookup.ReadonlyIndexes)
	}

	return sb.String()
}
