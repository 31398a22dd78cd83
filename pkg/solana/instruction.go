package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta describes how an instruction uses an account.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	isPayer   bool
	isProgram bool
}

// NewAccountMeta returns a writable account reference.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner, IsWritable: true}
}

// NewReadonlyAccountMeta returns a readonly account reference.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner}
}

// canLookup reports whether the account may be loaded from an address lookup
// table rather than listed statically in the message.
func (m AccountMeta) canLookup() bool {
	return !m.isPayer && !m.IsSigner && !m.isProgram
}

// precedes orders accounts within a message. The fee payer comes first and
// invoked programs last. Signers precede non-signers and writable accounts
// precede readonly ones. Remaining ties are broken by key.
func (m AccountMeta) precedes(other AccountMeta) bool {
	switch {
	case m.isPayer != other.isPayer:
		return m.isPayer
	case m.isProgram != other.isProgram:
		return other.isProgram
	case m.IsSigner != other.IsSigner:
		return m.IsSigner
	case m.IsWritable != other.IsWritable:
		return m.IsWritable
	}
	return bytes.Compare(m.PublicKey, other.PublicKey) < 0
}

// dedupeAccounts collapses repeated keys into their first occurrence, which
// inherits the most permissive flags of every duplicate.
func dedupeAccounts(accounts []AccountMeta) []AccountMeta {
	unique := make([]AccountMeta, 0, len(accounts))
	for _, account := range accounts {
		i := indexOfAccount(unique, account.PublicKey)
		if i < 0 {
			unique = append(unique, account)
			continue
		}

		unique[i].IsSigner = unique[i].IsSigner || account.IsSigner
		unique[i].IsWritable = unique[i].IsWritable || account.IsWritable
		unique[i].isPayer = unique[i].isPayer || account.isPayer
	}
	return unique
}

func indexOfAccount(accounts []AccountMeta, key ed25519.PublicKey) int {
	for i := range accounts {
		if bytes.Equal(accounts[i].PublicKey, key) {
			return i
		}
	}
	return -1
}

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// compile replaces the keys referenced by the instruction with their
// positions in keys.
func (i Instruction) compile(keys []ed25519.PublicKey) CompiledInstruction {
	compiled := CompiledInstruction{
		ProgramIndex: byte(indexOfKey(keys, i.Program)),
		Data:         i.Data,
	}
	for _, account := range i.Accounts {
		compiled.Accounts = append(compiled.Accounts, byte(indexOfKey(keys, account.PublicKey)))
	}
	return compiled
}

// CompiledInstruction is an instruction as encoded in a message, with
// accounts referenced by index.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}

func indexOfKey(keys []ed25519.PublicKey, key ed25519.PublicKey) int {
	for i := range keys {
		if bytes.Equal(keys[i], key) {
			return i
		}
	}
	return -1
}
