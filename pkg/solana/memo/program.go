package memo

import (
	"bytes"
	"crypto/ed25519"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/solana"
)

// ProgramKey is the SPL memo program v2
//
// Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo
var ProgramKey = ed25519.PublicKey{5, 74, 83, 80, 248, 93, 200, 130, 214, 20, 165, 86, 114, 120, 138, 41, 109, 223, 30, 171, 171, 208, 166, 6, 120, 136, 73, 50, 244, 238, 246, 160}

// MaxLength is the largest memo that still leaves room in a transaction for
// the transfer it annotates.
const MaxLength = 256

var ErrInvalidMemo = errors.New("memo must be valid utf-8 within the maximum length")

// Instruction attaches text to a transaction. The program requires no
// signers, so it's always appended without accounts.
func Instruction(text string) solana.Instruction {
	return solana.NewInstruction(ProgramKey, []byte(text))
}

// Validate checks that text can be carried by Instruction
func Validate(text string) error {
	if len(text) > MaxLength || !utf8.ValidString(text) {
		return ErrInvalidMemo
	}
	return nil
}

// Decompile returns the text of the memo instruction at index
func Decompile(m solana.Message, index int) (string, error) {
	if index < 0 || index >= len(m.Instructions) {
		return "", errors.Errorf("instruction doesn't exist at %d", index)
	}

	ixn := m.Instructions[index]
	if !bytes.Equal(m.Accounts[ixn.ProgramIndex], ProgramKey) {
		return "", solana.ErrIncorrectProgram
	}
	return string(ixn.Data), nil
}
