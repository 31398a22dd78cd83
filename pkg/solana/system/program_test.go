package system

import (
	"crypto/ed25519"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/compressed-wallet/pkg/solana"
)

func TestTransfer(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := Transfer(keys[0], keys[1], 1_000_000_000)

	require.Len(t, instruction.Data, 12)
	assert.EqualValues(t, commandTransfer, binary.LittleEndian.Uint32(instruction.Data))
	assert.EqualValues(t, 1_000_000_000, binary.LittleEndian.Uint64(instruction.Data[4:]))
	assert.EqualValues(t, ProgramKey[:], instruction.Program)

	require.Len(t, instruction.Accounts, 2)
	assert.EqualValues(t, keys[0], instruction.Accounts[0].PublicKey)
	assert.True(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.EqualValues(t, keys[1], instruction.Accounts[1].PublicKey)
	assert.False(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[1].IsWritable)

	// Fee payer differs from the funding account, which is the common case
	// for the disposable wallets.
	var tx solana.Transaction
	require.NoError(t, tx.Unmarshal(solana.NewLegacyTransaction(keys[2], instruction).Marshal()))
	assert.Len(t, tx.Signatures, 2)

	decompiled, err := DecompileTransfer(tx.Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, keys[0], decompiled.From)
	assert.EqualValues(t, keys[1], decompiled.To)
	assert.EqualValues(t, 1_000_000_000, decompiled.Lamports)
}

func TestDecompileNonTransfer(t *testing.T) {
	keys := generateKeys(t, 4)

	assign := make([]byte, 4+32)
	binary.LittleEndian.PutUint32(assign, commandAssign)
	copy(assign[4:], keys[2])

	instruction := solana.NewInstruction(ProgramKey[:], assign, solana.NewAccountMeta(keys[1], true))
	_, err := DecompileTransfer(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	instruction = Transfer(keys[0], keys[1], 10)
	instruction.Accounts = instruction.Accounts[:1]
	_, err = DecompileTransfer(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	assert.NotNil(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid number of accounts"), err)

	instruction = Transfer(keys[0], keys[1], 10)
	instruction.Program = keys[3]
	_, err = DecompileTransfer(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	assert.Equal(t, solana.ErrIncorrectProgram, err)

	_, err = DecompileTransfer(solana.NewLegacyTransaction(keys[0], instruction).Message, 1)
	assert.NotNil(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "instruction doesn't exist"))
}

func generateKeys(t *testing.T, amount int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, amount)

	for i := 0; i < amount; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	return keys
}
