package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/compressed-wallet/pkg/solana"
)

func TestTransferChecked(t *testing.T) {
	keys := generateKeys(t, 5)

	instruction := TransferChecked(keys[0], keys[1], keys[2], keys[3], 123456789, 6)

	require.Len(t, instruction.Data, 10)
	assert.EqualValues(t, CommandTransferChecked, instruction.Data[0])
	assert.EqualValues(t, 123456789, binary.LittleEndian.Uint64(instruction.Data[1:9]))
	assert.EqualValues(t, 6, instruction.Data[9])

	require.Len(t, instruction.Accounts, 4)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[1].IsWritable)
	assert.True(t, instruction.Accounts[2].IsWritable)
	assert.True(t, instruction.Accounts[3].IsSigner)
	assert.False(t, instruction.Accounts[3].IsWritable)

	txn := solana.NewLegacyTransaction(keys[4], instruction)

	command, err := GetCommand(txn.Message, 0)
	require.NoError(t, err)
	assert.Equal(t, CommandTransferChecked, command)

	decompiled, err := DecompileTransferChecked(txn.Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, keys[0], decompiled.Source)
	assert.EqualValues(t, keys[1], decompiled.Mint)
	assert.EqualValues(t, keys[2], decompiled.Destination)
	assert.EqualValues(t, keys[3], decompiled.Owner)
	assert.EqualValues(t, 123456789, decompiled.Amount)
	assert.EqualValues(t, 6, decompiled.Decimals)

	_, err = DecompileTransferChecked(txn.Message, 1)
	assert.Error(t, err)

	instruction.Data[0] = byte(CommandTransfer)
	_, err = DecompileTransferChecked(solana.NewLegacyTransaction(keys[4], instruction).Message, 0)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	instruction.Program = keys[4]
	_, err = DecompileTransferChecked(solana.NewLegacyTransaction(keys[4], instruction).Message, 0)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
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
