package usdc

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMints(t *testing.T) {
	assert.Equal(t, Mint, base58.Encode(TokenMint))
	assert.Equal(t, DevnetMint, base58.Encode(DevnetTokenMint))

	assert.EqualValues(t, TokenMint, MintForNetwork("mainnet"))
	assert.EqualValues(t, DevnetTokenMint, MintForNetwork("devnet"))
	assert.EqualValues(t, DevnetTokenMint, MintForNetwork("unknown"))
}

func TestQuarkConversion(t *testing.T) {
	quarks, err := ToQuarks("12.5")
	require.NoError(t, err)
	assert.EqualValues(t, 12_500_000, quarks)
	assert.Equal(t, "12.500000", FormatQuarks(quarks))
	assert.Equal(t, "0.000001", FormatQuarks(1))

	_, err = ToQuarks("twelve")
	assert.Error(t, err)
	assert.Panics(t, func() { MustToQuarks("") })
}
