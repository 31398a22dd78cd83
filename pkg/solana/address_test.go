package solana

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProgramAddress(t *testing.T) {
	// Vectors from the Solana SDK test suite, typo included.
	seedKey := mustDecode(t, "SeedPubey1111111111111111111111111111111111")
	program := mustDecode(t, "BPFLoader1111111111111111111111111111111111")

	for expected, seeds := range map[string][][]byte{
		"3gF2KMe9KiC6FNVBmfg9i267aMPvK37FewCip4eGBFcT": {{}, {1}},
		"7ytmC1nT1xY4RfxCV2ZgyA7UakC93do5ZdyhdF3EtPj7": {[]byte("☉")},
		"HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds": {[]byte("Talking"), []byte("Squirrels")},
		"GUs5qLUfsEHkcMB9T38vjr18ypEhRuNWiePW2LoK4E3K": {seedKey},
	} {
		address, err := CreateProgramAddress(program, seeds...)
		require.NoError(t, err)
		assert.Equal(t, expected, base58.Encode(address))
	}

	a, err := CreateProgramAddress(program, []byte("Talking"))
	require.NoError(t, err)
	b, err := CreateProgramAddress(program, []byte("Talking"), []byte("Squirrels"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	program := mustDecode(t, "BPFLoader1111111111111111111111111111111111")

	_, err := CreateProgramAddress(program, make([]byte, maxSeedLength))
	assert.NoError(t, err)

	_, err = CreateProgramAddress(program, make([]byte, maxSeedLength+1))
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(program, []byte("short seed"), make([]byte, maxSeedLength+1))
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(program, make([][]byte, maxSeeds+1)...)
	assert.Equal(t, ErrTooManySeeds, err)

	_, _, err = FindProgramAddressAndBump(program, make([][]byte, maxSeeds)...)
	assert.Equal(t, ErrTooManySeeds, err)
}

func TestIsOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	var key [ed25519.PublicKeySize]byte
	copy(key[:], pub)
	assert.True(t, isOnCurve(key))

	address, err := FindProgramAddress(pub, []byte("seed"))
	require.NoError(t, err)
	copy(key[:], address)
	assert.False(t, isOnCurve(key))
}

func TestFindProgramAddress_Reference(t *testing.T) {
	for program, expected := range map[string]string{
		"4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM":  "Bn9pAWUXWc5Kd849xTkQcHqiCbHUEizLFn4r5Cf8XYnd",
		"8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh":  "oDvUHiiGdMo31xYzjefAzUekWH8EbCKrxgs2FkyTs1S",
		"skJQSS6csSHJzZfcZToe3gyN8M2BMKnbH1YYY2wNTbV":  "Cw2qpvCaoPGxEJypW7rW5obTKSTLpCDRN7TgrrVugkfC",
		"25TXLvcMJNvRY4vb95G9Kpvf9A3LJCdWLswD47xvXsaX": "2rXxCqDNwia2f245koA11w7NoyNhNH4PwhSVLwpeBVRf",
		"2M59vuWgsiuHAqQVB6KvuXuaBCJR8138gMAm4uCuR6Du": "E5dLtHAM353EPnHyuZ32sKREn26VW4Y8bzb2KQJTBHQh",
	} {
		address, err := FindProgramAddress(mustDecode(t, program), []byte("Lil'"), []byte("Bits"))
		require.NoError(t, err)
		assert.Equal(t, expected, base58.Encode(address))
	}
}

func TestFindProgramAddressAndBump(t *testing.T) {
	for i := 0; i < 100; i++ {
		program, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)

		address, bump, err := FindProgramAddressAndBump(program, []byte("wallet"))
		require.NoError(t, err)

		recreated, err := CreateProgramAddress(program, []byte("wallet"), []byte{bump})
		require.NoError(t, err)
		assert.Equal(t, address, recreated)
	}
}

func mustDecode(t *testing.T, value string) []byte {
	decoded, err := base58.Decode(value)
	require.NoError(t, err)
	return decoded
}
