package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	record, err := Generate()
	require.NoError(t, err)
	require.NoError(t, record.Validate())

	assert.Equal(t, base58.Encode(record.PublicKeyBytes()), record.PublicKey)
	assert.Len(t, record.PrivateKey, ed25519.PrivateKeySize)
	assert.EqualValues(t, 0, record.SolBalance)
	assert.EqualValues(t, 0, record.SplBalance)
	assert.EqualValues(t, 0, record.ZkBalance)
	assert.NotNil(t, record.TxnHistory)
	assert.Empty(t, record.TxnHistory)
	assert.False(t, record.CreatedAt.IsZero())
	assert.True(t, record.LastRefreshedAt.IsZero())

	other, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, record.PublicKey, other.PublicKey)
}

func TestFromPrivateKey(t *testing.T) {
	_, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	record, err := FromPrivateKey(privateKey)
	require.NoError(t, err)
	assert.EqualValues(t, privateKey, record.PrivateKey)

	// The wallet owns its copy of the key
	privateKey[0] ^= 0xff
	assert.NotEqual(t, privateKey[0], record.PrivateKey[0])

	_, err = FromPrivateKey(privateKey[:32])
	assert.Equal(t, ErrInvalidPrivateKey, err)

	// The public half must match the seed
	_, err = FromPrivateKey(privateKey)
	assert.Equal(t, ErrInvalidPrivateKey, err)
}

func TestParsePrivateKey(t *testing.T) {
	record, err := Generate()
	require.NoError(t, err)

	parsed, err := ParsePrivateKey(record.PrivateKeyString())
	require.NoError(t, err)
	assert.EqualValues(t, record.PrivateKey, parsed)

	raw := make([]int, len(record.PrivateKey))
	for i, b := range record.PrivateKey {
		raw[i] = int(b)
	}
	encoded, err := json.Marshal(raw)
	require.NoError(t, err)

	parsed, err = ParsePrivateKey(" " + string(encoded) + "\n")
	require.NoError(t, err)
	assert.EqualValues(t, record.PrivateKey, parsed)

	for _, invalid := range []string{
		"",
		"not-base58!",
		record.PublicKey,
		"[1, 2, 3]",
		"[256]",
		"[not json",
	} {
		_, err := ParsePrivateKey(invalid)
		assert.Equal(t, ErrInvalidPrivateKey, err, invalid)
	}
}

func TestParsePublicKey(t *testing.T) {
	record, err := Generate()
	require.NoError(t, err)

	parsed, err := ParsePublicKey(record.PublicKey)
	require.NoError(t, err)
	assert.EqualValues(t, record.PublicKeyBytes(), parsed)

	for _, invalid := range []string{"", "0OIl", record.PrivateKeyString(), base58.Encode([]byte{1, 2, 3})} {
		_, err := ParsePublicKey(invalid)
		assert.Equal(t, ErrInvalidPublicKey, err)
	}
}

func TestValidate(t *testing.T) {
	record, err := Generate()
	require.NoError(t, err)

	other, err := Generate()
	require.NoError(t, err)

	mismatched := record.Clone()
	mismatched.PublicKey = other.PublicKey
	assert.Error(t, mismatched.Validate())

	missing := record.Clone()
	missing.PublicKey = ""
	assert.Error(t, missing.Validate())

	badHistory := record.Clone()
	badHistory.TxnHistory = []TxnHistoryItem{{Slot: 1}}
	assert.Error(t, badHistory.Validate())

	badHistory.TxnHistory[0].Signature = "sig"
	assert.NoError(t, badHistory.Validate())
}

func TestCloneAndCopyTo(t *testing.T) {
	record, err := Generate()
	require.NoError(t, err)
	record.SolBalance = 1
	record.TxnHistory = []TxnHistoryItem{{Signature: "sig", Slot: 5, IsCompressed: true}}

	cloned := record.Clone()
	assert.Equal(t, *record, cloned)

	cloned.PrivateKey[0] ^= 0xff
	cloned.TxnHistory[0].Slot = 6
	assert.NotEqual(t, cloned.PrivateKey[0], record.PrivateKey[0])
	assert.EqualValues(t, 5, record.TxnHistory[0].Slot)

	var dst Wallet
	record.CopyTo(&dst)
	assert.Equal(t, *record, dst)
}
