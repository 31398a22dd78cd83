package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

// GenerateSolanaKeypair returns a fresh private key. The public half is the
// trailing 32 bytes.
func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return privateKey
}

func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, 0, n)
	for len(keys) < n {
		keys = append(keys, GenerateSolanaKeypair(t).Public().(ed25519.PublicKey))
	}
	return keys
}
