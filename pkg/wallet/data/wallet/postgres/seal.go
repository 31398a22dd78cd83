package postgres

import (
	"crypto/rand"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	SealingKeySize = 32

	nonceSize = 24
)

var errUnsealFailed = errors.New("failed to unseal private key")

// seal encrypts the plaintext with a random nonce, which is prepended to the
// returned box.
func seal(key *[SealingKeySize]byte, plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(err, "error generating nonce")
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

func unseal(key *[SealingKeySize]byte, sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errUnsealFailed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, errUnsealFailed
	}
	return plaintext, nil
}
