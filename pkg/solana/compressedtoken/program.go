package compressedtoken

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("cTokenmWW8bLPjZEBAUgYy3zKxQZW6VKi7bqNFEVv3m")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	LIGHT_SYSTEM_PROGRAM_ID        = ed25519.PublicKey(mustBase58Decode("SySTEM1eSU2p4BGQfQpimFEWWSC1XDFeun3Nqzz3rT7"))
	ACCOUNT_COMPRESSION_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("compr6CUsB5m2jS4Y3831ztGSTnDpnKJTKS95d64XVq"))
	NOOP_PROGRAM_ID                = ed25519.PublicKey(mustBase58Decode("noopb9bkMVfRPU8AsbpTUg8AQkHtKwMYZiFUjNRtMmV"))
	SYSTEM_PROGRAM_ID              = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SPL_TOKEN_PROGRAM_ID           = ed25519.PublicKey(mustBase58Decode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))

	REGISTERED_PROGRAM_PDA        = ed25519.PublicKey(mustBase58Decode("35hkDgaAKwMCaxRz2ocSZ6NaUrtKkyNqU6c4RV3tYJRh"))
	ACCOUNT_COMPRESSION_AUTHORITY = ed25519.PublicKey(mustBase58Decode("HZH7qSLcpAeDqCopVU4e5XkhT9j3JFsQiq8CmruY3aru"))
)

// Public devnet trees and the lookup table covering the static accounts
var (
	DEVNET_STATE_TREE      = ed25519.PublicKey(mustBase58Decode("smt1NamzXdq4AMqS2fS2F1i5KTYPZRhoHgWx38d8WsT"))
	DEVNET_NULLIFIER_QUEUE = ed25519.PublicKey(mustBase58Decode("nfq1NvQDJ2GEgnS8zt9prAe8rjjpAW1zFkrvZoBR148"))
	DEVNET_ADDRESS_TREE    = ed25519.PublicKey(mustBase58Decode("amt1Ayt45jfbdw5YSo7iz6WZxUmnZsQTYXy82hVwyC2"))
	DEVNET_ADDRESS_QUEUE   = ed25519.PublicKey(mustBase58Decode("aq1S9z4reTSQAdgWHGD2zDaS39sjGrAxbR31vxJ2F4F"))
	DEVNET_LOOKUP_TABLE    = ed25519.PublicKey(mustBase58Decode("qAJZMgnQJ8G6vA3WRcjD9Jan1wtKkaCFWLWskxJrR5V"))
)

const (
	DefaultComputeUnitLimit = 1_000_000

	// Validity proofs are only generated for a handful of input sizes
	MaxInputAccounts = 4
)

// TreeAccounts is a state tree along with the queue its leaves are nullified
// into.
type TreeAccounts struct {
	StateTree      ed25519.PublicKey
	NullifierQueue ed25519.PublicKey
}

// DefaultTreeAccounts are the shared public state tree accounts
var DefaultTreeAccounts = TreeAccounts{
	StateTree:      DEVNET_STATE_TREE,
	NullifierQueue: DEVNET_NULLIFIER_QUEUE,
}

var TransferInstructionDiscriminator = anchorDiscriminator("transfer")

// anchorDiscriminator is the first 8 bytes of sha256("global:<name>")
func anchorDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
