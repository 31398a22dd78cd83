package usdc

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

const (
	Mint          = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	DevnetMint    = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
	QuarksPerUsdc = 1000000
	Decimals      = 6
)

var (
	TokenMint       = ed25519.PublicKey{198, 250, 122, 243, 190, 219, 173, 58, 61, 101, 243, 106, 171, 201, 116, 49, 177, 187, 228, 194, 210, 246, 224, 228, 124, 166, 2, 3, 69, 47, 93, 97}
	DevnetTokenMint = mustBase58Decode(DevnetMint)
)

// MintForNetwork returns the USDC mint used on the provided cluster. Anything
// other than mainnet resolves to the devnet mint.
func MintForNetwork(network string) ed25519.PublicKey {
	if network == "mainnet" {
		return TokenMint
	}
	return DevnetTokenMint
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
