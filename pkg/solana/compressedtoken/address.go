package compressedtoken

import (
	"crypto/ed25519"

	"github.com/code-payments/compressed-wallet/pkg/solana"
)

var (
	CpiAuthorityPrefix = []byte("cpi_authority")
	TokenPoolPrefix    = []byte("pool")
)

func GetCpiAuthorityAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		CpiAuthorityPrefix,
	)
}

type GetTokenPoolAddressArgs struct {
	Mint ed25519.PublicKey
}

// GetTokenPoolAddress returns the SPL token account holding the tokens backing
// every compressed balance of the mint.
func GetTokenPoolAddress(args *GetTokenPoolAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		TokenPoolPrefix,
		args.Mint,
	)
}
