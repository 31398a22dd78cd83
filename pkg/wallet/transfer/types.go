package transfer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
)

type Token string

const (
	TokenSol  Token = "SOL"
	TokenUsdc Token = "USDC"
)

// ParseToken accepts token symbols case insensitively
func ParseToken(value string) (Token, error) {
	switch Token(strings.ToUpper(strings.TrimSpace(value))) {
	case TokenSol:
		return TokenSol, nil
	case TokenUsdc:
		return TokenUsdc, nil
	}
	return "", errors.Errorf("unsupported token: %s", value)
}

// BalanceType is the USDC pool a transfer is funded from
type BalanceType string

const (
	BalanceTypeRegular    BalanceType = "regular"
	BalanceTypeCompressed BalanceType = "compressed"
)

// ParseBalanceType parses a balance type. An empty value is allowed and
// resolves to the source wallet's default once the wallet is known.
func ParseBalanceType(value string) (BalanceType, error) {
	switch BalanceType(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return "", nil
	case BalanceTypeRegular:
		return BalanceTypeRegular, nil
	case BalanceTypeCompressed:
		return BalanceTypeCompressed, nil
	}
	return "", errors.Errorf("unsupported balance type: %s", value)
}

// DefaultBalanceType picks the pool holding more USDC, preferring the
// compressed pool on ties.
func DefaultBalanceType(record *wallet.Wallet) BalanceType {
	if record.SplBalance > record.ZkBalance {
		return BalanceTypeRegular
	}
	return BalanceTypeCompressed
}

// NoFeePayer is the fee payer index of a request that hasn't selected one
const NoFeePayer = -1

// Request is a send-token request. Wallets are referenced by their index in
// the collection's creation order.
//
// IsCompressed selects the representation delivered to the recipient, while
// BalanceType selects the pool the source wallet spends from. Neither
// applies to SOL.
type Request struct {
	Token         Token
	IsCompressed  bool
	BalanceType   BalanceType
	Amount        string
	Recipient     string
	SourceIndex   int
	FeePayerIndex int
}

type Result struct {
	Signature   string
	ExplorerURL string
}

// ValidationError is returned when a request is rejected before anything is
// submitted. The message is suitable for end users.
type ValidationError struct {
	reason error
	detail string
}

func newValidationError(message string) *ValidationError {
	return &ValidationError{reason: errors.New(message)}
}

func (e *ValidationError) Error() string {
	if len(e.detail) == 0 {
		return e.reason.Error()
	}
	return e.reason.Error() + ": " + e.detail
}

func (e *ValidationError) Is(target error) bool {
	other, ok := target.(*ValidationError)
	return ok && other.reason == e.reason
}

func (e *ValidationError) withDetail(detail string) *ValidationError {
	return &ValidationError{reason: e.reason, detail: detail}
}

var (
	ErrInvalidAmount             = newValidationError("Invalid amount")
	ErrRecipientRequired         = newValidationError("Recipient address is required")
	ErrInvalidRecipient          = newValidationError("Invalid recipient address")
	ErrSourceWalletRequired      = newValidationError("Source wallet is required")
	ErrFeePayerRequired          = newValidationError("Fee payer wallet is required")
	ErrInsufficientFeeBalance    = newValidationError("Insufficient SOL balance for transaction fees")
	ErrInsufficientSolBalance    = newValidationError("Insufficient SOL balance")
	ErrInsufficientUsdcBalance   = newValidationError("Insufficient USDC balance")
	ErrInsufficientZkUsdcBalance = newValidationError("Insufficient ZK USDC balance")
	ErrUnsupportedToken          = newValidationError("Unsupported token")
	ErrUnsupportedBalanceType    = newValidationError("Unsupported balance type")
)

// IsValidationError reports whether err rejected a request before submission
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
