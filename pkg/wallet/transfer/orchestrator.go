package transfer

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/compressed-wallet/pkg/amount"
	"github.com/code-payments/compressed-wallet/pkg/metrics"
	"github.com/code-payments/compressed-wallet/pkg/sol"
	"github.com/code-payments/compressed-wallet/pkg/usdc"
	"github.com/code-payments/compressed-wallet/pkg/wallet/collection"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
)

const (
	metricsStructName = "wallet.transfer"
)

// Orchestrator validates send-token requests against the wallet collection
// and routes them to the matching gateway operation.
type Orchestrator struct {
	log        *logrus.Entry
	gateway    gateway.Gateway
	collection *collection.Collection
}

func New(gateway gateway.Gateway, collection *collection.Collection) *Orchestrator {
	return &Orchestrator{
		log:        logrus.StandardLogger().WithField("type", "wallet/transfer"),
		gateway:    gateway,
		collection: collection,
	}
}

// validated is a request that passed validation, with its wallets and
// amount resolved
type validated struct {
	source      *wallet.Wallet
	feePayer    *wallet.Wallet
	recipient   ed25519.PublicKey
	quantity    uint64
	balanceType BalanceType
}

// Validate checks the request against the collection's current view of the
// source and fee payer wallets. The first failing check is returned as a
// *ValidationError.
func (o *Orchestrator) Validate(ctx context.Context, req *Request) error {
	_, err := o.validate(req)
	return err
}

func (o *Orchestrator) validate(req *Request) (*validated, error) {
	parsedAmount, err := amount.ParseDecimal(req.Amount)
	if err != nil || !parsedAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if len(req.Recipient) == 0 {
		return nil, ErrRecipientRequired
	}

	recipient, err := wallet.ParsePublicKey(req.Recipient)
	if err != nil {
		return nil, ErrInvalidRecipient
	}

	wallets, err := o.collection.Wallets()
	if err != nil {
		return nil, err
	}

	if req.SourceIndex < 0 || req.SourceIndex >= len(wallets) {
		return nil, ErrSourceWalletRequired
	}
	source := wallets[req.SourceIndex]

	if req.FeePayerIndex < 0 || req.FeePayerIndex >= len(wallets) {
		return nil, ErrFeePayerRequired
	}
	feePayer := wallets[req.FeePayerIndex]

	if feePayer.SolBalance == 0 {
		return nil, ErrInsufficientFeeBalance.withDetail(sol.FormatLamports(feePayer.SolBalance))
	}

	res := &validated{
		source:    source,
		feePayer:  feePayer,
		recipient: recipient,
	}

	switch req.Token {
	case TokenSol:
		lamports, err := sol.ToLamports(req.Amount)
		if err != nil || lamports == 0 {
			return nil, ErrInvalidAmount
		}

		if source.SolBalance < lamports {
			return nil, ErrInsufficientSolBalance
		}

		res.quantity = lamports
	case TokenUsdc:
		quarks, err := usdc.ToQuarks(req.Amount)
		if err != nil || quarks == 0 {
			return nil, ErrInvalidAmount
		}

		res.balanceType = req.BalanceType
		if len(res.balanceType) == 0 {
			res.balanceType = DefaultBalanceType(source)
		}

		switch res.balanceType {
		case BalanceTypeRegular:
			if source.SplBalance < quarks {
				return nil, ErrInsufficientUsdcBalance
			}
		case BalanceTypeCompressed:
			if source.ZkBalance < quarks {
				return nil, ErrInsufficientZkUsdcBalance
			}
		default:
			return nil, ErrUnsupportedBalanceType
		}

		res.quantity = quarks
	default:
		return nil, ErrUnsupportedToken
	}

	return res, nil
}

// Send validates and submits the request. Once confirmed, the source wallet
// is refreshed, along with the fee payer and recipient when they're managed
// by the collection.
func (o *Orchestrator) Send(ctx context.Context, req *Request) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Send")
	defer tracer.End()

	log := o.log.WithFields(logrus.Fields{
		"method":       "Send",
		"token":        req.Token,
		"compressed":   req.IsCompressed,
		"balance_type": req.BalanceType,
		"amount":       req.Amount,
		"recipient":    req.Recipient,
	})

	v, err := o.validate(req)
	if err != nil {
		if !IsValidationError(err) {
			tracer.OnError(err)
		}
		return nil, err
	}

	log = log.WithFields(logrus.Fields{
		"source":    v.source.PublicKey,
		"fee_payer": v.feePayer.PublicKey,
	})

	var route, sig string
	switch {
	case req.Token == TokenSol:
		route = "sol"
		sig, err = o.gateway.TransferSol(ctx, v.feePayer.PrivateKey, v.source.PrivateKey, v.recipient, v.quantity)
	case req.IsCompressed && v.balanceType == BalanceTypeRegular:
		route = "compress"
		sig, err = o.gateway.Compress(ctx, v.feePayer.PrivateKey, v.source.PrivateKey, v.recipient, v.quantity)
	case req.IsCompressed && v.balanceType == BalanceTypeCompressed:
		route = "zk"
		sig, err = o.gateway.TransferZk(ctx, v.feePayer.PrivateKey, v.source.PrivateKey, v.recipient, v.quantity)
	case !req.IsCompressed && v.balanceType == BalanceTypeRegular:
		route = "spl"
		sig, err = o.gateway.TransferSpl(ctx, v.feePayer.PrivateKey, v.source.PrivateKey, v.recipient, v.quantity)
	default:
		route = "decompress"
		sig, err = o.gateway.Decompress(ctx, v.feePayer.PrivateKey, v.source.PrivateKey, v.recipient, v.quantity)
	}
	log = log.WithField("route", route)
	if err != nil {
		log.WithError(err).Warn("failure sending tokens")
		tracer.OnError(err)
		return nil, err
	}

	log = log.WithField("signature", sig)
	log.Debug("transaction sent")
	metrics.RecordCount(ctx, "Transfer/"+route, 1)

	o.refreshAfterSend(ctx, log, v)

	return &Result{
		Signature:   sig,
		ExplorerURL: o.gateway.ExplorerTxURL(sig),
	}, nil
}

// refreshAfterSend updates every managed wallet touched by a transfer.
// Failures only leave the collection stale until the next refresh run, so
// they're logged rather than returned.
func (o *Orchestrator) refreshAfterSend(ctx context.Context, log *logrus.Entry, v *validated) {
	refresh := func(publicKey string, withHistory bool) {
		if err := o.collection.UpdateWalletBalance(ctx, publicKey); err != nil {
			log.WithError(err).WithField("wallet", publicKey).Warn("failure refreshing wallet balance")
		}
		if !withHistory {
			return
		}
		if err := o.collection.UpdateWalletHistory(ctx, publicKey); err != nil {
			log.WithError(err).WithField("wallet", publicKey).Warn("failure refreshing wallet history")
		}
	}

	refresh(v.source.PublicKey, true)

	if v.feePayer.PublicKey != v.source.PublicKey {
		refresh(v.feePayer.PublicKey, false)
	}

	managed, err := o.collection.IsManaged(ctx, v.recipient)
	if err != nil {
		log.WithError(err).Warn("failure checking whether recipient is managed")
		return
	}

	recipientKey := base58.Encode(v.recipient)
	if managed && recipientKey != v.source.PublicKey {
		refresh(recipientKey, true)
	}
}
