package gateway

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/code-payments/compressed-wallet/pkg/cache"
	"github.com/code-payments/compressed-wallet/pkg/metrics"
	"github.com/code-payments/compressed-wallet/pkg/rate"
	"github.com/code-payments/compressed-wallet/pkg/solana"
	"github.com/code-payments/compressed-wallet/pkg/solana/addresslookuptable"
	"github.com/code-payments/compressed-wallet/pkg/solana/compressedtoken"
	"github.com/code-payments/compressed-wallet/pkg/solana/compression"
	"github.com/code-payments/compressed-wallet/pkg/solana/computebudget"
	"github.com/code-payments/compressed-wallet/pkg/solana/memo"
	"github.com/code-payments/compressed-wallet/pkg/solana/system"
	"github.com/code-payments/compressed-wallet/pkg/solana/token"
	"github.com/code-payments/compressed-wallet/pkg/sync"
	"github.com/code-payments/compressed-wallet/pkg/usdc"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
)

const (
	metricsStructName = "wallet.gateway.rpc"

	maxAtaCacheBudget = 10_000
	maxSignatureQuery = 1_000
	sendLockStripes   = 64
)

type rpcGateway struct {
	log  *logrus.Entry
	conf *conf

	network solana.Network
	mint    ed25519.PublicKey

	sc solana.Client
	cc compression.Client

	airdropLimiter   rate.Limiter
	ataCache         cache.Cache
	lookupTableCache cache.Cache
	sendLocks        *sync.StripedLock

	// Rent for a token account, in lamports. Zero until first fetched.
	tokenAccountRent atomic.Uint64
}

// New returns a Gateway for the named network, served by the RPC provider
// using apiKey. Unknown networks fall back to devnet.
func New(networkName, apiKey string, configProvider ConfigProvider) Gateway {
	log := logrus.StandardLogger().WithField("type", "wallet/gateway")

	network, ok := solana.ParseNetwork(networkName)
	if !ok {
		log.WithField("network", networkName).Warn("unknown network, falling back to devnet")
	}

	endpoint := network.HeliusEndpoint(apiKey)
	return NewWithClients(network, solana.New(endpoint), compression.New(endpoint), configProvider)
}

// NewWithClients returns a Gateway over the provided RPC clients
func NewWithClients(network solana.Network, sc solana.Client, cc compression.Client, configProvider ConfigProvider) Gateway {
	conf := configProvider()

	airdropsPerHour := int(conf.airdropsPerHour.Get(context.Background()))
	if airdropsPerHour < 1 {
		airdropsPerHour = 1
	}

	return &rpcGateway{
		log:  logrus.StandardLogger().WithField("type", "wallet/gateway"),
		conf: conf,

		network: network,
		mint:    usdc.MintForNetwork(network.String()),

		sc: sc,
		cc: cc,

		airdropLimiter:   rate.NewPerIntervalLimiter(airdropsPerHour, time.Hour),
		ataCache:         cache.NewCache(maxAtaCacheBudget),
		lookupTableCache: cache.NewCacheWithTTL(1, conf.lookupTableTTL.Get(context.Background())),
		sendLocks:        sync.NewStripedLock(sendLockStripes),
	}
}

func (g *rpcGateway) Network() solana.Network {
	return g.network
}

func (g *rpcGateway) GetSolBalance(ctx context.Context, owner ed25519.PublicKey) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetSolBalance")
	defer tracer.End()

	balance, err := g.sc.GetBalance(owner)
	if err == solana.ErrNoBalance {
		return 0, nil
	} else if err != nil {
		tracer.OnError(err)
		return 0, errors.Wrap(err, "error getting sol balance")
	}
	return balance, nil
}

func (g *rpcGateway) GetSplBalance(ctx context.Context, owner ed25519.PublicKey) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetSplBalance")
	defer tracer.End()

	balance, err := token.NewClient(g.sc, g.mint).GetOwnerBalance(owner)
	if err != nil {
		tracer.OnError(err)
		return 0, errors.Wrap(err, "error getting spl balance")
	}
	return balance, nil
}

func (g *rpcGateway) GetZkBalance(ctx context.Context, owner ed25519.PublicKey) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetZkBalance")
	defer tracer.End()

	balances, err := g.cc.GetCompressedTokenBalancesByOwner(owner, nil)
	if err != nil {
		tracer.OnError(err)
		return 0, errors.Wrap(err, "error getting compressed balances")
	}

	for _, balance := range balances {
		if bytes.Equal(balance.Mint, g.mint) {
			return balance.Balance, nil
		}
	}
	return 0, nil
}

func (g *rpcGateway) GetAllBalances(ctx context.Context, owner ed25519.PublicKey) (*Balances, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetAllBalances")
	defer tracer.End()

	var res Balances

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		res.Sol, err = g.GetSolBalance(ctx, owner)
		return err
	})
	eg.Go(func() (err error) {
		res.Spl, err = g.GetSplBalance(ctx, owner)
		return err
	})
	eg.Go(func() (err error) {
		res.Zk, err = g.GetZkBalance(ctx, owner)
		return err
	})

	if err := eg.Wait(); err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return &res, nil
}

func (g *rpcGateway) Airdrop(ctx context.Context, owner ed25519.PublicKey, lamports uint64) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Airdrop")
	defer tracer.End()

	log := g.log.WithFields(logrus.Fields{
		"method": "Airdrop",
		"owner":  base58.Encode(owner),
	})

	if g.network != solana.NetworkDevnet {
		return "", ErrAirdropUnavailable
	}

	if lamports == 0 {
		lamports = DefaultAirdropLamports
	}

	allowed, err := g.airdropLimiter.Allow(base58.Encode(owner))
	if err != nil {
		log.WithError(err).Warn("failure checking airdrop rate limit")
	} else if !allowed {
		return "", ErrAirdropRateLimited
	}

	sig, err := g.sc.RequestAirdrop(owner, lamports, solana.CommitmentConfirmed)
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error requesting airdrop")
	}

	if err := g.confirm(sig); err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error confirming airdrop")
	}

	log.WithField("lamports", lamports).Debug("airdrop confirmed")
	return sig.String(), nil
}

func (g *rpcGateway) GetTxnHistory(ctx context.Context, owner ed25519.PublicKey) ([]wallet.TxnHistoryItem, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetTxnHistory")
	defer tracer.End()

	var compressed []*compression.SignatureInfo
	var regular []*solana.TransactionSignature

	var eg errgroup.Group
	eg.Go(func() (err error) {
		compressed, err = g.cc.GetCompressionSignaturesForTokenOwner(owner, 0)
		return errors.Wrap(err, "error getting compressed signatures")
	})
	eg.Go(func() (err error) {
		regular, err = g.sc.GetSignaturesForAddress(owner, solana.CommitmentConfirmed, maxSignatureQuery, "", "")
		return errors.Wrap(err, "error getting signatures")
	})

	if err := eg.Wait(); err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return mergeHistory(compressed, regular), nil
}

func (g *rpcGateway) GetCompressedSigHistory(ctx context.Context, owner ed25519.PublicKey) ([]*compression.SignatureInfo, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetCompressedSigHistory")
	defer tracer.End()

	sigs, err := g.cc.GetCompressionSignaturesForOwner(owner, 0)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error getting compressed signatures")
	}
	return sigs, nil
}

func (g *rpcGateway) GetTransactionWithCompressionInfo(ctx context.Context, sig string) (*compression.TransactionWithCompressionInfo, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetTransactionWithCompressionInfo")
	defer tracer.End()

	decoded, err := solana.ParseSignature(sig)
	if err != nil {
		return nil, err
	}

	txn, err := g.cc.GetTransactionWithCompressionInfo(decoded)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return txn, nil
}

func (g *rpcGateway) TransferSol(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, lamports uint64) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "TransferSol")
	defer tracer.End()

	sig, err := g.send(ctx, "TransferSol", feePayer, from, false, func() ([]solana.Instruction, error) {
		if lamports == 0 {
			return nil, ErrInvalidAmount
		}

		return []solana.Instruction{
			system.Transfer(publicKey(from), to, lamports),
		}, nil
	})
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "failed to transfer sol")
	}
	return sig, nil
}

func (g *rpcGateway) TransferSpl(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "TransferSpl")
	defer tracer.End()

	var destination ed25519.PublicKey
	sig, err := g.send(ctx, "TransferSpl", feePayer, from, false, func() ([]solana.Instruction, error) {
		if quarks == 0 {
			return nil, ErrInvalidAmount
		}

		source, err := token.GetAssociatedAccount(publicKey(from), g.mint)
		if err != nil {
			return nil, errors.Wrap(err, "error deriving source ata")
		}

		var instructions []solana.Instruction
		instructions, destination, err = g.getOrCreateAta(publicKey(feePayer), to)
		if err != nil {
			return nil, err
		}

		return append(
			instructions,
			token.TransferChecked(source, g.mint, destination, publicKey(from), quarks, usdc.Decimals),
		), nil
	})
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "failed to transfer spl tokens")
	}

	g.markAtaCreated(destination)
	return sig, nil
}

func (g *rpcGateway) Compress(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Compress")
	defer tracer.End()

	sig, err := g.send(ctx, "Compress", feePayer, from, true, func() ([]solana.Instruction, error) {
		if quarks == 0 {
			return nil, ErrInvalidAmount
		}

		source, err := token.GetAssociatedAccount(publicKey(from), g.mint)
		if err != nil {
			return nil, errors.Wrap(err, "error deriving source ata")
		}

		ixn, err := compressedtoken.NewCompressInstruction(&compressedtoken.CompressArgs{
			FeePayer:  publicKey(feePayer),
			Owner:     publicKey(from),
			Source:    source,
			Recipient: to,
			Mint:      g.mint,
			Amount:    quarks,
		})
		if err != nil {
			return nil, err
		}
		return []solana.Instruction{ixn}, nil
	})
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "failed to compress tokens")
	}
	return sig, nil
}

func (g *rpcGateway) Decompress(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Decompress")
	defer tracer.End()

	var destination ed25519.PublicKey
	sig, err := g.send(ctx, "Decompress", feePayer, from, true, func() ([]solana.Instruction, error) {
		if quarks == 0 {
			return nil, ErrInvalidAmount
		}

		inputs, proof, err := g.selectInputs(publicKey(from), quarks)
		if err != nil {
			return nil, err
		}

		var instructions []solana.Instruction
		instructions, destination, err = g.getOrCreateAta(publicKey(feePayer), to)
		if err != nil {
			return nil, err
		}

		ixn, err := compressedtoken.NewDecompressInstruction(&compressedtoken.DecompressArgs{
			FeePayer:    publicKey(feePayer),
			Destination: destination,
			Mint:        g.mint,
			Amount:      quarks,
			Inputs:      inputs,
			Proof:       proof,
		})
		if err != nil {
			return nil, err
		}
		return append(instructions, ixn), nil
	})
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "failed to decompress tokens")
	}

	g.markAtaCreated(destination)
	return sig, nil
}

func (g *rpcGateway) TransferZk(ctx context.Context, feePayer, from ed25519.PrivateKey, to ed25519.PublicKey, quarks uint64) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "TransferZk")
	defer tracer.End()

	sig, err := g.send(ctx, "TransferZk", feePayer, from, true, func() ([]solana.Instruction, error) {
		if quarks == 0 {
			return nil, ErrInvalidAmount
		}

		inputs, proof, err := g.selectInputs(publicKey(from), quarks)
		if err != nil {
			return nil, err
		}

		ixn, err := compressedtoken.NewCompressedTransferInstruction(&compressedtoken.TransferArgs{
			FeePayer:  publicKey(feePayer),
			Mint:      g.mint,
			Recipient: to,
			Amount:    quarks,
			Inputs:    inputs,
			Proof:     proof,
		})
		if err != nil {
			return nil, err
		}
		return []solana.Instruction{ixn}, nil
	})
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "failed to transfer zk tokens")
	}
	return sig, nil
}

func (g *rpcGateway) ExplorerTxURL(sig string) string {
	return ExplorerTxURL(g.network, sig)
}

func (g *rpcGateway) ExplorerAddressURL(address string) string {
	return ExplorerAddressURL(g.network, address)
}

// send builds, signs, submits and confirms a transaction paid for by feePayer
// and authorized by from. Sends from the same wallet are serialized so
// compressed inputs aren't selected twice.
func (g *rpcGateway) send(
	ctx context.Context,
	method string,
	feePayer, from ed25519.PrivateKey,
	isCompressed bool,
	buildFn func() ([]solana.Instruction, error),
) (string, error) {
	log := g.log.WithFields(logrus.Fields{
		"method":    method,
		"fee_payer": base58.Encode(publicKey(feePayer)),
		"from":      base58.Encode(publicKey(from)),
	})

	if err := ctx.Err(); err != nil {
		return "", err
	}

	lock := g.sendLocks.Get(publicKey(from))
	lock.Lock()
	defer lock.Unlock()

	instructions, err := buildFn()
	if err != nil {
		return "", err
	}

	var budget []solana.Instruction
	if isCompressed {
		budget = append(budget, computebudget.SetComputeUnitLimit(compressedtoken.DefaultComputeUnitLimit))
	}
	if price := g.conf.computeUnitPrice.Get(ctx); price > 0 {
		budget = append(budget, computebudget.SetComputeUnitPrice(price))
	}
	instructions = append(budget, instructions...)

	if text := g.conf.transferMemo.Get(ctx); len(text) > 0 {
		if err := memo.Validate(text); err != nil {
			log.WithError(err).Warn("configured transfer memo is invalid, omitting it")
		} else {
			instructions = append(instructions, memo.Instruction(text))
		}
	}

	var lookupTables []solana.AddressLookupTable
	if isCompressed {
		lookupTables = g.getLookupTables(log)
	}

	txn := solana.NewV0Transaction(publicKey(feePayer), lookupTables, instructions)

	blockhash, err := g.sc.GetLatestBlockhash()
	if err != nil {
		return "", errors.Wrap(err, "error getting latest blockhash")
	}
	txn.SetBlockhash(blockhash)

	signers := []ed25519.PrivateKey{feePayer}
	if !bytes.Equal(publicKey(feePayer), publicKey(from)) {
		signers = append(signers, from)
	}
	if err := txn.Sign(signers...); err != nil {
		return "", errors.Wrap(err, "error signing transaction")
	}

	sig, err := g.sc.SubmitTransaction(txn, solana.CommitmentConfirmed)
	if err != nil {
		log.WithError(err).Info("transaction submission failed")
		return "", err
	}

	log = log.WithField("signature", sig.String())
	if err := g.confirm(sig); err != nil {
		log.WithError(err).Info("transaction wasn't confirmed")
		return "", err
	}

	log.Debug("transaction confirmed")
	return sig.String(), nil
}

func (g *rpcGateway) confirm(sig solana.Signature) error {
	status, err := g.sc.GetSignatureStatus(sig, solana.CommitmentConfirmed)
	if err != nil {
		return errors.Wrapf(err, "error confirming %s", sig)
	}
	if status.ErrorResult != nil {
		g.logFailedTransaction(sig, status.ErrorResult)
		return errors.Wrapf(ErrTransactionFailed, "%s: %s", sig, status.ErrorResult.Error())
	}
	return nil
}

// logFailedTransaction records the program logs of a failed transaction. The
// lookup is best effort.
func (g *rpcGateway) logFailedTransaction(sig solana.Signature, txErr *solana.TransactionError) {
	log := g.log.WithFields(logrus.Fields{
		"method":    "confirm",
		"signature": sig.String(),
	}).WithError(txErr)

	txn, err := g.sc.GetTransaction(sig, solana.CommitmentConfirmed)
	if err != nil {
		log.WithField("lookup_error", err.Error()).Warn("transaction failed")
		return
	}
	if txn.Meta != nil {
		log = log.WithField("logs", txn.Meta.LogMessages)
	}
	log.Warn("transaction failed")
}

// selectInputs picks the compressed accounts covering amount along with the
// validity proof required to spend them.
func (g *rpcGateway) selectInputs(owner ed25519.PublicKey, amount uint64) ([]*compression.TokenAccount, *compression.ValidityProof, error) {
	accounts, err := g.cc.GetCompressedTokenAccountsByOwner(owner, g.mint)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error getting compressed token accounts")
	}

	inputs, _, err := compressedtoken.SelectInputAccounts(accounts, amount)
	if err != nil {
		return nil, nil, err
	}

	proof, err := g.cc.GetValidityProof(compressedtoken.InputHashes(inputs))
	if err != nil {
		return nil, nil, errors.Wrap(err, "error getting validity proof")
	}
	return inputs, proof, nil
}

// getOrCreateAta returns the owner's associated token account, along with
// the instruction to create it when it doesn't exist yet.
func (g *rpcGateway) getOrCreateAta(feePayer, owner ed25519.PublicKey) ([]solana.Instruction, ed25519.PublicKey, error) {
	ata, err := token.GetAssociatedAccount(owner, g.mint)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error deriving destination ata")
	}

	if _, ok := g.ataCache.Retrieve(base58.Encode(ata)); ok {
		return nil, ata, nil
	}

	_, err = g.sc.GetAccountInfo(ata, solana.CommitmentConfirmed)
	switch err {
	case nil:
		g.markAtaCreated(ata)
		return nil, ata, nil
	case solana.ErrNoAccountInfo:
	default:
		return nil, nil, errors.Wrap(err, "error checking destination ata")
	}

	if err := g.checkRentBalance(feePayer); err != nil {
		return nil, nil, err
	}

	create, _, err := token.CreateAssociatedTokenAccountIdempotent(feePayer, owner, g.mint)
	if err != nil {
		return nil, nil, err
	}
	return []solana.Instruction{create}, ata, nil
}

// checkRentBalance verifies the fee payer can fund a new token account, so a
// transfer that would fail simulation is never signed and sent.
func (g *rpcGateway) checkRentBalance(feePayer ed25519.PublicKey) error {
	rent := g.tokenAccountRent.Load()
	if rent == 0 {
		var err error
		rent, err = g.sc.GetMinimumBalanceForRentExemption(token.AccountSize)
		if err != nil {
			return errors.Wrap(err, "error getting token account rent")
		}
		g.tokenAccountRent.Store(rent)
	}

	balance, err := g.sc.GetBalance(feePayer)
	if err == solana.ErrNoBalance {
		balance = 0
	} else if err != nil {
		return errors.Wrap(err, "error getting fee payer balance")
	}

	if balance < rent {
		return errors.Wrapf(ErrInsufficientRentBalance, "have %d lamports, need %d", balance, rent)
	}
	return nil
}

func (g *rpcGateway) markAtaCreated(ata ed25519.PublicKey) {
	if len(ata) == 0 {
		return
	}
	g.ataCache.Upsert(base58.Encode(ata), true, 1)
}

// getLookupTables loads the lookup table for the compression program accounts.
// Transactions are still sendable without it, so failures only log.
func (g *rpcGateway) getLookupTables(log *logrus.Entry) []solana.AddressLookupTable {
	if g.network != solana.NetworkDevnet {
		return nil
	}

	key := base58.Encode(compressedtoken.DEVNET_LOOKUP_TABLE)
	if cached, ok := g.lookupTableCache.Retrieve(key); ok {
		return []solana.AddressLookupTable{cached.(solana.AddressLookupTable)}
	}

	info, err := g.sc.GetAccountInfo(compressedtoken.DEVNET_LOOKUP_TABLE, solana.CommitmentConfirmed)
	if err != nil {
		log.WithError(err).Warn("failure loading address lookup table")
		return nil
	}

	account, err := addresslookuptable.FromAccountInfo(info)
	if err != nil {
		log.WithError(err).Warn("failure decoding address lookup table")
		return nil
	}
	if !account.IsActive() {
		log.Warn("address lookup table is deactivated")
		return nil
	}

	table := account.ToLookupTable(compressedtoken.DEVNET_LOOKUP_TABLE)
	g.lookupTableCache.Upsert(key, table, 1)
	return []solana.AddressLookupTable{table}
}

func publicKey(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}
