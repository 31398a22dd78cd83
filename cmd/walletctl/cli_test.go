package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/compressed-wallet/pkg/solana"
	"github.com/code-payments/compressed-wallet/pkg/testutil"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
	memory_gateway "github.com/code-payments/compressed-wallet/pkg/wallet/gateway/memory"
	"github.com/code-payments/compressed-wallet/pkg/wallet/transfer"
)

func setup(t *testing.T, network solana.Network) (*memory_gateway.Gateway, *cobra.Command, *bytes.Buffer) {
	gw := memory_gateway.New(network)

	original := newGateway
	newGateway = func() gateway.Gateway { return gw }
	t.Cleanup(func() { newGateway = original })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return gw, cmd, &out
}

func resetSendFlags(t *testing.T) {
	t.Cleanup(func() {
		sendSecret = ""
		sendFeePayerSecret = ""
		sendTo = ""
		sendAmount = ""
		sendToken = "USDC"
		sendCompressed = false
		sendBalanceType = ""
	})
}

func TestGenerateCmd(t *testing.T) {
	_, cmd, out := setup(t, solana.NetworkDevnet)

	require.NoError(t, runGenerate(cmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	address := strings.TrimSpace(strings.TrimPrefix(lines[0], "Address:"))
	secret := strings.TrimSpace(strings.TrimPrefix(lines[1], "Secret key:"))

	record, err := walletFromSecret(secret)
	require.NoError(t, err)
	assert.Equal(t, address, record.PublicKey)
}

func TestBalanceCmd(t *testing.T) {
	gw, cmd, out := setup(t, solana.NetworkDevnet)

	record, err := wallet.Generate()
	require.NoError(t, err)
	gw.SetBalances(record.PublicKeyBytes(), gateway.Balances{Sol: 1_500_000_000, Spl: 5_000_000, Zk: 250_000})

	require.NoError(t, runBalance(cmd, []string{record.PublicKey}))
	assert.Contains(t, out.String(), "SOL:     1.500000000")
	assert.Contains(t, out.String(), "USDC:    5.000000")
	assert.Contains(t, out.String(), "ZK USDC: 0.250000")

	assert.Equal(t, wallet.ErrInvalidPublicKey, runBalance(cmd, []string{"invalid"}))

	gw.InduceFailure("GetAllBalances", errors.New("rpc unavailable"))
	err = runBalance(cmd, []string{record.PublicKey})
	assert.EqualError(t, err, "error getting balances: rpc unavailable")
}

func TestAirdropAndHistoryCmds(t *testing.T) {
	gw, cmd, out := setup(t, solana.NetworkDevnet)

	record, err := wallet.Generate()
	require.NoError(t, err)

	require.NoError(t, runHistory(cmd, []string{record.PublicKey}))
	assert.Contains(t, out.String(), "No transactions")
	out.Reset()

	airdropSol = "0.5"
	t.Cleanup(func() { airdropSol = "" })

	require.NoError(t, runAirdrop(cmd, []string{record.PublicKey}))
	assert.Contains(t, out.String(), "Airdropped 0.500000000 SOL")

	balance, err := gw.GetSolBalance(context.Background(), record.PublicKeyBytes())
	require.NoError(t, err)
	assert.EqualValues(t, 500_000_000, balance)

	history, err := gw.GetTxnHistory(context.Background(), record.PublicKeyBytes())
	require.NoError(t, err)
	require.Len(t, history, 1)
	out.Reset()

	require.NoError(t, runHistory(cmd, []string{record.PublicKey}))
	assert.Contains(t, out.String(), history[0].Signature)
	assert.Contains(t, out.String(), "regular")
	assert.Contains(t, out.String(), "cluster=devnet")

	airdropSol = "0"
	assert.Error(t, runAirdrop(cmd, []string{record.PublicKey}))
}

func TestAirdropCmd_Mainnet(t *testing.T) {
	_, cmd, _ := setup(t, solana.NetworkMainnet)

	record, err := wallet.Generate()
	require.NoError(t, err)

	err = runAirdrop(cmd, []string{record.PublicKey})
	testutil.AssertErrorCause(t, err, gateway.ErrAirdropUnavailable)
}

func TestSendCmd(t *testing.T) {
	gw, cmd, out := setup(t, solana.NetworkDevnet)
	resetSendFlags(t)

	source, err := wallet.Generate()
	require.NoError(t, err)
	gw.SetBalances(source.PublicKeyBytes(), gateway.Balances{Sol: 1_000_000_000, Spl: 2_000_000, Zk: 7_000_000})

	recipient, err := wallet.Generate()
	require.NoError(t, err)

	sendSecret = source.PrivateKeyString()
	sendTo = recipient.PublicKey
	sendAmount = "1.5"
	sendToken = "usdc"
	sendCompressed = true

	require.NoError(t, runSend(cmd, nil))
	assert.Contains(t, out.String(), "Sent 1.5 USDC to "+recipient.PublicKey)
	assert.Contains(t, out.String(), "Explorer:  https://explorer.solana.com/tx/")

	// The compressed pool holds more, so it's spent by default
	assert.Equal(t, 1, gw.Calls("TransferZk"))

	balances, err := gw.GetAllBalances(context.Background(), recipient.PublicKeyBytes())
	require.NoError(t, err)
	assert.EqualValues(t, 1_500_000, balances.Zk)

	sendToken = "SOL"
	sendCompressed = false
	sendAmount = "0.25"
	require.NoError(t, runSend(cmd, nil))

	balances, err = gw.GetAllBalances(context.Background(), recipient.PublicKeyBytes())
	require.NoError(t, err)
	assert.EqualValues(t, 250_000_000, balances.Sol)
}

func TestSendCmd_SeparateFeePayer(t *testing.T) {
	gw, cmd, _ := setup(t, solana.NetworkDevnet)
	resetSendFlags(t)

	source, err := wallet.Generate()
	require.NoError(t, err)
	gw.SetBalances(source.PublicKeyBytes(), gateway.Balances{Spl: 3_000_000})

	feePayer, err := wallet.Generate()
	require.NoError(t, err)
	gw.SetBalances(feePayer.PublicKeyBytes(), gateway.Balances{Sol: 1_000_000})

	recipient, err := wallet.Generate()
	require.NoError(t, err)

	sendSecret = source.PrivateKeyString()
	sendTo = recipient.PublicKey
	sendAmount = "1"
	sendToken = "USDC"
	sendBalanceType = "regular"

	// Without a funded fee payer, the source can't cover fees
	err = runSend(cmd, nil)
	assert.EqualError(t, err, "Insufficient SOL balance for transaction fees: 0.000000000")

	sendFeePayerSecret = feePayer.PrivateKeyString()
	require.NoError(t, runSend(cmd, nil))
	assert.Equal(t, 1, gw.Calls("TransferSpl"))

	balances, err := gw.GetAllBalances(context.Background(), feePayer.PublicKeyBytes())
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000-memory_gateway.FeeLamports, balances.Sol)
}

func TestSendCmd_InvalidInput(t *testing.T) {
	_, cmd, _ := setup(t, solana.NetworkDevnet)
	resetSendFlags(t)

	source, err := wallet.Generate()
	require.NoError(t, err)

	sendSecret = source.PrivateKeyString()
	sendTo = source.PublicKey
	sendAmount = "1"

	sendToken = "BTC"
	assert.Error(t, runSend(cmd, nil))

	sendToken = "USDC"
	sendBalanceType = "frozen"
	assert.Error(t, runSend(cmd, nil))

	sendBalanceType = ""
	sendSecret = "not-a-key"
	err = runSend(cmd, nil)
	testutil.AssertErrorCause(t, err, wallet.ErrInvalidPrivateKey)

	sendSecret = source.PrivateKeyString()
	sendAmount = "-1"
	err = runSend(cmd, nil)
	assert.True(t, transfer.IsValidationError(err))
	assert.EqualError(t, err, "Invalid amount")
}

func TestWalletFromSecret(t *testing.T) {
	record, err := wallet.FromPrivateKey(testutil.GenerateSolanaKeypair(t))
	require.NoError(t, err)

	parsed, err := walletFromSecret(record.PrivateKeyString())
	require.NoError(t, err)
	assert.Equal(t, record.PublicKey, parsed.PublicKey)
}
