package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/compressed-wallet/pkg/wallet/collection"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/transfer"
)

var (
	sendSecret         string
	sendFeePayerSecret string
	sendTo             string
	sendAmount         string
	sendToken          string
	sendCompressed     bool
	sendBalanceType    string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send SOL or USDC",
	Long: `Sends SOL or USDC from the wallet owning --secret.

USDC can be spent from either the regular or the compressed pool and delivered
as either. Spending regular USDC with --compressed compresses it into the
recipient's compressed balance, and spending compressed USDC without it
decompresses into the recipient's token account. When --balance-type is
omitted, the pool holding more USDC is used.`,
	Example: `  walletctl send --secret <key> --to <address> --amount 0.1 --token SOL
  walletctl send --secret <key> --to <address> --amount 5 --compressed --balance-type regular`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	token, err := transfer.ParseToken(sendToken)
	if err != nil {
		return err
	}

	balanceType, err := transfer.ParseBalanceType(sendBalanceType)
	if err != nil {
		return err
	}

	source, err := walletFromSecret(sendSecret)
	if err != nil {
		return errors.Wrap(err, "invalid source secret")
	}

	feePayer := source
	if len(sendFeePayerSecret) > 0 {
		feePayer, err = walletFromSecret(sendFeePayerSecret)
		if err != nil {
			return errors.Wrap(err, "invalid fee payer secret")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Validation runs against a throwaway collection holding just the
	// signing wallets, so balances come straight from the network.
	provider, err := data.NewMemoryDataProvider()
	if err != nil {
		return err
	}

	gw := newGateway()
	wallets := collection.New(provider, gw)
	if err := wallets.Load(ctx); err != nil {
		return err
	}

	if err := wallets.Import(ctx, source); err != nil {
		return err
	}
	feePayerIndex := 0
	if feePayer.PublicKey != source.PublicKey {
		if err := wallets.Import(ctx, feePayer); err != nil {
			return err
		}
		feePayerIndex = 1
	}

	for _, record := range []*wallet.Wallet{source, feePayer} {
		if err := wallets.UpdateWalletBalance(ctx, record.PublicKey); err != nil {
			return errors.Wrapf(err, "error getting balances of %s", record.PublicKey)
		}
	}

	result, err := transfer.New(gw, wallets).Send(ctx, &transfer.Request{
		Token:         token,
		IsCompressed:  sendCompressed,
		BalanceType:   balanceType,
		Amount:        sendAmount,
		Recipient:     sendTo,
		SourceIndex:   0,
		FeePayerIndex: feePayerIndex,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sent %s %s to %s\n", sendAmount, token, sendTo)
	fmt.Fprintf(out, "Signature: %s\n", result.Signature)
	fmt.Fprintf(out, "Explorer:  %s\n", result.ExplorerURL)
	return nil
}

func walletFromSecret(secret string) (*wallet.Wallet, error) {
	privateKey, err := wallet.ParsePrivateKey(secret)
	if err != nil {
		return nil, err
	}
	return wallet.FromPrivateKey(privateKey)
}
