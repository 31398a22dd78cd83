package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/compressed-wallet/pkg/sol"
	"github.com/code-payments/compressed-wallet/pkg/usdc"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
)

var airdropSol string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new keypair",
	Long: `Generates a new wallet keypair and prints its address and secret key.

The secret key is printed once. Store it somewhere safe.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show SOL, USDC and compressed USDC balances",
	Args:  cobra.ExactArgs(1),
	RunE:  runBalance,
}

var historyCmd = &cobra.Command{
	Use:   "history <address>",
	Short: "Show recent regular and compressed transactions",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var airdropCmd = &cobra.Command{
	Use:   "airdrop <address>",
	Short: "Request devnet SOL",
	Example: `  walletctl airdrop 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
  walletctl airdrop 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin --sol 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runAirdrop,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	record, err := wallet.Generate()
	if err != nil {
		return errors.Wrap(err, "error generating wallet")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Address:    %s\n", record.PublicKey)
	fmt.Fprintf(out, "Secret key: %s\n", record.PrivateKeyString())
	return nil
}

func runBalance(cmd *cobra.Command, args []string) error {
	owner, err := wallet.ParsePublicKey(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	balances, err := newGateway().GetAllBalances(ctx, owner)
	if err != nil {
		return errors.Wrap(err, "error getting balances")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "SOL:     %s\n", sol.FormatLamports(balances.Sol))
	fmt.Fprintf(out, "USDC:    %s\n", usdc.FormatQuarks(balances.Spl))
	fmt.Fprintf(out, "ZK USDC: %s\n", usdc.FormatQuarks(balances.Zk))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	owner, err := wallet.ParsePublicKey(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	gw := newGateway()
	history, err := gw.GetTxnHistory(ctx, owner)
	if err != nil {
		return errors.Wrap(err, "error getting transaction history")
	}

	out := cmd.OutOrStdout()
	if len(history) == 0 {
		fmt.Fprintln(out, "No transactions")
		return nil
	}

	for _, item := range history {
		kind := "regular"
		if item.IsCompressed {
			kind = "compressed"
		}
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", item.Slot, kind, item.Signature, gw.ExplorerTxURL(item.Signature))
	}
	return nil
}

func runAirdrop(cmd *cobra.Command, args []string) error {
	owner, err := wallet.ParsePublicKey(args[0])
	if err != nil {
		return err
	}

	lamports := uint64(gateway.DefaultAirdropLamports)
	if len(airdropSol) > 0 {
		lamports, err = sol.ToLamports(airdropSol)
		if err != nil || lamports == 0 {
			return errors.Errorf("invalid sol amount: %s", airdropSol)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	gw := newGateway()
	sig, err := gw.Airdrop(ctx, owner, lamports)
	if err != nil {
		return errors.Wrap(err, "error requesting airdrop")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Airdropped %s SOL\n", sol.FormatLamports(lamports))
	fmt.Fprintf(out, "Signature: %s\n", sig)
	fmt.Fprintf(out, "Explorer:  %s\n", gw.ExplorerTxURL(sig))
	return nil
}
