package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
)

var (
	network string
	apiKey  string
	timeout time.Duration
	verbose bool
)

// newGateway is swapped out in tests
var newGateway = func() gateway.Gateway {
	return gateway.New(network, apiKey, gateway.WithEnvConfigs())
}

var rootCmd = &cobra.Command{
	Use:   "walletctl",
	Short: "Manage Solana wallets holding SOL, USDC and compressed USDC",
	Long: `walletctl talks directly to the RPC provider to inspect wallets and move
funds between them. Secret keys are accepted as base58 strings or JSON byte
arrays and are never persisted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetOutput(os.Stderr)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&network, "network", "n", "devnet", "Solana network (devnet or mainnet)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("HELIUS_API_KEY"), "RPC provider API key (or set HELIUS_API_KEY env)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	airdropCmd.Flags().StringVar(&airdropSol, "sol", "", "Amount of SOL to request (default 1)")

	sendCmd.Flags().StringVar(&sendSecret, "secret", "", "Secret key of the source wallet (required)")
	sendCmd.Flags().StringVar(&sendFeePayerSecret, "fee-payer-secret", "", "Secret key of the fee payer (default: the source wallet)")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "Recipient address (required)")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "Amount in whole units, e.g. 1.5 (required)")
	sendCmd.Flags().StringVar(&sendToken, "token", "USDC", "Token to send (SOL or USDC)")
	sendCmd.Flags().BoolVar(&sendCompressed, "compressed", false, "Deliver USDC as a compressed balance")
	sendCmd.Flags().StringVar(&sendBalanceType, "balance-type", "", "USDC pool to spend from (regular or compressed)")
	sendCmd.MarkFlagRequired("secret")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(airdropCmd)
	rootCmd.AddCommand(sendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
