package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	walletUser   string
	walletAmount int
	walletTxKey  string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Inspect and top up credit wallets",
}

var walletShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a user's credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := ledgerService().GetWallet(cmd.Context(), walletUser)
		if err != nil {
			return fmt.Errorf("get wallet: %w", err)
		}

		fmt.Printf("Wallet: %s\n", w.UserID)
		fmt.Printf("  Balance:   %d\n", w.Balance)
		fmt.Printf("  Reserved:  %d\n", w.Reserved)
		fmt.Printf("  Available: %d\n", w.Available())
		return nil
	},
}

var walletCreditCmd = &cobra.Command{
	Use:   "credit",
	Short: "Add credits to a user's wallet",
	Long: `Add credits to a user's wallet, creating the wallet on first use.

The --key flag carries an idempotency key; repeating a credit with the
same key is a no-op, so a retried top-up never double-credits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if walletAmount <= 0 {
			return fmt.Errorf("credit amount must be positive, got %d", walletAmount)
		}

		key := walletTxKey
		if key == "" {
			key = "cli_credit_" + uuid.NewString()
		}

		w, err := ledgerService().CreditWallet(cmd.Context(), walletUser, walletAmount, key)
		if err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}

		fmt.Printf("Credited %d to %s (balance now %d)\n", walletAmount, w.UserID, w.Balance)
		return nil
	},
}

func init() {
	walletCmd.PersistentFlags().StringVar(&walletUser, "user", "", "wallet owner (required)")
	_ = walletCmd.MarkPersistentFlagRequired("user")

	walletCreditCmd.Flags().IntVar(&walletAmount, "amount", 0, "credits to add (required)")
	walletCreditCmd.Flags().StringVar(&walletTxKey, "key", "", "idempotency key (default: random)")
	_ = walletCreditCmd.MarkFlagRequired("amount")

	walletCmd.AddCommand(walletShowCmd)
	walletCmd.AddCommand(walletCreditCmd)
	rootCmd.AddCommand(walletCmd)
}
