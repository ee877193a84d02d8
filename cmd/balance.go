package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

var (
	buyCredits   int64
	buyPrice     string
	historyLimit int
)

var balanceCMD = &cobra.Command{
	Use:   "balance",
	Short: "show credits and recent transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user := currentUser(ctx)
		out := cmd.OutOrStdout()

		if buyCredits > 0 {
			price, err := decimal.NewFromString(buyPrice)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", buyPrice, err)
			}
			tx, payment, err := app.Services.Wallet.PurchaseCredits(ctx, models.CreditPurchase{
				UserID:        user,
				Credits:       buyCredits,
				Price:         price,
				Currency:      "USD",
				PaymentMethod: "card",
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Purchased %d credits (transaction %s, payment %s)\n\n", buyCredits, tx.ID, payment.Status)
		}

		credits, err := app.Services.Wallet.Credits(ctx, user)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s has %d credits\n\n", user, credits)

		txs, err := app.Services.Wallet.Transactions(ctx, user)
		if err != nil {
			return err
		}
		if len(txs) > historyLimit {
			txs = txs[:historyLimit]
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tSTATUS\tDESCRIPTION")
		for _, tx := range txs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				tx.CreatedAt.Format(time.DateOnly), tx.Type, tx.Amount.String(), tx.Status, tx.Description)
		}
		return tw.Flush()
	},
}

func init() {
	balanceCMD.Flags().Int64Var(&buyCredits, "buy", 0, "purchase this many credits first")
	balanceCMD.Flags().StringVar(&buyPrice, "price", "9.99", "price paid for --buy, in USD")
	balanceCMD.Flags().IntVarP(&historyLimit, "limit", "n", 10, "transactions to show")
	rootCmd.AddCommand(balanceCMD)
}
