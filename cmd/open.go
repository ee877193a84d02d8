package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var skipPurchase bool

var openCMD = &cobra.Command{
	Use:   "open <pack-id>",
	Short: "buy a pack and reveal its cards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user := currentUser(ctx)
		packID := args[0]
		out := cmd.OutOrStdout()

		if !skipPurchase {
			result, err := app.Services.Store.PurchasePack(ctx, user, packID, 1)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Bought %s for %d credits, %d left\n", result.Pack.Name, result.TotalCost, result.RemainingCredits)
		}

		opening, err := app.Services.Store.OpenPack(ctx, user, packID)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n%s revealed %d cards:\n", opening.Pack.Name, len(opening.Cards))
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tRARITY\tFINISH\tVALUE")
		for _, c := range opening.Cards {
			fmt.Fprintf(tw, "%s\t%s\t%s\t$%s\n", c.Name, c.Rarity, c.Finish, c.Value.StringFixed(2))
		}
		return tw.Flush()
	},
}

func init() {
	openCMD.Flags().BoolVar(&skipPurchase, "no-buy", false, "open without buying first")
	rootCmd.AddCommand(openCMD)
}
