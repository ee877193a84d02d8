package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

var recommendedOnly bool

var packsCMD = &cobra.Command{
	Use:   "packs",
	Short: "list the pack catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			packs []models.Pack
			err   error
		)
		if recommendedOnly {
			packs, err = app.Services.Store.PackRecommendations(ctx, currentUser(ctx))
		} else {
			packs, err = app.Services.Store.Packs(ctx)
		}
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCARDS\tSTOCK\tSTATUS")
		now := time.Now()
		for _, p := range packs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", p.ID, p.Name, p.Price, p.CardCount, stock(p), packStatus(p, now))
		}
		return tw.Flush()
	},
}

func stock(p models.Pack) string {
	if p.Stock == nil {
		return "unlimited"
	}
	return fmt.Sprint(*p.Stock)
}

func packStatus(p models.Pack, now time.Time) string {
	switch {
	case !p.Available:
		return "unavailable"
	case p.IsFeatured(now):
		return "featured"
	default:
		return "available"
	}
}

func init() {
	packsCMD.Flags().BoolVarP(&recommendedOnly, "recommended", "r", false, "only packs recommended for the current user")
	rootCmd.AddCommand(packsCMD)
}
