package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
	"github.com/hobbyhunter/storefront/internal/domain/cards"
)

var (
	filterName     string
	filterRarity   string
	filterFinish   string
	filterPack     string
	filterExpiring time.Duration
	hideExpired    bool
	page           int
)

var collectionCMD = &cobra.Command{
	Use:   "collection",
	Short: "browse your card collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		filters := cards.Filters{
			Name:           filterName,
			Finish:         models.Finish(filterFinish),
			PackID:         filterPack,
			ExpiringWithin: filterExpiring,
			HideExpired:    hideExpired,
		}
		if filterRarity != "" {
			r, err := models.ParseRarity(filterRarity)
			if err != nil {
				return err
			}
			filters.Rarity = r
		}
		return cards.NewCommands(app.Collection).Cards(ctx, cmd.OutOrStdout(), currentUser(ctx), filters, page-1)
	},
}

var searchCMD = &cobra.Command{
	Use:   "search <query>",
	Short: "fuzzy search your collection, e.g. \"drake foil >value\"",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		found, err := app.Services.Collection.Search(ctx, currentUser(ctx), joinArgs(args))
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tRARITY\tFINISH\tVALUE")
		for _, c := range found {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t$%s\n", c.ID, c.Name, c.Rarity, c.Finish, c.Value.StringFixed(2))
		}
		return tw.Flush()
	},
}

var convertCMD = &cobra.Command{
	Use:   "convert <card-id>...",
	Short: "convert cards into credits",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		result, err := app.Services.Collection.ConvertCards(ctx, currentUser(ctx), args)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Converted %d cards for %d credits, balance %d\n",
			len(result.CardIDs), result.CreditsAwarded, result.NewBalance)
		return err
	},
}

var sellCMD = &cobra.Command{
	Use:   "sell <card-id>...",
	Short: "sell cards back to the store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		result, err := app.Services.Collection.SellCards(ctx, currentUser(ctx), args)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Sold %d cards for %d credits\n", len(result.CardIDs), result.CreditsEarned)
		return err
	},
}

var (
	shipAddress models.ShippingAddress
	shipExpress bool
)

var shipCMD = &cobra.Command{
	Use:   "ship <card-id>...",
	Short: "request physical delivery of cards",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		result, err := app.Services.Collection.ShipCards(ctx, models.ShippingRequest{
			UserID:  currentUser(ctx),
			CardIDs: args,
			Address: shipAddress,
			Express: shipExpress,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Shipping request %s for %d cards, fee %d credits (%s)\n",
			result.RequestID, len(result.CardIDs), result.Fee, result.Status)
		return err
	},
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func init() {
	f := collectionCMD.Flags()
	f.StringVar(&filterName, "name", "", "name contains")
	f.StringVar(&filterRarity, "rarity", "", "common, uncommon, rare, epic, legendary or mythic")
	f.StringVar(&filterFinish, "finish", "", "normal, foil or holographic")
	f.StringVar(&filterPack, "pack", "", "pack id the card came from")
	f.DurationVar(&filterExpiring, "expiring", 0, "only cards expiring within this window")
	f.BoolVar(&hideExpired, "hide-expired", false, "hide expired cards")
	f.IntVarP(&page, "page", "p", 1, "page to show")

	s := shipCMD.Flags()
	s.StringVar(&shipAddress.Name, "name", "", "recipient")
	s.StringVar(&shipAddress.Line1, "line1", "", "street address")
	s.StringVar(&shipAddress.City, "city", "", "city")
	s.StringVar(&shipAddress.PostalCode, "postal-code", "", "postal code")
	s.StringVar(&shipAddress.Country, "country", "US", "country code")
	s.BoolVar(&shipExpress, "express", false, "express delivery, double fee")

	collectionCMD.AddCommand(searchCMD, convertCMD, sellCMD, shipCMD)
	rootCmd.AddCommand(collectionCMD)
}
