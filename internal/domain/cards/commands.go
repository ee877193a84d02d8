package cards

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

type Commands interface {
	Cards(ctx context.Context, w io.Writer, userID string, filters Filters, page int) error
}

type commands struct {
	svc Service
}

func NewCommands(svc Service) *commands {
	return &commands{
		svc: svc,
	}
}

// Cards writes one page of the collection as a table.
func (c *commands) Cards(ctx context.Context, w io.Writer, userID string, filters Filters, page int) error {
	cards, pages, err := c.svc.GetUserCards(ctx, userID, filters)
	if err != nil {
		return err
	}
	if page < 0 || page >= pages {
		return fmt.Errorf("page %d out of range, collection has %d pages", page+1, pages)
	}

	fmt.Fprintf(w, "My Collection (%d cards)\n", len(cards))
	if HasActiveFilters(filters) {
		fmt.Fprintln(w, DescribeFilters(filters))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRARITY\tFINISH\tVALUE\tMARKET\tEXPIRES")
	for _, card := range Page(cards, page) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t$%s\t%s\t%s\n",
			card.Name,
			card.Rarity,
			card.Finish,
			card.Value.StringFixed(2),
			formatMarket(card),
			formatExpiry(card),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "\nPage %d/%d\n", page+1, pages)
	return err
}

func formatMarket(card Card) string {
	if card.MarketPrice.IsZero() {
		return "-"
	}
	return "$" + card.MarketPrice.StringFixed(2)
}

func formatExpiry(card Card) string {
	switch {
	case card.Expired:
		return "expired"
	case card.ExpiresAt.IsZero():
		return "-"
	default:
		return card.ExpiresAt.Format(time.DateOnly)
	}
}
