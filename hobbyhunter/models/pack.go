package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidPack = errors.New("invalid pack definition")

type RarityGuarantee struct {
	Rarity Rarity
	Count  int
}

type Pack struct {
	ID            string
	Name          string
	Description   string
	Price         int64
	CardCount     int
	Guarantees    []RarityGuarantee
	Available     bool
	Stock         *int
	FeaturedUntil *time.Time
	ImageURL      string
}

// GuaranteedTotal is the sum of all guarantee counts.
func (p Pack) GuaranteedTotal() int {
	total := 0
	for _, g := range p.Guarantees {
		total += g.Count
	}
	return total
}

func (p Pack) Validate() error {
	if p.CardCount <= 0 {
		return fmt.Errorf("pack %s: card count %d: %w", p.ID, p.CardCount, ErrInvalidPack)
	}
	for _, g := range p.Guarantees {
		if !g.Rarity.Valid() {
			return fmt.Errorf("pack %s: guarantee rarity %d: %w", p.ID, int(g.Rarity), ErrInvalidPack)
		}
		if g.Count < 0 {
			return fmt.Errorf("pack %s: negative guarantee for %s: %w", p.ID, g.Rarity, ErrInvalidPack)
		}
	}
	if total := p.GuaranteedTotal(); total > p.CardCount {
		return fmt.Errorf("pack %s: guarantees %d exceed card count %d: %w", p.ID, total, p.CardCount, ErrInvalidPack)
	}
	return nil
}

func (p Pack) InStock(quantity int) bool {
	if p.Stock == nil {
		return true
	}
	return *p.Stock >= quantity
}

// Cost is the credit price of quantity packs. It reports false when quantity
// is below one or the total does not fit in an int64.
func (p Pack) Cost(quantity int) (int64, bool) {
	if quantity < 1 || p.Price < 0 {
		return 0, false
	}
	q := int64(quantity)
	if p.Price > 0 && q > math.MaxInt64/p.Price {
		return 0, false
	}
	return p.Price * q, true
}

func (p Pack) IsFeatured(now time.Time) bool {
	return p.FeaturedUntil != nil && now.Before(*p.FeaturedUntil)
}

// Purchase validation messages.
const (
	ReasonInvalidQuantity     = "quantity must be at least 1"
	ReasonUnavailable         = "pack is not available"
	ReasonOutOfStock          = "insufficient stock"
	ReasonInsufficientCredits = "insufficient credits"
)

type PurchaseValidation struct {
	Valid  bool
	Errors []string
}

// ValidatePurchase checks whether credits can buy quantity of pack. Every
// failed check is reported, not just the first.
func ValidatePurchase(pack Pack, credits int64, quantity int) PurchaseValidation {
	var errs []string
	if quantity < 1 {
		errs = append(errs, ReasonInvalidQuantity)
	}
	if !pack.Available {
		errs = append(errs, ReasonUnavailable)
	}
	if quantity >= 1 && !pack.InStock(quantity) {
		errs = append(errs, ReasonOutOfStock)
	}
	if quantity >= 1 {
		if cost, ok := pack.Cost(quantity); !ok || credits < cost {
			errs = append(errs, ReasonInsufficientCredits)
		}
	}
	return PurchaseValidation{Valid: len(errs) == 0, Errors: errs}
}

// HasError reports whether reason is among the validation errors.
func (v PurchaseValidation) HasError(reason string) bool {
	for _, e := range v.Errors {
		if e == reason {
			return true
		}
	}
	return false
}

type PurchaseResult struct {
	Pack             Pack
	Quantity         int
	TotalCost        int64
	RemainingCredits int64
	Transaction      Transaction
}

type PackOpening struct {
	Pack     Pack
	Cards    []Card
	OpenedAt time.Time
}

type PackStatistics struct {
	PackID         string
	TimesOpened    int64
	RarityCounts   map[Rarity]int64
	AverageValue   decimal.Decimal
	BestPullName   string
	BestPullRarity Rarity
}

type PackPurchaseRecord struct {
	PackID      string
	PackName    string
	Quantity    int
	TotalCost   int64
	PurchasedAt time.Time
}
