package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CardExpiry is how long a freshly opened card stays claimable before it expires.
const CardExpiry = 14 * 24 * time.Hour

type CardStatus string

const (
	CardStatusOwned             CardStatus = "owned"
	CardStatusShippingRequested CardStatus = "shipping_requested"
	CardStatusShipped           CardStatus = "shipped"
	CardStatusConverted         CardStatus = "converted"
	CardStatusSold              CardStatus = "sold"
)

var cardTransitions = map[CardStatus][]CardStatus{
	CardStatusOwned:             {CardStatusShippingRequested, CardStatusConverted, CardStatusSold},
	CardStatusShippingRequested: {CardStatusShipped, CardStatusOwned},
}

func (s CardStatus) CanTransitionTo(next CardStatus) bool {
	for _, allowed := range cardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CardTemplate is a base catalog card. Every pack opening instantiates templates
// into Cards carrying their own instance id.
type CardTemplate struct {
	ID       string
	Name     string
	Rarity   Rarity
	Value    decimal.Decimal
	Finish   Finish
	ImageKey string
}

type Card struct {
	ID         string
	TemplateID string
	Name       string
	Rarity     Rarity
	Value      decimal.Decimal
	Finish     Finish
	ImageURL   string
	ExpiresAt  time.Time
	Expired    bool
	PackID     string
	OwnerID    string
	Status     CardStatus
	ObtainedAt time.Time
}

func (t CardTemplate) Instantiate(id string, now time.Time, ttl time.Duration) Card {
	return Card{
		ID:         id,
		TemplateID: t.ID,
		Name:       t.Name,
		Rarity:     t.Rarity,
		Value:      t.Value,
		Finish:     t.Finish,
		ImageURL:   t.ImageKey,
		ExpiresAt:  now.Add(ttl),
		Status:     CardStatusOwned,
		ObtainedAt: now,
	}
}

func (c Card) IsExpired(now time.Time) bool {
	return c.Expired || (!c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt))
}

// Transition moves the card to next or returns ErrInvalidTransition.
func (c *Card) Transition(next CardStatus) error {
	if !c.Status.CanTransitionTo(next) {
		return fmt.Errorf("card %s %s -> %s: %w", c.ID, c.Status, next, ErrInvalidTransition)
	}
	c.Status = next
	return nil
}

type MarketPrice struct {
	TemplateID string
	Name       string
	Rarity     Rarity
	Price      decimal.Decimal
	Change24h  decimal.Decimal
	UpdatedAt  time.Time
}

type CardHistoryEntry struct {
	CardID    string
	Event     string
	Price     decimal.Decimal
	Timestamp time.Time
}

type CardFilters struct {
	Rarity   Rarity
	Finish   Finish
	PackID   string
	MinValue decimal.Decimal
	MaxValue decimal.Decimal
	Limit    int
	Offset   int
}

// CardDetails bundles a card with its current market quote and provenance.
type CardDetails struct {
	Card    Card
	Market  *MarketPrice
	History []CardHistoryEntry
}
