package cards

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

// Card is the browse view of an owned card joined with its market quote.
type Card struct {
	ID          string
	TemplateID  string
	Name        string
	Rarity      models.Rarity
	Finish      models.Finish
	Value       decimal.Decimal
	MarketPrice decimal.Decimal
	PackID      string
	Status      models.CardStatus
	Expired     bool
	ExpiresAt   time.Time
	ObtainedAt  time.Time
}

type Filters struct {
	Name           string
	Rarity         models.Rarity
	Finish         models.Finish
	PackID         string
	ExpiringWithin time.Duration
	HideExpired    bool
}
