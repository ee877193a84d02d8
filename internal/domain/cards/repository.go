package cards

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock

import (
	"context"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

// Repository is the slice of the card repository the collection browser
// reads from.
type Repository interface {
	GetUserCards(ctx context.Context, userID string) ([]models.Card, error)
	GetMarketPrices(ctx context.Context) ([]models.MarketPrice, error)
}
