package services

import (
	"context"
	"time"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
	"github.com/hobbyhunter/storefront/hobbyhunter/query"
	"github.com/hobbyhunter/storefront/hobbyhunter/repositories"
)

const DefaultExpiryWindow = 72 * time.Hour

// CollectionService manages the cards a collector owns.
type CollectionService struct {
	repos  *repositories.Repositories
	cache  *query.Client
	images ImageSigner
}

func NewCollectionService(repos *repositories.Repositories, cache *query.Client, images ImageSigner) *CollectionService {
	return &CollectionService{repos: repos, cache: cache, images: images}
}

func (s *CollectionService) Cards(ctx context.Context, userID string) ([]models.Card, error) {
	cards, err := s.cards(ctx, userID)
	if err != nil {
		return nil, err
	}
	return decorateCards(ctx, s.images, cards), nil
}

func (s *CollectionService) cards(ctx context.Context, userID string) ([]models.Card, error) {
	return query.Fetch(ctx, s.cache, query.CardKeys.User(userID), func(ctx context.Context) ([]models.Card, error) {
		return s.repos.Cards.GetUserCards(ctx, userID)
	})
}

// ExpiringCards lists cards expiring within the window, DefaultExpiryWindow
// when within is zero.
func (s *CollectionService) ExpiringCards(ctx context.Context, userID string, within time.Duration) ([]models.Card, error) {
	if within <= 0 {
		within = DefaultExpiryWindow
	}
	cards, err := query.Fetch(ctx, s.cache, query.CardKeys.Expiring(userID, within.String()), func(ctx context.Context) ([]models.Card, error) {
		return s.repos.Cards.GetExpiring(ctx, userID, within)
	})
	if err != nil {
		return nil, err
	}
	return decorateCards(ctx, s.images, cards), nil
}

func (s *CollectionService) Card(ctx context.Context, id string) (models.CardDetails, error) {
	details, err := query.Fetch(ctx, s.cache, query.CardKeys.Detail(id), func(ctx context.Context) (models.CardDetails, error) {
		return s.repos.Cards.GetDetails(ctx, id)
	})
	if err != nil {
		return models.CardDetails{}, err
	}
	details.Card = decorateCards(ctx, s.images, []models.Card{details.Card})[0]
	return details, nil
}

func (s *CollectionService) MarketPrices(ctx context.Context) ([]models.MarketPrice, error) {
	return query.Fetch(ctx, s.cache, query.CardKeys.Market(), func(ctx context.Context) ([]models.MarketPrice, error) {
		return s.repos.Cards.GetMarketPrices(ctx)
	})
}

func (s *CollectionService) Search(ctx context.Context, userID, q string) ([]models.Card, error) {
	cards, err := query.Fetch(ctx, s.cache, query.CardKeys.Search(userID, q), func(ctx context.Context) ([]models.Card, error) {
		return s.repos.Cards.Search(ctx, userID, q)
	})
	if err != nil {
		return nil, err
	}
	return decorateCards(ctx, s.images, cards), nil
}

// ConvertCards trades cards for credits. The cards leave the cached
// collection and the estimated credits are added before the call returns.
func (s *CollectionService) ConvertCards(ctx context.Context, userID string, cardIDs []string) (models.ConversionResult, error) {
	estimate := s.estimateCredits(userID, cardIDs)
	updates := append(query.RemoveCards(userID, cardIDs), query.CreditDelta(userID, estimate)...)

	return query.Mutate(ctx, s.cache, updates,
		func(ctx context.Context) (models.ConversionResult, error) {
			return s.repos.Cards.Convert(ctx, userID, cardIDs)
		},
		func(result models.ConversionResult, err error) {
			if err == nil {
				s.cache.SetData(query.UserKeys.Credits(userID), result.NewBalance)
			}
			s.settle(userID)
		})
}

func (s *CollectionService) SellCards(ctx context.Context, userID string, cardIDs []string) (models.SaleResult, error) {
	estimate := s.estimateCredits(userID, cardIDs)
	updates := append(query.RemoveCards(userID, cardIDs), query.CreditDelta(userID, estimate)...)

	return query.Mutate(ctx, s.cache, updates,
		func(ctx context.Context) (models.SaleResult, error) {
			return s.repos.Cards.Sell(ctx, userID, cardIDs)
		},
		func(models.SaleResult, error) {
			s.settle(userID)
		})
}

// ShipCards requests physical delivery. Shipped cards leave the cached
// collection and the fee is charged optimistically.
func (s *CollectionService) ShipCards(ctx context.Context, req models.ShippingRequest) (models.ShippingResult, error) {
	fee := repositories.ShippingFee(len(req.CardIDs), req.Express)
	updates := append(query.RemoveCards(req.UserID, req.CardIDs), query.CreditDelta(req.UserID, -fee)...)

	return query.Mutate(ctx, s.cache, updates,
		func(ctx context.Context) (models.ShippingResult, error) {
			return s.repos.Cards.Ship(ctx, req)
		},
		func(models.ShippingResult, error) {
			s.settle(req.UserID)
		})
}

func (s *CollectionService) estimateCredits(userID string, cardIDs []string) int64 {
	owned, ok := query.GetData[[]models.Card](s.cache, query.CardKeys.User(userID))
	if !ok {
		return 0
	}
	want := make(map[string]struct{}, len(cardIDs))
	for _, id := range cardIDs {
		want[id] = struct{}{}
	}
	var picked []models.Card
	for _, card := range owned {
		if _, ok := want[card.ID]; ok {
			picked = append(picked, card)
		}
	}
	return repositories.ConversionCredits(picked)
}

func (s *CollectionService) settle(userID string) {
	s.cache.InvalidateUser(userID)
	s.cache.InvalidateCards()
	s.cache.InvalidateTransactions()
}
