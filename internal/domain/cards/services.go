package cards

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

const CardsPerPage = 10

var (
	ErrNoCards   = errors.New("no cards found")
	ErrNoMatches = errors.New("no cards match your criteria")
)

type Service interface {
	GetUserCards(ctx context.Context, userID string, filters Filters) ([]Card, int, error)
}

type service struct {
	repository Repository
	now        func() time.Time
}

func NewService(repository Repository) *service {
	return &service{
		repository: repository,
		now:        time.Now,
	}
}

// GetUserCards returns the filtered collection, highest rarity first, and the
// number of pages it spans.
func (s *service) GetUserCards(ctx context.Context, userID string, filters Filters) ([]Card, int, error) {
	owned, err := s.repository.GetUserCards(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch cards: %w", err)
	}

	if len(owned) == 0 {
		return nil, 0, ErrNoCards
	}

	quotes := make(map[string]models.MarketPrice)
	prices, err := s.repository.GetMarketPrices(ctx)
	if err != nil {
		// Browsing works without quotes.
		logger.LogError("Failed to load market prices", err)
	}
	for _, p := range prices {
		quotes[p.TemplateID] = p
	}

	now := s.now()
	cards := make([]Card, 0, len(owned))
	for _, card := range owned {
		if !matches(card, filters, now) {
			continue
		}
		view := Card{
			ID:         card.ID,
			TemplateID: card.TemplateID,
			Name:       card.Name,
			Rarity:     card.Rarity,
			Finish:     card.Finish,
			Value:      card.Value,
			PackID:     card.PackID,
			Status:     card.Status,
			Expired:    card.IsExpired(now),
			ExpiresAt:  card.ExpiresAt,
			ObtainedAt: card.ObtainedAt,
		}
		if q, ok := quotes[card.TemplateID]; ok {
			view.MarketPrice = q.Price
		}
		cards = append(cards, view)
	}

	if len(cards) == 0 {
		return nil, 0, ErrNoMatches
	}

	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Rarity != cards[j].Rarity {
			return cards[i].Rarity > cards[j].Rarity
		}
		return cards[i].Name < cards[j].Name
	})

	pages := int(math.Ceil(float64(len(cards)) / float64(CardsPerPage)))

	return cards, pages, nil
}

func matches(card models.Card, f Filters, now time.Time) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(card.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Rarity != 0 && card.Rarity != f.Rarity {
		return false
	}
	if f.Finish != "" && card.Finish != f.Finish {
		return false
	}
	if f.PackID != "" && card.PackID != f.PackID {
		return false
	}
	expired := card.IsExpired(now)
	if f.HideExpired && expired {
		return false
	}
	if f.ExpiringWithin > 0 {
		if expired || card.ExpiresAt.IsZero() || card.ExpiresAt.After(now.Add(f.ExpiringWithin)) {
			return false
		}
	}
	return true
}

// Page returns the cards on zero based page.
func Page(cards []Card, page int) []Card {
	start := page * CardsPerPage
	if page < 0 || start >= len(cards) {
		return nil
	}
	return cards[start:min(start+CardsPerPage, len(cards))]
}

func HasActiveFilters(f Filters) bool {
	return f != Filters{}
}

// DescribeFilters renders the active filters for display above a listing.
func DescribeFilters(f Filters) string {
	var parts []string
	if f.Name != "" {
		parts = append(parts, fmt.Sprintf("name: %s", f.Name))
	}
	if f.Rarity != 0 {
		parts = append(parts, fmt.Sprintf("rarity: %s", f.Rarity))
	}
	if f.Finish != "" {
		parts = append(parts, fmt.Sprintf("finish: %s", f.Finish))
	}
	if f.PackID != "" {
		parts = append(parts, fmt.Sprintf("pack: %s", f.PackID))
	}
	if f.ExpiringWithin > 0 {
		parts = append(parts, fmt.Sprintf("expiring within %s", f.ExpiringWithin))
	}
	if f.HideExpired {
		parts = append(parts, "hide expired")
	}
	return "Filters: " + strings.Join(parts, ", ")
}
