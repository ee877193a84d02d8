package repositories

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/hobbyhunter/storefront/hobbyhunter/api"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
	"github.com/hobbyhunter/storefront/hobbyhunter/utils"
)

const (
	// CreditsPerDollar is the conversion rate from card value to credits.
	CreditsPerDollar = 10

	ShippingBaseFee    = 50
	ShippingPerCardFee = 5
)

// ConversionCredits is what converting cards earns: value in dollars times
// CreditsPerDollar, at least one credit per card.
func ConversionCredits(cards []models.Card) int64 {
	return mockdata.CardCredits(cards, CreditsPerDollar)
}

// ShippingFee is the credit cost of a shipping request.
func ShippingFee(cards int, express bool) int64 {
	fee := int64(ShippingBaseFee + ShippingPerCardFee*cards)
	if express {
		fee *= 2
	}
	return fee
}

type CardRepository interface {
	FindAll(ctx context.Context, filters models.CardFilters) ([]models.Card, error)
	FindByID(ctx context.Context, id string) (models.Card, error)
	Create(ctx context.Context, card models.Card) (models.Card, error)
	Update(ctx context.Context, id string, card models.Card) (models.Card, error)
	Delete(ctx context.Context, id string) error
	GetUserCards(ctx context.Context, userID string) ([]models.Card, error)
	GetDetails(ctx context.Context, id string) (models.CardDetails, error)
	GetMarketPrices(ctx context.Context) ([]models.MarketPrice, error)
	Ship(ctx context.Context, req models.ShippingRequest) (models.ShippingResult, error)
	Sell(ctx context.Context, userID string, cardIDs []string) (models.SaleResult, error)
	GetHistory(ctx context.Context, id string) ([]models.CardHistoryEntry, error)
	Search(ctx context.Context, userID, query string) ([]models.Card, error)
	GetExpiring(ctx context.Context, userID string, within time.Duration) ([]models.Card, error)
	Convert(ctx context.Context, userID string, cardIDs []string) (models.ConversionResult, error)
}

type cardRepository struct {
	*BaseRepository
	state *mockdata.State
}

func NewCardRepository(base *BaseRepository, state *mockdata.State) CardRepository {
	return &cardRepository{BaseRepository: base, state: state}
}

func cardPath(id string, rest ...string) string {
	p := "/cards/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func filterParams(f models.CardFilters) url.Values {
	params := url.Values{}
	if f.Rarity.Valid() {
		params.Set("rarity", f.Rarity.String())
	}
	if f.Finish != "" {
		params.Set("finish", string(f.Finish))
	}
	if f.PackID != "" {
		params.Set("pack_id", f.PackID)
	}
	if !f.MinValue.IsZero() {
		params.Set("min_value", f.MinValue.String())
	}
	if !f.MaxValue.IsZero() {
		params.Set("max_value", f.MaxValue.String())
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		params.Set("offset", strconv.Itoa(f.Offset))
	}
	return params
}

// MatchesFilters reports whether c satisfies every set field of f.
func MatchesFilters(c models.Card, f models.CardFilters) bool {
	if f.Rarity.Valid() && c.Rarity != f.Rarity {
		return false
	}
	if f.Finish != "" && c.Finish != f.Finish {
		return false
	}
	if f.PackID != "" && c.PackID != f.PackID {
		return false
	}
	if !f.MinValue.IsZero() && c.Value.LessThan(f.MinValue) {
		return false
	}
	if !f.MaxValue.IsZero() && c.Value.GreaterThan(f.MaxValue) {
		return false
	}
	return true
}

func (r *cardRepository) FindAll(ctx context.Context, filters models.CardFilters) ([]models.Card, error) {
	params := filterParams(filters)
	return run(ctx, r.BaseRepository, "find_all", "", func(ctx context.Context) ([]models.Card, error) {
		resp, err := api.Get[[]wireCard](ctx, r.client, "/cards", params)
		if err != nil {
			return nil, err
		}
		return toCards(resp.Data), nil
	}, func(context.Context) ([]models.Card, error) {
		var out []models.Card
		for _, c := range r.state.AllCards() {
			if MatchesFilters(c, filters) {
				out = append(out, c)
			}
		}
		return paginate(out, params), nil
	})
}

func (r *cardRepository) FindByID(ctx context.Context, id string) (models.Card, error) {
	return run(ctx, r.BaseRepository, "find_by_id", id, func(ctx context.Context) (models.Card, error) {
		resp, err := api.Get[wireCard](ctx, r.client, cardPath(id), nil)
		if err != nil {
			return models.Card{}, err
		}
		return toCard(resp.Data), nil
	}, func(context.Context) (models.Card, error) {
		return r.state.Card(id)
	})
}

func (r *cardRepository) Create(ctx context.Context, card models.Card) (models.Card, error) {
	if card.OwnerID == "" {
		return models.Card{}, &ValidationError{Entity: "card", Reasons: []string{"owner is required"}}
	}
	return run(ctx, r.BaseRepository, "create", card.ID, func(ctx context.Context) (models.Card, error) {
		resp, err := api.Post[wireCard](ctx, r.client, "/cards", fromCard(card))
		if err != nil {
			return models.Card{}, err
		}
		return toCard(resp.Data), nil
	}, func(context.Context) (models.Card, error) {
		return r.state.SaveCard(card)
	})
}

func (r *cardRepository) Update(ctx context.Context, id string, card models.Card) (models.Card, error) {
	card.ID = id
	return run(ctx, r.BaseRepository, "update", id, func(ctx context.Context) (models.Card, error) {
		resp, err := api.Put[wireCard](ctx, r.client, cardPath(id), fromCard(card))
		if err != nil {
			return models.Card{}, err
		}
		return toCard(resp.Data), nil
	}, func(context.Context) (models.Card, error) {
		if _, err := r.state.Card(id); err != nil {
			return models.Card{}, err
		}
		return r.state.SaveCard(card)
	})
}

func (r *cardRepository) Delete(ctx context.Context, id string) error {
	return exec(ctx, r.BaseRepository, "delete", id, func(ctx context.Context) error {
		_, err := api.Delete[struct{}](ctx, r.client, cardPath(id))
		return err
	}, func(context.Context) error {
		return r.state.DeleteCard(id)
	})
}

func (r *cardRepository) GetUserCards(ctx context.Context, userID string) ([]models.Card, error) {
	return run(ctx, r.BaseRepository, "get_user_cards", userID, func(ctx context.Context) ([]models.Card, error) {
		resp, err := api.Get[[]wireCard](ctx, r.client, userPath(userID, "cards"), nil)
		if err != nil {
			return nil, err
		}
		return toCards(resp.Data), nil
	}, func(context.Context) ([]models.Card, error) {
		return r.state.Cards(userID)
	})
}

func (r *cardRepository) GetDetails(ctx context.Context, id string) (models.CardDetails, error) {
	return run(ctx, r.BaseRepository, "get_details", id, func(ctx context.Context) (models.CardDetails, error) {
		resp, err := api.Get[wireCardDetails](ctx, r.client, cardPath(id, "details"), nil)
		if err != nil {
			return models.CardDetails{}, err
		}
		return toCardDetails(resp.Data), nil
	}, func(context.Context) (models.CardDetails, error) {
		card, err := r.state.Card(id)
		if err != nil {
			return models.CardDetails{}, err
		}
		details := models.CardDetails{Card: card, History: mockdata.CardHistory(card)}
		for _, p := range mockdata.MarketPrices(r.state.Templates(), r.state.Now()) {
			if p.TemplateID == card.TemplateID {
				p := p
				details.Market = &p
				break
			}
		}
		return details, nil
	})
}

func (r *cardRepository) GetMarketPrices(ctx context.Context) ([]models.MarketPrice, error) {
	return run(ctx, r.BaseRepository, "get_market_prices", "", func(ctx context.Context) ([]models.MarketPrice, error) {
		resp, err := api.Get[[]wireMarketPrice](ctx, r.client, "/cards/market", nil)
		if err != nil {
			return nil, err
		}
		return toMarketPrices(resp.Data), nil
	}, func(context.Context) ([]models.MarketPrice, error) {
		return mockdata.MarketPrices(r.state.Templates(), r.state.Now()), nil
	})
}

// checkSelection rejects an empty card selection or one naming a card twice.
func checkSelection(entity string, ids []string) error {
	if len(ids) == 0 {
		return &ValidationError{Entity: entity, Reasons: []string{"no cards selected"}}
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return &ValidationError{Entity: entity, Reasons: []string{fmt.Sprintf("card %s selected more than once", id)}}
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (r *cardRepository) Ship(ctx context.Context, req models.ShippingRequest) (models.ShippingResult, error) {
	if err := checkSelection("shipping request", req.CardIDs); err != nil {
		return models.ShippingResult{}, err
	}
	return run(ctx, r.BaseRepository, "ship", req.UserID, func(ctx context.Context) (models.ShippingResult, error) {
		resp, err := api.Post[wireShippingResult](ctx, r.client, "/cards/ship", fromShippingRequest(req))
		if err != nil {
			return models.ShippingResult{}, err
		}
		return toShippingResult(resp.Data), nil
	}, func(context.Context) (models.ShippingResult, error) {
		return r.state.ShipCards(req, ShippingFee(len(req.CardIDs), req.Express))
	})
}

func (r *cardRepository) Sell(ctx context.Context, userID string, cardIDs []string) (models.SaleResult, error) {
	if err := checkSelection("sale", cardIDs); err != nil {
		return models.SaleResult{}, err
	}
	return run(ctx, r.BaseRepository, "sell", userID, func(ctx context.Context) (models.SaleResult, error) {
		resp, err := api.Post[wireSaleResult](ctx, r.client, "/cards/sell", wireCardIDs{UserID: userID, CardIDs: cardIDs})
		if err != nil {
			return models.SaleResult{}, err
		}
		return toSaleResult(resp.Data), nil
	}, func(context.Context) (models.SaleResult, error) {
		return r.state.SellCards(userID, cardIDs, CreditsPerDollar)
	})
}

func (r *cardRepository) GetHistory(ctx context.Context, id string) ([]models.CardHistoryEntry, error) {
	return run(ctx, r.BaseRepository, "get_history", id, func(ctx context.Context) ([]models.CardHistoryEntry, error) {
		resp, err := api.Get[[]wireCardHistory](ctx, r.client, cardPath(id, "history"), nil)
		if err != nil {
			return nil, err
		}
		return toCardHistory(resp.Data), nil
	}, func(context.Context) ([]models.CardHistoryEntry, error) {
		card, err := r.state.Card(id)
		if err != nil {
			return nil, err
		}
		return mockdata.CardHistory(card), nil
	})
}

// Search looks through the collection of userID. Mock mode ranks with the
// same fuzzy matcher the collection view uses.
func (r *cardRepository) Search(ctx context.Context, userID, query string) ([]models.Card, error) {
	return run(ctx, r.BaseRepository, "search", userID, func(ctx context.Context) ([]models.Card, error) {
		params := url.Values{"q": {query}, "user_id": {userID}}
		resp, err := api.Get[[]wireCard](ctx, r.client, "/cards/search", params)
		if err != nil {
			return nil, err
		}
		return toCards(resp.Data), nil
	}, func(context.Context) ([]models.Card, error) {
		cards, err := r.state.Cards(userID)
		if err != nil {
			return nil, err
		}
		return utils.SearchCards(cards, utils.ParseSearchQuery(query)), nil
	})
}

// GetExpiring returns owned cards that are not yet expired but will be within
// the window, soonest first.
func (r *cardRepository) GetExpiring(ctx context.Context, userID string, within time.Duration) ([]models.Card, error) {
	return run(ctx, r.BaseRepository, "get_expiring", userID, func(ctx context.Context) ([]models.Card, error) {
		params := url.Values{"within_hours": {strconv.Itoa(int(within.Hours()))}}
		resp, err := api.Get[[]wireCard](ctx, r.client, userPath(userID, "cards", "expiring"), params)
		if err != nil {
			return nil, err
		}
		return toCards(resp.Data), nil
	}, func(context.Context) ([]models.Card, error) {
		cards, err := r.state.Cards(userID)
		if err != nil {
			return nil, err
		}
		now := r.state.Now()
		deadline := now.Add(within)
		var out []models.Card
		for _, c := range cards {
			if c.Status == models.CardStatusOwned && !c.IsExpired(now) && !c.ExpiresAt.After(deadline) {
				out = append(out, c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
		return out, nil
	})
}

func (r *cardRepository) Convert(ctx context.Context, userID string, cardIDs []string) (models.ConversionResult, error) {
	if err := checkSelection("conversion", cardIDs); err != nil {
		return models.ConversionResult{}, err
	}
	return run(ctx, r.BaseRepository, "convert", userID, func(ctx context.Context) (models.ConversionResult, error) {
		resp, err := api.Post[wireConversionResult](ctx, r.client, "/cards/convert", wireCardIDs{UserID: userID, CardIDs: cardIDs})
		if err != nil {
			return models.ConversionResult{}, err
		}
		return toConversionResult(resp.Data), nil
	}, func(context.Context) (models.ConversionResult, error) {
		return r.state.ConvertCards(userID, cardIDs, CreditsPerDollar)
	})
}
