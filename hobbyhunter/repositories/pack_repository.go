package repositories

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"time"

	"github.com/hobbyhunter/storefront/hobbyhunter/api"
	"github.com/hobbyhunter/storefront/hobbyhunter/economy/opening"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

// RecommendationLimit caps how many packs GetRecommendations returns.
const RecommendationLimit = 3

type PackRepository interface {
	FindAll(ctx context.Context, params url.Values) ([]models.Pack, error)
	FindByID(ctx context.Context, id string) (models.Pack, error)
	Create(ctx context.Context, pack models.Pack) (models.Pack, error)
	Update(ctx context.Context, id string, pack models.Pack) (models.Pack, error)
	Delete(ctx context.Context, id string) error
	ValidatePurchase(ctx context.Context, userID, packID string, quantity int) (models.PurchaseValidation, error)
	Purchase(ctx context.Context, userID, packID string, quantity int) (models.PurchaseResult, error)
	Open(ctx context.Context, userID, packID string) (models.PackOpening, error)
	GetHistory(ctx context.Context, userID string) ([]models.PackPurchaseRecord, error)
	GetRecommendations(ctx context.Context, userID string) ([]models.Pack, error)
	GetStatistics(ctx context.Context, packID string) (models.PackStatistics, error)
}

// CreditReader is the part of the user repository purchases depend on.
type CreditReader interface {
	GetCredits(ctx context.Context, id string) (int64, error)
}

type packRepository struct {
	*BaseRepository
	reveal    *BaseRepository
	state     *mockdata.State
	generator *opening.Generator
	credits   CreditReader
}

// NewPackRepository builds the pack repository. Mock openings draw from
// generator and are paced by reveal.
func NewPackRepository(base *BaseRepository, state *mockdata.State, generator *opening.Generator, credits CreditReader, reveal *mockdata.Latency) PackRepository {
	return &packRepository{
		BaseRepository: base,
		reveal:         base.withLatency(reveal),
		state:          state,
		generator:      generator,
		credits:        credits,
	}
}

func packPath(id string, rest ...string) string {
	p := "/packs/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (r *packRepository) FindAll(ctx context.Context, params url.Values) ([]models.Pack, error) {
	return run(ctx, r.BaseRepository, "find_all", "", func(ctx context.Context) ([]models.Pack, error) {
		resp, err := api.Get[[]wirePack](ctx, r.client, "/packs", params)
		if err != nil {
			return nil, err
		}
		return toPacks(resp.Data), nil
	}, func(context.Context) ([]models.Pack, error) {
		packs := r.state.Packs()
		if params.Get("available") == "true" {
			available := packs[:0]
			for _, p := range packs {
				if p.Available {
					available = append(available, p)
				}
			}
			packs = available
		}
		return paginate(packs, params), nil
	})
}

func (r *packRepository) FindByID(ctx context.Context, id string) (models.Pack, error) {
	return run(ctx, r.BaseRepository, "find_by_id", id, func(ctx context.Context) (models.Pack, error) {
		resp, err := api.Get[wirePack](ctx, r.client, packPath(id), nil)
		if err != nil {
			return models.Pack{}, err
		}
		return toPack(resp.Data), nil
	}, func(context.Context) (models.Pack, error) {
		return r.state.Pack(id)
	})
}

func (r *packRepository) Create(ctx context.Context, pack models.Pack) (models.Pack, error) {
	if err := pack.Validate(); err != nil {
		return models.Pack{}, &ValidationError{Entity: "pack", Reasons: []string{err.Error()}}
	}
	return run(ctx, r.BaseRepository, "create", pack.ID, func(ctx context.Context) (models.Pack, error) {
		resp, err := api.Post[wirePack](ctx, r.client, "/packs", fromPack(pack))
		if err != nil {
			return models.Pack{}, err
		}
		return toPack(resp.Data), nil
	}, func(context.Context) (models.Pack, error) {
		return r.state.SavePack(pack), nil
	})
}

func (r *packRepository) Update(ctx context.Context, id string, pack models.Pack) (models.Pack, error) {
	pack.ID = id
	if err := pack.Validate(); err != nil {
		return models.Pack{}, &ValidationError{Entity: "pack", Reasons: []string{err.Error()}}
	}
	return run(ctx, r.BaseRepository, "update", id, func(ctx context.Context) (models.Pack, error) {
		resp, err := api.Put[wirePack](ctx, r.client, packPath(id), fromPack(pack))
		if err != nil {
			return models.Pack{}, err
		}
		return toPack(resp.Data), nil
	}, func(context.Context) (models.Pack, error) {
		if _, err := r.state.Pack(id); err != nil {
			return models.Pack{}, err
		}
		return r.state.SavePack(pack), nil
	})
}

func (r *packRepository) Delete(ctx context.Context, id string) error {
	return exec(ctx, r.BaseRepository, "delete", id, func(ctx context.Context) error {
		_, err := api.Delete[struct{}](ctx, r.client, packPath(id))
		return err
	}, func(context.Context) error {
		return r.state.DeletePack(id)
	})
}

// ValidatePurchase checks availability, stock and the buyer's balance.
func (r *packRepository) ValidatePurchase(ctx context.Context, userID, packID string, quantity int) (models.PurchaseValidation, error) {
	pack, err := r.FindByID(ctx, packID)
	if err != nil {
		return models.PurchaseValidation{}, err
	}
	credits, err := r.credits.GetCredits(ctx, userID)
	if err != nil {
		return models.PurchaseValidation{}, err
	}
	return models.ValidatePurchase(pack, credits, quantity), nil
}

// Purchase validates first and only then charges. A rejected purchase leaves
// the balance untouched and returns a *ValidationError.
func (r *packRepository) Purchase(ctx context.Context, userID, packID string, quantity int) (models.PurchaseResult, error) {
	validation, err := r.ValidatePurchase(ctx, userID, packID, quantity)
	if err != nil {
		return models.PurchaseResult{}, err
	}
	if !validation.Valid {
		return models.PurchaseResult{}, &ValidationError{Entity: "purchase", Reasons: validation.Errors}
	}

	return run(ctx, r.BaseRepository, "purchase", packID, func(ctx context.Context) (models.PurchaseResult, error) {
		resp, err := api.Post[wirePurchaseResult](ctx, r.client, packPath(packID, "purchase"), wirePurchaseRequest{UserID: userID, Quantity: quantity})
		if err != nil {
			return models.PurchaseResult{}, err
		}
		return toPurchaseResult(resp.Data), nil
	}, func(context.Context) (models.PurchaseResult, error) {
		res, err := r.state.Purchase(userID, packID, quantity)
		var rejected *mockdata.RejectedError
		if errors.As(err, &rejected) {
			return res, &ValidationError{Entity: "purchase", Reasons: rejected.Reasons}
		}
		return res, err
	})
}

// Open reveals the cards of one pack. Mock openings run the card generator
// and take longer than other mock calls.
func (r *packRepository) Open(ctx context.Context, userID, packID string) (models.PackOpening, error) {
	return run(ctx, r.reveal, "open", packID, func(ctx context.Context) (models.PackOpening, error) {
		resp, err := api.Post[wirePackOpening](ctx, r.client, packPath(packID, "open"), wirePurchaseRequest{UserID: userID, Quantity: 1})
		if err != nil {
			return models.PackOpening{}, err
		}
		return toPackOpening(resp.Data), nil
	}, func(context.Context) (models.PackOpening, error) {
		pack, err := r.state.Pack(packID)
		if err != nil {
			return models.PackOpening{}, err
		}
		cards, err := r.generator.Generate(pack)
		if err != nil {
			return models.PackOpening{}, err
		}
		for i := range cards {
			cards[i].OwnerID = userID
		}
		if err := r.state.RecordOpening(userID, pack, cards); err != nil {
			return models.PackOpening{}, err
		}
		return models.PackOpening{Pack: pack, Cards: cards, OpenedAt: r.state.Now()}, nil
	})
}

func (r *packRepository) GetHistory(ctx context.Context, userID string) ([]models.PackPurchaseRecord, error) {
	return run(ctx, r.BaseRepository, "get_history", userID, func(ctx context.Context) ([]models.PackPurchaseRecord, error) {
		resp, err := api.Get[[]wirePurchaseRecord](ctx, r.client, userPath(userID, "packs", "history"), nil)
		if err != nil {
			return nil, err
		}
		return toPurchaseRecords(resp.Data), nil
	}, func(context.Context) ([]models.PackPurchaseRecord, error) {
		return r.state.PurchaseHistory(userID), nil
	})
}

// GetRecommendations suggests packs userID can afford right now, featured
// packs first, then the most expensive.
func (r *packRepository) GetRecommendations(ctx context.Context, userID string) ([]models.Pack, error) {
	return run(ctx, r.BaseRepository, "get_recommendations", userID, func(ctx context.Context) ([]models.Pack, error) {
		resp, err := api.Get[[]wirePack](ctx, r.client, userPath(userID, "packs", "recommendations"), nil)
		if err != nil {
			return nil, err
		}
		return toPacks(resp.Data), nil
	}, func(context.Context) ([]models.Pack, error) {
		u, err := r.state.User(userID)
		if err != nil {
			return nil, err
		}
		return Recommend(r.state.Packs(), u.Credits, r.state.Now(), RecommendationLimit), nil
	})
}

func (r *packRepository) GetStatistics(ctx context.Context, packID string) (models.PackStatistics, error) {
	return run(ctx, r.BaseRepository, "get_statistics", packID, func(ctx context.Context) (models.PackStatistics, error) {
		resp, err := api.Get[wirePackStatistics](ctx, r.client, packPath(packID, "statistics"), nil)
		if err != nil {
			return models.PackStatistics{}, err
		}
		return toPackStatistics(resp.Data), nil
	}, func(context.Context) (models.PackStatistics, error) {
		return r.state.Statistics(packID)
	})
}

// Recommend picks up to limit available, affordable packs. Featured packs
// come first, then higher prices.
func Recommend(packs []models.Pack, credits int64, now time.Time, limit int) []models.Pack {
	var out []models.Pack
	for _, p := range packs {
		if models.ValidatePurchase(p, credits, 1).Valid {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].IsFeatured(now), out[j].IsFeatured(now)
		if fi != fj {
			return fi
		}
		return out[i].Price > out[j].Price
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
