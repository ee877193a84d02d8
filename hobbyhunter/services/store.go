package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
	"github.com/hobbyhunter/storefront/hobbyhunter/query"
	"github.com/hobbyhunter/storefront/hobbyhunter/repositories"
	"golang.org/x/sync/errgroup"
)

// StoreService is the pack storefront: catalog, purchases and openings.
type StoreService struct {
	repos  *repositories.Repositories
	cache  *query.Client
	images ImageSigner
}

func NewStoreService(repos *repositories.Repositories, cache *query.Client, images ImageSigner) *StoreService {
	return &StoreService{repos: repos, cache: cache, images: images}
}

func (s *StoreService) Packs(ctx context.Context) ([]models.Pack, error) {
	packs, err := query.Fetch(ctx, s.cache, query.PackKeys.List(), func(ctx context.Context) ([]models.Pack, error) {
		return s.repos.Packs.FindAll(ctx, nil)
	})
	if err != nil {
		return nil, err
	}
	return decoratePacks(ctx, s.images, packs), nil
}

func (s *StoreService) Pack(ctx context.Context, id string) (models.Pack, error) {
	pack, err := s.pack(ctx, id)
	if err != nil {
		return models.Pack{}, err
	}
	return decoratePacks(ctx, s.images, []models.Pack{pack})[0], nil
}

func (s *StoreService) pack(ctx context.Context, id string) (models.Pack, error) {
	return query.Fetch(ctx, s.cache, query.PackKeys.Detail(id), func(ctx context.Context) (models.Pack, error) {
		return s.repos.Packs.FindByID(ctx, id)
	})
}

func (s *StoreService) PackRecommendations(ctx context.Context, userID string) ([]models.Pack, error) {
	packs, err := query.Fetch(ctx, s.cache, query.PackKeys.Recommendations(userID), func(ctx context.Context) ([]models.Pack, error) {
		return s.repos.Packs.GetRecommendations(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return decoratePacks(ctx, s.images, packs), nil
}

func (s *StoreService) PackStatistics(ctx context.Context, packID string) (models.PackStatistics, error) {
	return query.Fetch(ctx, s.cache, query.PackKeys.Statistics(packID), func(ctx context.Context) (models.PackStatistics, error) {
		return s.repos.Packs.GetStatistics(ctx, packID)
	})
}

func (s *StoreService) PurchaseHistory(ctx context.Context, userID string) ([]models.PackPurchaseRecord, error) {
	return query.Fetch(ctx, s.cache, query.PackKeys.History(userID), func(ctx context.Context) ([]models.PackPurchaseRecord, error) {
		return s.repos.Packs.GetHistory(ctx, userID)
	})
}

// ValidatePurchase is never cached; balances and stock move too often.
func (s *StoreService) ValidatePurchase(ctx context.Context, userID, packID string, quantity int) (models.PurchaseValidation, error) {
	return s.repos.Packs.ValidatePurchase(ctx, userID, packID, quantity)
}

// PurchasePack buys quantity packs. The cached balance drops by the total
// cost right away and is restored if the purchase fails.
func (s *StoreService) PurchasePack(ctx context.Context, userID, packID string, quantity int) (models.PurchaseResult, error) {
	pack, err := s.pack(ctx, packID)
	if err != nil {
		return models.PurchaseResult{}, err
	}
	cost, ok := pack.Cost(quantity)
	if !ok {
		reason := models.ReasonInsufficientCredits
		if quantity < 1 {
			reason = models.ReasonInvalidQuantity
		}
		return models.PurchaseResult{}, &repositories.ValidationError{Entity: "purchase", Reasons: []string{reason}}
	}

	return query.Mutate(ctx, s.cache, query.CreditDelta(userID, -cost),
		func(ctx context.Context) (models.PurchaseResult, error) {
			return s.repos.Packs.Purchase(ctx, userID, packID, quantity)
		},
		func(result models.PurchaseResult, err error) {
			if err == nil {
				s.cache.SetData(query.UserKeys.Credits(userID), result.RemainingCredits)
				logger.LogSystem("Pack purchased",
					slog.String("user", userID),
					slog.String("pack", packID),
					slog.Int("quantity", quantity),
					slog.Int64("cost", result.TotalCost),
				)
			}
			s.cache.InvalidateUser(userID)
			s.cache.InvalidatePacks()
			s.cache.InvalidateTransactions()
		})
}

// OpenPack opens one pack and adds the drawn cards to the cached collection
// once the opening is confirmed.
func (s *StoreService) OpenPack(ctx context.Context, userID, packID string) (models.PackOpening, error) {
	opening, err := s.repos.Packs.Open(ctx, userID, packID)
	if err != nil {
		return models.PackOpening{}, fmt.Errorf("failed to open pack %s: %w", packID, err)
	}

	s.cache.Apply(query.AppendCards(userID, opening.Cards)...)
	s.cache.Invalidate(
		query.CardKeys.User(userID),
		query.NewKey(query.DomainCards, query.OpExpiring, userID),
		query.PackKeys.History(userID),
		query.PackKeys.Statistics(packID),
	)

	opening.Cards = decorateCards(ctx, s.images, opening.Cards)
	return opening, nil
}

// Dashboard is the landing view of a signed in collector.
type Dashboard struct {
	Profile      models.Profile
	Credits      int64
	Cards        []models.Card
	Transactions []models.Transaction
	Packs        []models.Pack
}

// Dashboard prefetches everything the landing view needs in parallel.
func (s *StoreService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := query.Fetch(ctx, s.cache, query.UserKeys.Profile(userID), func(ctx context.Context) (models.Profile, error) {
			return s.repos.Users.GetProfile(ctx, userID)
		})
		d.Profile = p
		return err
	})
	g.Go(func() error {
		c, err := query.Fetch(ctx, s.cache, query.UserKeys.Credits(userID), func(ctx context.Context) (int64, error) {
			return s.repos.Users.GetCredits(ctx, userID)
		})
		d.Credits = c
		return err
	})
	g.Go(func() error {
		cards, err := query.Fetch(ctx, s.cache, query.CardKeys.User(userID), func(ctx context.Context) ([]models.Card, error) {
			return s.repos.Cards.GetUserCards(ctx, userID)
		})
		d.Cards = decorateCards(ctx, s.images, cards)
		return err
	})
	g.Go(func() error {
		txs, err := query.Fetch(ctx, s.cache, query.TransactionKeys.User(userID), func(ctx context.Context) ([]models.Transaction, error) {
			return s.repos.Transactions.GetUserTransactions(ctx, userID)
		})
		d.Transactions = txs
		return err
	})
	g.Go(func() error {
		packs, err := s.Packs(ctx)
		d.Packs = packs
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return d, nil
}
