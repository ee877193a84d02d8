package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyhunter/storefront/hobbyhunter/api"
	"github.com/hobbyhunter/storefront/hobbyhunter/economy/opening"
	"github.com/hobbyhunter/storefront/hobbyhunter/flags"
	"github.com/hobbyhunter/storefront/hobbyhunter/localstore"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
	"github.com/hobbyhunter/storefront/hobbyhunter/query"
	"github.com/hobbyhunter/storefront/hobbyhunter/repositories"
)

const demoUser = "user-demo"

type fixture struct {
	svc   *Services
	cache *query.Client
	state *mockdata.State
}

func newFixture(t *testing.T, images ImageSigner) *fixture {
	t.Helper()
	ctx := context.Background()

	store := localstore.NewMemoryStore()
	manager, err := flags.New(ctx, store)
	require.NoError(t, err)

	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	n := 0
	state := mockdata.NewState(
		mockdata.WithStateClock(func() time.Time { return now }),
		mockdata.WithStateIDs(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)

	repos := repositories.New(repositories.Deps{
		Client:    api.NewClient(api.Options{BaseURL: "http://127.0.0.1:1", MaxAttempts: 1}),
		Flags:     manager,
		State:     state,
		Store:     store,
		Generator: opening.NewGenerator(state.Templates(), opening.WithRand(rand.New(rand.NewSource(3)))),
	})

	cache, err := query.NewClient(128, query.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	return &fixture{svc: New(repos, cache, images), cache: cache, state: state}
}

type prefixSigner struct{}

func (prefixSigner) ImageURL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func TestPurchasePack_InsufficientCreditsRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	credits, err := f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	require.Equal(t, int64(1000), credits)

	_, err = f.svc.Store.PurchasePack(ctx, demoUser, "mythic-chase", 1)
	require.Error(t, err)
	assert.True(t, repositories.IsValidation(err))

	cached, ok := query.GetData[int64](f.cache, query.UserKeys.Credits(demoUser))
	require.True(t, ok)
	assert.Equal(t, int64(1000), cached)

	credits, err = f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), credits)
}

func TestPurchasePack_OverflowingQuantityRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	before, err := f.svc.Wallet.Transactions(ctx, demoUser)
	require.NoError(t, err)

	validation, err := f.svc.Store.ValidatePurchase(ctx, demoUser, "starter-pack", math.MaxInt64/100+1)
	require.NoError(t, err)
	assert.False(t, validation.Valid)
	assert.True(t, validation.HasError(models.ReasonInsufficientCredits))

	_, err = f.svc.Store.PurchasePack(ctx, demoUser, "starter-pack", math.MaxInt64/100+1)
	require.Error(t, err)
	assert.True(t, repositories.IsValidation(err))

	cached, ok := query.GetData[int64](f.cache, query.UserKeys.Credits(demoUser))
	require.True(t, ok)
	assert.Equal(t, int64(1000), cached)

	after, err := f.svc.Wallet.Transactions(ctx, demoUser)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestPurchasePack_Success(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	_, err = f.svc.Store.Packs(ctx)
	require.NoError(t, err)
	before, err := f.svc.Wallet.Transactions(ctx, demoUser)
	require.NoError(t, err)

	result, err := f.svc.Store.PurchasePack(ctx, demoUser, "starter-pack", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(200), result.TotalCost)
	assert.Equal(t, int64(800), result.RemainingCredits)

	assert.True(t, f.cache.IsStale(query.UserKeys.Credits(demoUser)))
	assert.True(t, f.cache.IsStale(query.PackKeys.List()))

	credits, err := f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	assert.Equal(t, int64(800), credits)

	txs, err := f.svc.Wallet.Transactions(ctx, demoUser)
	require.NoError(t, err)
	require.Len(t, txs, len(before)+1)
	assert.Equal(t, models.TransactionPackPurchase, txs[0].Type)
}

func TestOpenPack_AppendsCardsAndDecorates(t *testing.T) {
	f := newFixture(t, prefixSigner{})
	ctx := context.Background()

	before, err := f.svc.Collection.Cards(ctx, demoUser)
	require.NoError(t, err)

	opened, err := f.svc.Store.OpenPack(ctx, demoUser, "starter-pack")
	require.NoError(t, err)
	require.Len(t, opened.Cards, 5)
	for _, c := range opened.Cards {
		assert.True(t, strings.HasPrefix(c.ImageURL, "https://cdn.test/"), c.ImageURL)
		assert.Equal(t, demoUser, c.OwnerID)
	}

	cached, ok := query.GetData[[]models.Card](f.cache, query.CardKeys.User(demoUser))
	require.True(t, ok)
	assert.Len(t, cached, len(before)+5)

	after, err := f.svc.Collection.Cards(ctx, demoUser)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+5)

	stats, err := f.svc.Store.PackStatistics(ctx, "starter-pack")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TimesOpened, int64(1))
}

func TestConvertCards(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cards, err := f.svc.Collection.Cards(ctx, demoUser)
	require.NoError(t, err)
	require.NotEmpty(t, cards)
	_, err = f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)

	target := cards[0]
	result, err := f.svc.Collection.ConvertCards(ctx, demoUser, []string{target.ID})
	require.NoError(t, err)
	assert.Equal(t, repositories.ConversionCredits([]models.Card{target}), result.CreditsAwarded)
	assert.Equal(t, 1000+result.CreditsAwarded, result.NewBalance)

	remaining, err := f.svc.Collection.Cards(ctx, demoUser)
	require.NoError(t, err)
	for _, c := range remaining {
		assert.NotEqual(t, target.ID, c.ID)
	}
	credits, err := f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	assert.Equal(t, result.NewBalance, credits)
}

func TestConvertCards_UnknownCardRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cards, err := f.svc.Collection.Cards(ctx, demoUser)
	require.NoError(t, err)

	_, err = f.svc.Collection.ConvertCards(ctx, demoUser, []string{cards[0].ID, "missing"})
	require.Error(t, err)

	cached, ok := query.GetData[[]models.Card](f.cache, query.CardKeys.User(demoUser))
	require.True(t, ok)
	assert.Equal(t, cards, cached)
}

func TestConvertCards_RepeatedIDRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cards, err := f.svc.Collection.Cards(ctx, demoUser)
	require.NoError(t, err)
	require.NotEmpty(t, cards)
	_, err = f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)

	id := cards[0].ID
	_, err = f.svc.Collection.ConvertCards(ctx, demoUser, []string{id, id, id})
	require.Error(t, err)
	assert.True(t, repositories.IsValidation(err))

	credits, err := f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), credits)
	owned, err := f.svc.Collection.Cards(ctx, demoUser)
	require.NoError(t, err)
	assert.Len(t, owned, len(cards))
}

func TestShipCards(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cards, err := f.svc.Collection.Cards(ctx, demoUser)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(cards), 2)

	result, err := f.svc.Collection.ShipCards(ctx, models.ShippingRequest{
		UserID:  demoUser,
		CardIDs: []string{cards[0].ID, cards[1].ID},
		Address: models.ShippingAddress{Line1: "1 Main St", City: "Springfield", Country: "US"},
	})
	require.NoError(t, err)
	assert.Equal(t, repositories.ShippingFee(2, false), result.Fee)

	credits, err := f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	assert.Equal(t, 1000-result.Fee, credits)
}

func TestWallet_PurchaseCreditsAndRefund(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tx, payment, err := f.svc.Wallet.PurchaseCredits(ctx, models.CreditPurchase{
		UserID:        demoUser,
		Credits:       500,
		Price:         decimal.NewFromFloat(4.99),
		Currency:      "USD",
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, payment.Status)
	assert.Equal(t, tx.ID, payment.TransactionID)

	credits, err := f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), credits)

	pending, err := f.svc.Wallet.PendingTransactions(ctx, demoUser)
	require.NoError(t, err)
	for _, p := range pending {
		assert.NotEqual(t, tx.ID, p.ID)
	}

	refund, err := f.svc.Wallet.Refund(ctx, tx.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionRefund, refund.Type)

	credits, err = f.svc.Wallet.Credits(ctx, demoUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), credits)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, nil)
	d, err := f.svc.Store.Dashboard(context.Background(), demoUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), d.Credits)
	assert.Len(t, d.Packs, len(mockdata.Packs()))
	assert.NotEmpty(t, d.Cards)

	for _, k := range []query.Key{
		query.UserKeys.Profile(demoUser),
		query.UserKeys.Credits(demoUser),
		query.CardKeys.User(demoUser),
		query.TransactionKeys.User(demoUser),
		query.PackKeys.List(),
	} {
		assert.False(t, f.cache.IsStale(k), k.String())
	}
}

func TestDashboard_UnknownUser(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.state.DeleteUser(demoUser))
	_, err := f.svc.Store.Dashboard(context.Background(), demoUser)
	require.Error(t, err)
	assert.True(t, repositories.IsNotFound(err))
}

func TestSpacesService_PresignsObjectKeys(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")
	ctx := context.Background()
	s, err := NewSpacesService(ctx, SpacesConfig{
		Key:      "key",
		Secret:   "secret",
		Region:   "nyc3",
		Bucket:   "hh-art",
		CardRoot: "/cards/",
	})
	require.NoError(t, err)
	assert.Equal(t, "cards/rare/ember-drake.png", s.ObjectKey("rare/ember-drake.png"))

	url, err := s.ImageURL(ctx, "rare/ember-drake.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://nyc3.digitaloceanspaces.com/hh-art/cards/rare/ember-drake.png?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")

	same, err := s.ImageURL(ctx, "https://elsewhere.test/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://elsewhere.test/a.png", same)

	_, err = NewSpacesService(ctx, SpacesConfig{Region: "nyc3"})
	require.Error(t, err)
}
