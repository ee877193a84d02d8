package repositories

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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
)

type fixture struct {
	repos  *Repositories
	state  *mockdata.State
	flags  *flags.Manager
	store  *localstore.MemoryStore
	server *httptest.Server
	hits   *int32
}

// newFixture wires repositories against handler. realAPI lists the flags to
// switch on.
func newFixture(t *testing.T, handler http.HandlerFunc, realAPI ...flags.Name) *fixture {
	t.Helper()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	env := make(map[flags.Name]bool)
	for _, name := range realAPI {
		env[name] = true
	}
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	manager, err := flags.New(ctx, store, flags.WithEnv(env))
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

	client := api.NewClient(api.Options{BaseURL: server.URL, MaxAttempts: 1, Timeout: time.Second})
	generator := opening.NewGenerator(state.Templates(), opening.WithRand(rand.New(rand.NewSource(7))))

	repos := New(Deps{
		Client:    client,
		Flags:     manager,
		State:     state,
		Store:     store,
		Generator: generator,
	})

	return &fixture{repos: repos, state: state, flags: manager, store: store, server: server, hits: &hits}
}

func (f *fixture) requests() int {
	return int(atomic.LoadInt32(f.hits))
}

func statusHandler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}

func TestFlagOffUsesMockData(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusInternalServerError))
	ctx := context.Background()

	packs, err := f.repos.Packs.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, packs, len(mockdata.Packs()))

	user, err := f.repos.Users.FindByID(ctx, "user-demo")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), user.Credits)

	assert.Zero(t, f.requests())
}

func TestRemoteDecodesWireShape(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/packs/starter-pack", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"id": "starter-pack",
				"name": "Starter Pack",
				"price": 100,
				"card_count": 5,
				"rarity_guarantees": [{"rarity": "common", "count": 3}, {"rarity": "uncommon", "count": 2}],
				"is_available": true,
				"stock": 12,
				"image_url": "https://cdn.test/starter.png"
			}
		}`))
	}, flags.UseRealPackAPI)

	pack, err := f.repos.Packs.FindByID(context.Background(), "starter-pack")
	require.NoError(t, err)
	assert.Equal(t, int64(100), pack.Price)
	assert.Equal(t, 5, pack.CardCount)
	assert.True(t, pack.Available)
	require.NotNil(t, pack.Stock)
	assert.Equal(t, 12, *pack.Stock)
	assert.Equal(t, []models.RarityGuarantee{
		{Rarity: models.RarityCommon, Count: 3},
		{Rarity: models.RarityUncommon, Count: 2},
	}, pack.Guarantees)
	assert.Equal(t, 1, f.requests())
}

func TestServerErrorFallsBackToMock(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusBadGateway), flags.UseRealPackAPI)

	pack, err := f.repos.Packs.FindByID(context.Background(), "elite-pack")
	require.NoError(t, err)
	assert.Equal(t, "Elite Pack", pack.Name)
	assert.Equal(t, 1, f.requests())
}

func TestNetworkErrorFallsBackToMock(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusOK), flags.UseRealCardAPI)
	f.server.Close()

	prices, err := f.repos.Cards.GetMarketPrices(context.Background())
	require.NoError(t, err)
	assert.Len(t, prices, len(mockdata.Templates()))
}

func TestNotFoundDoesNotFallBack(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"pack not found"}`))
	}, flags.UseRealPackAPI)

	require.True(t, f.flags.IsEnabled(flags.MockFallback))

	_, err := f.repos.Packs.FindByID(context.Background(), "starter-pack")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, api.IsKind(err, api.KindNotFound))
	assert.Equal(t, 1, f.requests())
}

func TestFallbackDisabledPropagates(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusServiceUnavailable), flags.UseRealUserAPI)
	require.NoError(t, f.flags.SetFlag(context.Background(), flags.MockFallback, false))

	_, err := f.repos.Users.GetCredits(context.Background(), "user-demo")
	require.Error(t, err)
	assert.True(t, IsRepositoryError(err))
	assert.Equal(t, api.KindServer, api.KindOf(err))
}

func TestValidationErrorDoesNotFallBack(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusBadRequest), flags.UseRealTransactionAPI)

	_, err := f.repos.Transactions.UpdateStatus(context.Background(), "tx-1", models.StatusCompleted)
	require.Error(t, err)
	assert.Equal(t, api.KindValidation, api.KindOf(err))
}

func TestPurchaseInsufficientCredits(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusInternalServerError))
	ctx := context.Background()

	buyer, err := f.repos.Users.Create(ctx, models.User{ID: "buyer", Credits: 50})
	require.NoError(t, err)
	_, err = f.repos.Packs.Create(ctx, models.Pack{
		ID: "hundred", Name: "Hundred", Price: 100, CardCount: 1, Available: true,
	})
	require.NoError(t, err)

	validation, err := f.repos.Packs.ValidatePurchase(ctx, buyer.ID, "hundred", 1)
	require.NoError(t, err)
	assert.False(t, validation.Valid)
	assert.Contains(t, validation.Errors, "insufficient credits")

	_, err = f.repos.Packs.Purchase(ctx, buyer.ID, "hundred", 1)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	credits, err := f.repos.Users.GetCredits(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), credits)

	txs, err := f.repos.Transactions.GetUserTransactions(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestPurchaseAndOpen(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusInternalServerError))
	ctx := context.Background()

	result, err := f.repos.Packs.Purchase(ctx, "user-demo", "starter-pack", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(800), result.RemainingCredits)
	assert.True(t, result.Transaction.Amount.Equal(decimal.NewFromInt(-200)))

	before, err := f.repos.Cards.GetUserCards(ctx, "user-demo")
	require.NoError(t, err)

	opened, err := f.repos.Packs.Open(ctx, "user-demo", "starter-pack")
	require.NoError(t, err)
	require.Len(t, opened.Cards, 5)

	counts := make(map[models.Rarity]int)
	for _, c := range opened.Cards {
		counts[c.Rarity]++
		assert.Equal(t, "user-demo", c.OwnerID)
		assert.Equal(t, "starter-pack", c.PackID)
	}
	assert.Equal(t, 3, counts[models.RarityCommon])
	assert.Equal(t, 2, counts[models.RarityUncommon])

	after, err := f.repos.Cards.GetUserCards(ctx, "user-demo")
	require.NoError(t, err)
	assert.Len(t, after, len(before)+5)

	history, err := f.repos.Packs.GetHistory(ctx, "user-demo")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(200), history[0].TotalCost)
}

func TestConvertAndShipCards(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusInternalServerError))
	ctx := context.Background()

	_, err := f.repos.Users.Create(ctx, models.User{ID: "u1", Credits: 100})
	require.NoError(t, err)
	tpl := mockdata.Templates()[11]
	for _, id := range []string{"c1", "c2", "c3"} {
		card := tpl.Instantiate(id, f.state.Now(), models.CardExpiry)
		card.OwnerID = "u1"
		_, err := f.repos.Cards.Create(ctx, card)
		require.NoError(t, err)
	}

	converted, err := f.repos.Cards.Convert(ctx, "u1", []string{"c1"})
	require.NoError(t, err)
	assert.Equal(t, int64(65), converted.CreditsAwarded)
	assert.Equal(t, int64(165), converted.NewBalance)

	shipped, err := f.repos.Cards.Ship(ctx, models.ShippingRequest{
		UserID:  "u1",
		CardIDs: []string{"c2", "c3"},
		Address: models.ShippingAddress{City: "Portland"},
	})
	require.NoError(t, err)
	assert.Equal(t, ShippingFee(2, false), shipped.Fee)

	credits, err := f.repos.Users.GetCredits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(165)-ShippingFee(2, false), credits)

	card, err := f.repos.Cards.FindByID(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, models.CardStatusShippingRequested, card.Status)

	_, err = f.repos.Cards.Convert(ctx, "u1", []string{"c2"})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCardSelectionRejectsRepeatedIDs(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusInternalServerError))
	ctx := context.Background()

	_, err := f.repos.Users.Create(ctx, models.User{ID: "u1", Credits: 100})
	require.NoError(t, err)
	card := mockdata.Templates()[11].Instantiate("c1", f.state.Now(), models.CardExpiry)
	card.OwnerID = "u1"
	_, err = f.repos.Cards.Create(ctx, card)
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
	}{
		{"convert", func() error {
			_, err := f.repos.Cards.Convert(ctx, "u1", []string{"c1", "c1", "c1"})
			return err
		}},
		{"sell", func() error {
			_, err := f.repos.Cards.Sell(ctx, "u1", []string{"c1", "c1"})
			return err
		}},
		{"ship", func() error {
			_, err := f.repos.Cards.Ship(ctx, models.ShippingRequest{UserID: "u1", CardIDs: []string{"c1", "c1"}})
			return err
		}},
		{"empty", func() error {
			_, err := f.repos.Cards.Convert(ctx, "u1", nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsValidation(tt.call()))
		})
	}

	credits, err := f.repos.Users.GetCredits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), credits)
	stored, err := f.repos.Cards.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CardStatusOwned, stored.Status)
	assert.Zero(t, f.requests())
}

func TestCreditPurchaseLifecycle(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusInternalServerError))
	ctx := context.Background()

	tx, err := f.repos.Transactions.PurchaseCredits(ctx, models.CreditPurchase{
		UserID: "user-demo", Credits: 500, Price: decimal.RequireFromString("4.99"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tx.Status)

	payment, err := f.repos.Transactions.ProcessPayment(ctx, models.Payment{TransactionID: tx.ID, Provider: "stripe", Reference: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, payment.Status)

	credits, err := f.repos.Users.GetCredits(ctx, "user-demo")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), credits)

	_, err = f.repos.Transactions.UpdateStatus(ctx, tx.ID, models.StatusPending)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	receipt, err := f.repos.Transactions.GetReceipt(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, receipt.Total.Equal(decimal.NewFromInt(500)))
}

func TestAuthStoresAndClearsTokens(t *testing.T) {
	f := newFixture(t, statusHandler(http.StatusInternalServerError))
	ctx := context.Background()

	session, err := f.repos.Auth.Login(ctx, models.Credentials{Email: "demo@hobbyhunter.test", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "user-demo", session.User.ID)

	token, ok, err := f.store.Get(ctx, localstore.TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, session.Token, token)

	user, err := f.repos.Auth.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-demo", user.ID)

	require.NoError(t, f.repos.Auth.Logout(ctx))
	_, ok, _ = f.store.Get(ctx, localstore.TokenKey)
	assert.False(t, ok)

	_, err = f.repos.Auth.Verify(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = f.repos.Auth.Register(ctx, models.Registration{Email: "nope", Password: "short"})
	assert.True(t, IsValidation(err))
}

func TestRecommend(t *testing.T) {
	now := mockdata.Anchor
	got := Recommend(mockdata.Packs(), 2000, now, 3)

	ids := make([]string, len(got))
	for i, p := range got {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"legendary-vault", "elite-pack", "collector-pack"}, ids)
}
