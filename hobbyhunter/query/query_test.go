package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestClient(t *testing.T) (*Client, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)}
	c, err := NewClient(64, WithClock(clock.Now))
	require.NoError(t, err)
	return c, clock
}

func TestKey_StringAndMatches(t *testing.T) {
	assert.Equal(t, "user/credits/u1", UserKeys.Credits("u1").String())
	assert.Equal(t, "cards", CardKeys.All().String())
	assert.Equal(t, "cards/search/u1/fire%2Fice", CardKeys.Search("u1", "fire/ice").String())
	assert.True(t, UserKeys.Credits("u1").Equal(NewKey(DomainUser, OpCredits, "u1")))

	tests := []struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}{
		{"domain wildcard", CardKeys.User("u1"), CardKeys.All(), true},
		{"exact", UserKeys.Profile("u1"), UserKeys.Profile("u1"), true},
		{"param prefix", CardKeys.Expiring("u1", "72h"), NewKey(DomainCards, OpExpiring, "u1"), true},
		{"other user", CardKeys.Expiring("u2", "72h"), NewKey(DomainCards, OpExpiring, "u1"), false},
		{"other op", UserKeys.Credits("u1"), UserKeys.Profile("u1"), false},
		{"other domain", PackKeys.Detail("p1"), CardKeys.All(), false},
		{"prefix longer than key", CardKeys.Market(), CardKeys.History("c1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.Matches(tt.prefix))
		})
	}
}

func TestFetch_CachesUntilStale(t *testing.T) {
	c, clock := newTestClient(t)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (int64, error) {
		calls++
		return int64(100 * calls), nil
	}

	key := UserKeys.Credits("u1")
	v, err := Fetch(ctx, c, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)

	v, err = Fetch(ctx, c, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)
	assert.Equal(t, 1, calls)

	clock.Advance(PolicyFor(key).StaleTime)
	v, err = Fetch(ctx, c, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(200), v)
	assert.Equal(t, 2, calls)
}

func TestFetch_ErrorWithStaleDataIsReturned(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	key := PackKeys.List()
	c.SetData(key, []string{"starter-pack"})
	c.Invalidate(key)

	boom := errors.New("boom")
	_, err := Fetch(ctx, c, key, func(context.Context) ([]string, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	// the stale data is still there for explicit reads
	v, ok := GetData[[]string](c, key)
	require.True(t, ok)
	assert.Equal(t, []string{"starter-pack"}, v)
}

func TestPolicies(t *testing.T) {
	assert.Equal(t, 10*time.Second, PolicyFor(TransactionKeys.Pending("u1")).StaleTime)
	assert.Equal(t, 30*time.Minute, PolicyFor(PackKeys.Recommendations("u1")).StaleTime)
	assert.Equal(t, time.Minute, PolicyFor(CardKeys.Market()).RefetchInterval)
	assert.Zero(t, PolicyFor(UserKeys.Profile("u1")).RefetchInterval)
	assert.Equal(t, defaultStaleTime, PolicyFor(NewKey(DomainCards, "unknown")).StaleTime)
}

func TestInvalidateUser_MarksUserGroupStale(t *testing.T) {
	c, _ := newTestClient(t)
	keys := []Key{
		UserKeys.Profile("u1"),
		UserKeys.Credits("u1"),
		CardKeys.User("u1"),
		TransactionKeys.User("u1"),
	}
	for _, k := range keys {
		c.SetData(k, "data")
	}
	other := UserKeys.Profile("u2")
	c.SetData(other, "data")
	packs := PackKeys.List()
	c.SetData(packs, "data")

	assert.Equal(t, 4, c.InvalidateUser("u1"))

	for _, k := range keys {
		st, ok := c.State(k)
		require.True(t, ok, k.String())
		assert.True(t, st.Invalidated, k.String())
		assert.True(t, st.Stale, k.String())
	}
	assert.False(t, c.IsStale(other))
	assert.False(t, c.IsStale(packs))
}

func TestInvalidateDomains(t *testing.T) {
	c, _ := newTestClient(t)
	c.SetData(CardKeys.User("u1"), 1)
	c.SetData(CardKeys.Market(), 1)
	c.SetData(PackKeys.Detail("p1"), 1)
	c.SetData(TransactionKeys.Pending("u1"), 1)

	assert.Equal(t, 2, c.InvalidateCards())
	assert.Equal(t, 1, c.InvalidatePacks())
	assert.Equal(t, 1, c.InvalidateTransactions())
	assert.Equal(t, 0, c.InvalidateUser("nobody"))
}

func TestMutate_RollbackRestoresExactCredits(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	c.SetData(UserKeys.Credits("u1"), int64(1000))
	c.SetData(UserKeys.Detail("u1"), models.User{ID: "u1", Credits: 1000})
	before, _ := c.State(UserKeys.Credits("u1"))

	boom := errors.New("purchase failed")
	var seenDuringMutation int64
	var settledErr error
	_, err := Mutate(ctx, c, CreditDelta("u1", -250), func(context.Context) (string, error) {
		seenDuringMutation, _ = GetData[int64](c, UserKeys.Credits("u1"))
		return "", boom
	}, func(_ string, err error) {
		settledErr = err
	})
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, settledErr, boom)
	assert.Equal(t, int64(750), seenDuringMutation)

	credits, ok := GetData[int64](c, UserKeys.Credits("u1"))
	require.True(t, ok)
	assert.Equal(t, int64(1000), credits)
	user, _ := GetData[models.User](c, UserKeys.Detail("u1"))
	assert.Equal(t, int64(1000), user.Credits)
	after, _ := c.State(UserKeys.Credits("u1"))
	assert.Equal(t, before, after)
}

func TestMutate_RollbackRemovesKeysThatWereAbsent(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := Mutate(context.Background(), c, CreditDelta("u1", 10), func(context.Context) (int, error) {
		return 0, errors.New("nope")
	}, nil)
	require.Error(t, err)
	_, ok := c.Get(UserKeys.Credits("u1"))
	assert.False(t, ok)
}

func TestMutate_CommitKeepsOptimisticDataAndSettles(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	owned := []models.Card{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}
	c.SetData(CardKeys.User("u1"), owned)
	c.SetData(UserKeys.Credits("u1"), int64(10))

	updates := append(RemoveCards("u1", []string{"c2"}), CreditDelta("u1", 65)...)
	got, err := Mutate(ctx, c, updates, func(context.Context) (int64, error) {
		return 75, nil
	}, func(credits int64, err error) {
		require.NoError(t, err)
		c.SetData(UserKeys.Credits("u1"), credits)
		c.InvalidateCards()
	})
	require.NoError(t, err)
	assert.Equal(t, int64(75), got)

	cards, _ := GetData[[]models.Card](c, CardKeys.User("u1"))
	assert.Equal(t, []models.Card{{ID: "c1"}, {ID: "c3"}}, cards)
	assert.Len(t, owned, 3, "the snapshot slice is not mutated")
	assert.True(t, c.IsStale(CardKeys.User("u1")))
	credits, _ := GetData[int64](c, UserKeys.Credits("u1"))
	assert.Equal(t, int64(75), credits)
}

func TestAppendCards(t *testing.T) {
	c, _ := newTestClient(t)
	c.SetData(CardKeys.User("u1"), []models.Card{{ID: "c1"}})
	_, err := Mutate(context.Background(), c, AppendCards("u1", []models.Card{{ID: "c2"}}), func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	}, nil)
	require.NoError(t, err)
	cards, _ := GetData[[]models.Card](c, CardKeys.User("u1"))
	assert.Equal(t, []models.Card{{ID: "c1"}, {ID: "c2"}}, cards)
}

func TestMutate_InvalidationWaitsForRollback(t *testing.T) {
	c, _ := newTestClient(t)
	key := UserKeys.Credits("u1")
	c.SetData(key, int64(500))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Mutate(context.Background(), c, CreditDelta("u1", -100), func(context.Context) (int, error) {
			close(started)
			<-release
			return 0, errors.New("declined")
		}, nil)
	}()

	<-started
	var invalidated atomic.Bool
	invDone := make(chan struct{})
	go func() {
		defer close(invDone)
		c.Invalidate(key)
		invalidated.Store(true)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, invalidated.Load())
	close(release)
	<-done
	<-invDone

	st, ok := c.State(key)
	require.True(t, ok)
	assert.True(t, st.Invalidated)
	credits, _ := GetData[int64](c, key)
	assert.Equal(t, int64(500), credits)
}

func TestRefresher_RefreshAll(t *testing.T) {
	c, clock := newTestClient(t)
	r := NewRefresher(c)
	ctx := context.Background()

	var calls atomic.Int64
	fetch := func(context.Context) (float64, error) {
		return float64(calls.Add(1)), nil
	}
	_, err := Fetch(ctx, c, CardKeys.Market(), fetch)
	require.NoError(t, err)
	_, err = Fetch(ctx, c, UserKeys.Profile("u1"), func(context.Context) (string, error) { return "p", nil })
	require.NoError(t, err)

	watched := r.Watched()
	require.Len(t, watched, 1)
	assert.True(t, watched[0].Equal(CardKeys.Market()))

	clock.Advance(time.Second)
	require.NoError(t, r.RefreshAll(ctx))
	v, _ := GetData[float64](c, CardKeys.Market())
	assert.Equal(t, float64(2), v)

	c.Remove(CardKeys.Market())
	require.NoError(t, r.RefreshAll(ctx))
	assert.Empty(t, r.Watched())
	assert.Equal(t, int64(2), calls.Load())
}

func TestRefresher_PropagatesErrors(t *testing.T) {
	c, _ := newTestClient(t)
	r := NewRefresher(c)
	c.SetData(TransactionKeys.Pending("u1"), 0)
	r.Watch(TransactionKeys.Pending("u1"), func(context.Context) (any, error) {
		return nil, errors.New("down")
	})
	err := r.RefreshAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transactions/pending/u1")
}

func TestClient_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewClient(2)
	require.NoError(t, err)
	c.SetData(PackKeys.Detail("a"), 1)
	c.SetData(PackKeys.Detail("b"), 2)
	c.Get(PackKeys.Detail("a"))
	c.SetData(PackKeys.Detail("c"), 3)

	_, ok := c.Get(PackKeys.Detail("b"))
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}
