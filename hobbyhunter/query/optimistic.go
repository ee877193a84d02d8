package query

import (
	"context"
	"sort"
	"sync"

	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

// Update is one optimistic change to a cached key.
type Update interface {
	target() Key
	apply(old any) (any, bool)
}

// Optimistic rewrites the cached value of Key with Apply. Keys that are not
// cached, or hold a value of another type, are left alone.
type Optimistic[T any] struct {
	Key   Key
	Apply func(T) T
}

func (o Optimistic[T]) target() Key {
	return o.Key
}

func (o Optimistic[T]) apply(old any) (any, bool) {
	v, ok := old.(T)
	if !ok {
		return nil, false
	}
	return o.Apply(v), true
}

type snapshot struct {
	key     Key
	present bool
	entry   entry
}

// Mutate runs fn with optimistic updates applied to the cache. On failure
// every touched key is restored to its exact previous state. The keys stay
// locked until fn finished and the cache is either committed or rolled back,
// so an invalidation of those keys waits for the mutation. onSettled runs
// afterwards with fn's result and error; it is where callers write
// server-confirmed data and invalidate dependents.
func Mutate[R any](ctx context.Context, c *Client, updates []Update, fn func(context.Context) (R, error), onSettled func(R, error)) (R, error) {
	names := make([]string, 0, len(updates))
	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		name := u.target().String()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	unlocks := make([]func(), 0, len(names))
	for _, name := range names {
		unlocks = append(unlocks, c.locks.lock(name))
	}

	snaps := c.apply(updates)
	result, err := fn(ctx)
	if err != nil {
		c.rollback(snaps)
		logger.LogError("Optimistic update rolled back", err)
	}

	for i := len(unlocks) - 1; i >= 0; i-- {
		unlocks[i]()
	}

	if onSettled != nil {
		onSettled(result, err)
	}
	return result, err
}

// Apply writes updates to the cache without a mutation around them, for data
// the server already confirmed.
func (c *Client) Apply(updates ...Update) {
	c.apply(updates)
}

func (c *Client) apply(updates []Update) []snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snaps := make([]snapshot, 0, len(updates))
	for _, u := range updates {
		key := u.target()
		e, ok := c.lookup(key)
		if !ok {
			snaps = append(snaps, snapshot{key: key})
			continue
		}
		snaps = append(snaps, snapshot{key: key, present: true, entry: *e})
		next, ok := u.apply(e.data)
		if !ok {
			continue
		}
		c.cache.Add(key.String(), &entry{key: key, data: next, updatedAt: e.updatedAt, invalidated: e.invalidated})
		logger.LogCache("Optimistic update applied", key.String())
	}
	return snaps
}

func (c *Client) rollback(snaps []snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Reverse order so a key touched twice ends at its first snapshot.
	for i := len(snaps) - 1; i >= 0; i-- {
		s := snaps[i]
		if !s.present {
			c.cache.Remove(s.key.String())
			continue
		}
		restored := s.entry
		c.cache.Add(s.key.String(), &restored)
	}
}

// CreditDelta adjusts the cached credit balance and user record by delta.
func CreditDelta(userID string, delta int64) []Update {
	return []Update{
		Optimistic[int64]{
			Key:   UserKeys.Credits(userID),
			Apply: func(credits int64) int64 { return credits + delta },
		},
		Optimistic[models.User]{
			Key: UserKeys.Detail(userID),
			Apply: func(u models.User) models.User {
				u.Credits += delta
				return u
			},
		},
	}
}

// AppendCards adds cards to the cached collection of userID.
func AppendCards(userID string, cards []models.Card) []Update {
	return []Update{
		Optimistic[[]models.Card]{
			Key: CardKeys.User(userID),
			Apply: func(owned []models.Card) []models.Card {
				next := make([]models.Card, 0, len(owned)+len(cards))
				next = append(next, owned...)
				return append(next, cards...)
			},
		},
	}
}

// RemoveCards drops cards by id from the cached collection of userID.
func RemoveCards(userID string, ids []string) []Update {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	return []Update{
		Optimistic[[]models.Card]{
			Key: CardKeys.User(userID),
			Apply: func(owned []models.Card) []models.Card {
				next := make([]models.Card, 0, len(owned))
				for _, card := range owned {
					if _, ok := drop[card.ID]; !ok {
						next = append(next, card)
					}
				}
				return next
			},
		},
	}
}

type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// lock acquires the lock for name and returns its release func. Locks are
// dropped from the map once nobody holds or waits on them.
func (k *keyLocks) lock(name string) func() {
	k.mu.Lock()
	l, ok := k.locks[name]
	if !ok {
		l = &keyLock{}
		k.locks[name] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, name)
		}
		k.mu.Unlock()
	}
}
