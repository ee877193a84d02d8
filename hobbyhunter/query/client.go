package query

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
)

const DefaultCacheSize = 1024

type entry struct {
	key         Key
	data        any
	updatedAt   time.Time
	invalidated bool
}

// EntryState is a read-only view of a cache entry's bookkeeping.
type EntryState struct {
	UpdatedAt   time.Time
	Invalidated bool
	Stale       bool
}

// Client is the bounded query cache. Entries are evicted least recently used
// first once the cache is full.
type Client struct {
	cache     *lru.Cache
	mu        sync.Mutex
	locks     *keyLocks
	now       func() time.Time
	refresher *Refresher
}

type ClientOption func(*Client)

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(size int, opts ...ClientOption) (*Client, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	c := &Client{
		cache: cache,
		locks: newKeyLocks(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UseRefresher makes Fetch register keys with a refetch interval on r.
func (c *Client) UseRefresher(r *Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresher = r
}

func (c *Client) Now() time.Time {
	return c.now()
}

// Get returns the cached data for key regardless of staleness.
func (c *Client) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	return e.data, true
}

// GetData returns cached data typed as T.
func GetData[T any](c *Client, key Key) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// SetData stores data for key and marks it fresh.
func (c *Client) SetData(key Key, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, data)
}

func (c *Client) store(key Key, data any) {
	c.cache.Add(key.String(), &entry{key: key, data: data, updatedAt: c.now()})
	logger.LogCache("Cache entry stored", key.String())
}

func (c *Client) lookup(key Key) (*entry, bool) {
	v, ok := c.cache.Get(key.String())
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

// State reports the bookkeeping of key's entry.
func (c *Client) State(key Key) (EntryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	if !ok {
		return EntryState{}, false
	}
	return EntryState{
		UpdatedAt:   e.updatedAt,
		Invalidated: e.invalidated,
		Stale:       c.stale(e),
	}, true
}

// IsStale reports whether key must be refetched before use. Missing keys are
// stale.
func (c *Client) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	return !ok || c.stale(e)
}

func (c *Client) stale(e *entry) bool {
	if e.invalidated {
		return true
	}
	return c.now().Sub(e.updatedAt) >= PolicyFor(e.key).StaleTime
}

// Age returns how long ago key was last written.
func (c *Client) Age(key Key) (time.Duration, bool) {
	st, ok := c.State(key)
	if !ok {
		return 0, false
	}
	return c.now().Sub(st.UpdatedAt), true
}

// Remove drops key from the cache.
func (c *Client) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(key.String())
}

// Keys lists cached keys ordered by their string form.
func (c *Client) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, c.cache.Len())
	for _, k := range c.cache.Keys() {
		if v, ok := c.cache.Peek(k); ok {
			keys = append(keys, v.(*entry).key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (c *Client) Len() int {
	return c.cache.Len()
}

func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
	logger.LogCache("Cache cleared", "*")
}

// Fetch returns fresh cached data for key or calls fetch and caches its
// result. A failed fetch returns the error even when stale data is cached.
func Fetch[T any](ctx context.Context, c *Client, key Key, fetch func(context.Context) (T, error)) (T, error) {
	if !c.IsStale(key) {
		if v, ok := GetData[T](c, key); ok {
			logger.LogCache("Cache hit", key.String())
			return v, nil
		}
	}

	logger.LogCache("Cache miss", key.String())
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.SetData(key, v)

	c.mu.Lock()
	r := c.refresher
	c.mu.Unlock()
	if r != nil && PolicyFor(key).RefetchInterval > 0 {
		r.Watch(key, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
	}
	return v, nil
}

// Prefetch populates key without returning the data.
func Prefetch[T any](ctx context.Context, c *Client, key Key, fetch func(context.Context) (T, error)) error {
	_, err := Fetch(ctx, c, key, fetch)
	return err
}
