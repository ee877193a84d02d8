package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const (
	refreshTimeout     = 30 * time.Second
	refreshConcurrency = 4
)

type watched struct {
	key      Key
	interval time.Duration
	fetch    func(context.Context) (any, error)
}

// Refresher refetches volatile keys on their policy interval. Keys sharing an
// interval are refreshed by one cron job, in parallel.
type Refresher struct {
	client  *Client
	cron    *cron.Cron
	enabled func() bool

	mu      sync.Mutex
	watched map[string]watched
	jobs    map[time.Duration]cron.EntryID
}

type RefresherOption func(*Refresher)

// WithEnabled gates every scheduled run on fn, typically the
// background_refresh flag.
func WithEnabled(fn func() bool) RefresherOption {
	return func(r *Refresher) {
		r.enabled = fn
	}
}

func NewRefresher(client *Client, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		client:  client,
		cron:    cron.New(),
		enabled: func() bool { return true },
		watched: make(map[string]watched),
		jobs:    make(map[time.Duration]cron.EntryID),
	}
	for _, opt := range opts {
		opt(r)
	}
	client.UseRefresher(r)
	return r
}

func (r *Refresher) Start() {
	r.cron.Start()
	logger.LogSystem("Background refresh started")
}

// Stop halts scheduling and waits for running refreshes.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	logger.LogSystem("Background refresh stopped")
}

// Watch registers key for background refetch at its policy interval. Keys
// without a refetch interval are ignored.
func (r *Refresher) Watch(key Key, fetch func(context.Context) (any, error)) {
	interval := PolicyFor(key).RefetchInterval
	if interval <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.watched[key.String()] = watched{key: key, interval: interval, fetch: fetch}
	if _, ok := r.jobs[interval]; ok {
		return
	}
	id, err := r.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if !r.enabled() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := r.refresh(ctx, interval); err != nil {
			logger.LogError("Background refresh failed", err, slog.Duration("interval", interval))
		}
	})
	if err != nil {
		logger.LogError("Failed to schedule background refresh", err, slog.String("key", key.String()))
		return
	}
	r.jobs[interval] = id
}

// Unwatch stops refetching key.
func (r *Refresher) Unwatch(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watched, key.String())
}

// Watched lists the keys currently refreshed in the background.
func (r *Refresher) Watched() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]Key, 0, len(r.watched))
	for _, w := range r.watched {
		keys = append(keys, w.key)
	}
	return keys
}

// RefreshAll refetches every watched key now.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	return r.refresh(ctx, 0)
}

// refresh refetches the watched keys with the given interval, or all of them
// when interval is zero. Keys evicted from the cache are unwatched instead.
func (r *Refresher) refresh(ctx context.Context, interval time.Duration) error {
	r.mu.Lock()
	batch := make([]watched, 0, len(r.watched))
	for name, w := range r.watched {
		if interval != 0 && w.interval != interval {
			continue
		}
		if _, ok := r.client.Get(w.key); !ok {
			delete(r.watched, name)
			continue
		}
		batch = append(batch, w)
	}
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, w := range batch {
		g.Go(func() error {
			data, err := w.fetch(ctx)
			if err != nil {
				return fmt.Errorf("refresh %s: %w", w.key, err)
			}
			r.client.SetData(w.key, data)
			return nil
		})
	}
	return g.Wait()
}
