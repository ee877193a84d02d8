package flags

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hobbyhunter/storefront/hobbyhunter/localstore"
)

type Name string

const (
	UseRealUserAPI             Name = "use_real_user_api"
	UseRealCardAPI             Name = "use_real_card_api"
	UseRealPackAPI             Name = "use_real_pack_api"
	UseRealTransactionAPI      Name = "use_real_transaction_api"
	UseRealAuthAPI             Name = "use_real_auth_api"
	MockFallback               Name = "mock_fallback"
	OptimisticUpdates          Name = "optimistic_updates"
	BackgroundRefresh          Name = "background_refresh"
	DebugLogging               Name = "debug_logging"
	Analytics                  Name = "analytics"
	ExperimentalPackAnimations Name = "experimental_pack_animations"
	ExperimentalMarketplace    Name = "experimental_marketplace"
)

// EnvPrefix is prepended to the upper-cased flag name for environment lookups.
const EnvPrefix = "HH_FLAG_"

func (n Name) EnvKey() string {
	return EnvPrefix + strings.ToUpper(string(n))
}

func (n Name) Experimental() bool {
	return strings.HasPrefix(string(n), "experimental_")
}

// RealAPIFlags are the per-domain switches between the remote API and mock data.
var RealAPIFlags = []Name{
	UseRealUserAPI,
	UseRealCardAPI,
	UseRealPackAPI,
	UseRealTransactionAPI,
	UseRealAuthAPI,
}

// Defaults returns the compiled-in flag values.
func Defaults() map[Name]bool {
	return map[Name]bool{
		UseRealUserAPI:             false,
		UseRealCardAPI:             false,
		UseRealPackAPI:             false,
		UseRealTransactionAPI:      false,
		UseRealAuthAPI:             false,
		MockFallback:               true,
		OptimisticUpdates:          true,
		BackgroundRefresh:          true,
		DebugLogging:               false,
		Analytics:                  false,
		ExperimentalPackAnimations: false,
		ExperimentalMarketplace:    false,
	}
}

// Known reports whether n is one of the compiled flags.
func Known(n Name) bool {
	_, ok := Defaults()[n]
	return ok
}

// FromEnv reads HH_FLAG_* booleans through lookup. Unparseable values are
// ignored.
func FromEnv(lookup func(string) (string, bool)) map[Name]bool {
	out := make(map[Name]bool)
	for name := range Defaults() {
		raw, ok := lookup(name.EnvKey())
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			slog.Warn("Ignoring malformed feature flag",
				slog.String("type", "sys"),
				slog.String("flag", string(name)),
				slog.String("value", raw))
			continue
		}
		out[name] = v
	}
	return out
}

// Change describes one flag whose effective value moved.
type Change struct {
	Name     Name
	Previous bool
	Current  bool
}

type Listener func([]Change)

// Manager holds the merged flag state. The zero value is not usable; build
// one with New.
type Manager struct {
	mu        sync.RWMutex
	store     localstore.Store
	base      map[Name]bool
	overrides map[Name]bool
	user      map[Name]bool

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

type Option func(*Manager)

// WithEnv layers environment flags over the compiled defaults.
func WithEnv(env map[Name]bool) Option {
	return func(m *Manager) {
		for k, v := range env {
			m.base[k] = v
		}
	}
}

// WithUserFlags sets per-user flags, which take precedence over everything.
func WithUserFlags(user map[Name]bool) Option {
	return func(m *Manager) {
		for k, v := range user {
			m.user[k] = v
		}
	}
}

// New builds a manager from defaults, options and the overrides persisted in
// store. A nil store keeps overrides in memory only.
func New(ctx context.Context, store localstore.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:     store,
		base:      Defaults(),
		overrides: make(map[Name]bool),
		user:      make(map[Name]bool),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}

	if store != nil {
		var persisted map[Name]bool
		if _, err := localstore.GetJSON(ctx, store, localstore.FeatureFlagsKey, &persisted); err != nil {
			return nil, fmt.Errorf("failed to load feature flag overrides: %w", err)
		}
		for k, v := range persisted {
			if Known(k) {
				m.overrides[k] = v
			}
		}
	}

	return m, nil
}

func (m *Manager) IsEnabled(name Name) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.valueLocked(name)
}

func (m *Manager) valueLocked(name Name) bool {
	if v, ok := m.user[name]; ok {
		return v
	}
	if v, ok := m.overrides[name]; ok {
		return v
	}
	return m.base[name]
}

// All returns the effective value of every known flag.
func (m *Manager) All() map[Name]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Name]bool, len(m.base))
	for name := range m.base {
		out[name] = m.valueLocked(name)
	}
	return out
}

func (m *Manager) SetFlag(ctx context.Context, name Name, enabled bool) error {
	return m.SetFlags(ctx, map[Name]bool{name: enabled})
}

// SetFlags records local overrides, persists them and notifies listeners of
// every effective change.
func (m *Manager) SetFlags(ctx context.Context, values map[Name]bool) error {
	for name := range values {
		if !Known(name) {
			return fmt.Errorf("unknown feature flag %q", name)
		}
	}

	return m.mutate(ctx, func() {
		for name, v := range values {
			m.overrides[name] = v
		}
	})
}

// Reset drops every local override.
func (m *Manager) Reset(ctx context.Context) error {
	return m.mutate(ctx, func() {
		m.overrides = make(map[Name]bool)
	})
}

func (m *Manager) ResetFlag(ctx context.Context, name Name) error {
	return m.mutate(ctx, func() {
		delete(m.overrides, name)
	})
}

// mutate applies fn to the overrides and persists them. A failed write
// restores the previous overrides and notifies nobody.
func (m *Manager) mutate(ctx context.Context, fn func()) error {
	m.mu.Lock()
	before := m.snapshotLocked()
	prior := copyOverrides(m.overrides)
	fn()
	after := m.snapshotLocked()

	if m.store != nil {
		if err := localstore.SetJSON(ctx, m.store, localstore.FeatureFlagsKey, copyOverrides(m.overrides)); err != nil {
			m.overrides = prior
			m.mu.Unlock()
			return fmt.Errorf("failed to persist feature flags: %w", err)
		}
	}
	m.mu.Unlock()

	changes := diff(before, after)
	if len(changes) > 0 {
		m.notify(changes)
	}
	return nil
}

func copyOverrides(in map[Name]bool) map[Name]bool {
	out := make(map[Name]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *Manager) snapshotLocked() map[Name]bool {
	out := make(map[Name]bool, len(m.base))
	for name := range m.base {
		out[name] = m.valueLocked(name)
	}
	return out
}

func diff(before, after map[Name]bool) []Change {
	var changes []Change
	for name, v := range after {
		if before[name] != v {
			changes = append(changes, Change{Name: name, Previous: before[name], Current: v})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes
}

// Subscribe registers fn for change notifications and returns a function that
// removes it.
func (m *Manager) Subscribe(fn Listener) func() {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) notify(changes []Change) {
	m.listenersMu.Lock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, m.listeners[id])
	}
	m.listenersMu.Unlock()

	for _, l := range listeners {
		l(changes)
	}
}
