package opening

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

var ErrEmptyPool = errors.New("card pool is empty")

// ErrPoolExhausted is returned in strict mode when a rarity pool runs out
// before its guarantee is met.
type ErrPoolExhausted struct {
	Rarity models.Rarity
	Wanted int
	Got    int
}

func (e *ErrPoolExhausted) Error() string {
	return fmt.Sprintf("rarity pool %s exhausted: wanted %d, drew %d", e.Rarity, e.Wanted, e.Got)
}

type Mode int

const (
	// Lenient under-fills an exhausted guarantee and hands the shortfall to filler slots.
	Lenient Mode = iota
	Strict
)

type FillMode int

const (
	FillUniform FillMode = iota
	FillWeighted
)

// DefaultWeights are the claim weights per rarity used by FillWeighted.
var DefaultWeights = map[models.Rarity]int{
	models.RarityCommon:    50,
	models.RarityUncommon:  25,
	models.RarityRare:      15,
	models.RarityEpic:      7,
	models.RarityLegendary: 3,
	models.RarityMythic:    1,
}

type Generator struct {
	mu        sync.Mutex
	templates []models.CardTemplate
	mode      Mode
	fill      FillMode
	weights   map[models.Rarity]int
	ttl       time.Duration
	rng       *rand.Rand
	now       func() time.Time
	newID     func() string
}

type Option func(*Generator)

func WithMode(mode Mode) Option {
	return func(g *Generator) { g.mode = mode }
}

func WithFillMode(fill FillMode) Option {
	return func(g *Generator) { g.fill = fill }
}

func WithWeights(weights map[models.Rarity]int) Option {
	return func(g *Generator) { g.weights = weights }
}

func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithIDFunc(newID func() string) Option {
	return func(g *Generator) { g.newID = newID }
}

func WithExpiry(ttl time.Duration) Option {
	return func(g *Generator) { g.ttl = ttl }
}

func NewGenerator(templates []models.CardTemplate, opts ...Option) *Generator {
	g := &Generator{
		templates: append([]models.CardTemplate(nil), templates...),
		mode:      Lenient,
		fill:      FillUniform,
		weights:   DefaultWeights,
		ttl:       models.CardExpiry,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Templates returns a copy of the catalog the generator draws from.
func (g *Generator) Templates() []models.CardTemplate {
	return append([]models.CardTemplate(nil), g.templates...)
}

// Generate draws exactly pack.CardCount cards: guaranteed rarities first in
// ascending rank, then filler cards from the remaining pool.
func (g *Generator) Generate(pack models.Pack) ([]models.Card, error) {
	if err := pack.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	pool := newPool(g.templates)
	if pool.empty() {
		return nil, ErrEmptyPool
	}

	now := g.now()
	cards := make([]models.Card, 0, pack.CardCount)
	seen := make(map[string]struct{}, pack.CardCount)

	guarantees := append([]models.RarityGuarantee(nil), pack.Guarantees...)
	sort.SliceStable(guarantees, func(i, j int) bool {
		return guarantees[i].Rarity.Rank() < guarantees[j].Rarity.Rank()
	})

	for _, guarantee := range guarantees {
		drawn := 0
		for drawn < guarantee.Count {
			tmpl, ok := pool.takeRarity(guarantee.Rarity, g.rng)
			if !ok {
				break
			}
			cards = append(cards, g.instantiate(tmpl, pack.ID, now, seen))
			drawn++
		}

		if drawn < guarantee.Count {
			if g.mode == Strict {
				return nil, &ErrPoolExhausted{Rarity: guarantee.Rarity, Wanted: guarantee.Count, Got: drawn}
			}
			slog.Warn("Guarantee under-filled",
				slog.String("type", "sys"),
				slog.String("pack_id", pack.ID),
				slog.String("rarity", guarantee.Rarity.String()),
				slog.Int("wanted", guarantee.Count),
				slog.Int("drawn", drawn))
		}
	}

	for len(cards) < pack.CardCount {
		if pool.empty() {
			pool = newPool(g.templates)
		}

		var tmpl models.CardTemplate
		if g.fill == FillWeighted {
			tmpl = pool.takeWeighted(g.weights, g.rng)
		} else {
			tmpl = pool.takeAny(g.rng)
		}
		cards = append(cards, g.instantiate(tmpl, pack.ID, now, seen))
	}

	return cards, nil
}

func (g *Generator) instantiate(tmpl models.CardTemplate, packID string, now time.Time, seen map[string]struct{}) models.Card {
	id := g.newID()
	for {
		if _, dup := seen[id]; !dup {
			break
		}
		id = g.newID()
	}
	seen[id] = struct{}{}

	card := tmpl.Instantiate(id, now, g.ttl)
	card.PackID = packID
	return card
}
