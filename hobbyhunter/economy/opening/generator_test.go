package opening

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

func templates(counts map[models.Rarity]int) []models.CardTemplate {
	var out []models.CardTemplate
	for _, r := range models.Rarities() {
		for i := 0; i < counts[r]; i++ {
			out = append(out, models.CardTemplate{
				ID:     fmt.Sprintf("%s-%d", r, i),
				Name:   fmt.Sprintf("%s card %d", r, i),
				Rarity: r,
				Value:  decimal.NewFromInt(int64(r.Rank())),
				Finish: models.FinishNormal,
			})
		}
	}
	return out
}

func countByRarity(cards []models.Card) map[models.Rarity]int {
	counts := make(map[models.Rarity]int)
	for _, c := range cards {
		counts[c.Rarity]++
	}
	return counts
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
}

func TestGenerator_CommonUncommonScenario(t *testing.T) {
	gen := NewGenerator(templates(map[models.Rarity]int{
		models.RarityCommon:   4,
		models.RarityUncommon: 3,
		models.RarityRare:     2,
	}), WithRand(rand.New(rand.NewSource(7))), WithClock(fixedClock))

	pack := models.Pack{
		ID:        "starter",
		CardCount: 5,
		Guarantees: []models.RarityGuarantee{
			{Rarity: models.RarityUncommon, Count: 2},
			{Rarity: models.RarityCommon, Count: 3},
		},
	}

	cards, err := gen.Generate(pack)
	require.NoError(t, err)
	require.Len(t, cards, 5)

	counts := countByRarity(cards)
	assert.Equal(t, 3, counts[models.RarityCommon])
	assert.Equal(t, 2, counts[models.RarityUncommon])

	// guaranteed cards come out grouped by ascending rarity
	for i := 0; i < 3; i++ {
		assert.Equal(t, models.RarityCommon, cards[i].Rarity)
	}
	for i := 3; i < 5; i++ {
		assert.Equal(t, models.RarityUncommon, cards[i].Rarity)
	}

	ids := make(map[string]bool)
	for _, c := range cards {
		assert.False(t, ids[c.ID], "duplicate id %s", c.ID)
		ids[c.ID] = true
		assert.Equal(t, fixedClock().Add(14*24*time.Hour), c.ExpiresAt)
		assert.Equal(t, "starter", c.PackID)
		assert.Equal(t, models.CardStatusOwned, c.Status)
	}
}

func TestGenerator_ExactCountAndUniqueIDs(t *testing.T) {
	pool := templates(map[models.Rarity]int{
		models.RarityCommon:    3,
		models.RarityUncommon:  2,
		models.RarityRare:      2,
		models.RarityEpic:      1,
		models.RarityLegendary: 1,
	})

	tests := []struct {
		name string
		pack models.Pack
	}{
		{"no guarantees", models.Pack{ID: "a", CardCount: 4}},
		{"larger than pool", models.Pack{ID: "b", CardCount: 25}},
		{"mixed guarantees", models.Pack{ID: "c", CardCount: 6, Guarantees: []models.RarityGuarantee{
			{Rarity: models.RarityRare, Count: 1},
			{Rarity: models.RarityEpic, Count: 1},
		}}},
		{"guarantee beyond pool", models.Pack{ID: "d", CardCount: 8, Guarantees: []models.RarityGuarantee{
			{Rarity: models.RarityLegendary, Count: 3},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := int64(0); seed < 20; seed++ {
				gen := NewGenerator(pool, WithRand(rand.New(rand.NewSource(seed))))
				cards, err := gen.Generate(tt.pack)
				require.NoError(t, err)
				require.Len(t, cards, tt.pack.CardCount)

				ids := make(map[string]struct{}, len(cards))
				for _, c := range cards {
					ids[c.ID] = struct{}{}
				}
				assert.Len(t, ids, len(cards))

				counts := countByRarity(cards)
				available := countByRarity(instantiateAll(pool))
				for _, g := range tt.pack.Guarantees {
					assert.GreaterOrEqual(t, counts[g.Rarity], min(g.Count, available[g.Rarity]))
				}
			}
		})
	}
}

func instantiateAll(pool []models.CardTemplate) []models.Card {
	cards := make([]models.Card, len(pool))
	for i, tmpl := range pool {
		cards[i] = tmpl.Instantiate(tmpl.ID, fixedClock(), time.Hour)
	}
	return cards
}

func TestGenerator_NoDuplicateTemplatesWithinGuarantee(t *testing.T) {
	gen := NewGenerator(templates(map[models.Rarity]int{models.RarityRare: 5}))
	cards, err := gen.Generate(models.Pack{ID: "r", CardCount: 5, Guarantees: []models.RarityGuarantee{
		{Rarity: models.RarityRare, Count: 5},
	}})
	require.NoError(t, err)

	templatesSeen := make(map[string]bool)
	for _, c := range cards {
		assert.False(t, templatesSeen[c.TemplateID], "template %s drawn twice", c.TemplateID)
		templatesSeen[c.TemplateID] = true
	}
}

func TestGenerator_StrictModeFailsOnExhaustedPool(t *testing.T) {
	gen := NewGenerator(templates(map[models.Rarity]int{
		models.RarityCommon: 5,
		models.RarityMythic: 1,
	}), WithMode(Strict))

	_, err := gen.Generate(models.Pack{ID: "m", CardCount: 3, Guarantees: []models.RarityGuarantee{
		{Rarity: models.RarityMythic, Count: 2},
	}})

	var exhausted *ErrPoolExhausted
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, models.RarityMythic, exhausted.Rarity)
	assert.Equal(t, 2, exhausted.Wanted)
	assert.Equal(t, 1, exhausted.Got)
}

func TestGenerator_LenientModeFillsShortfall(t *testing.T) {
	gen := NewGenerator(templates(map[models.Rarity]int{
		models.RarityCommon: 5,
		models.RarityMythic: 1,
	}))

	cards, err := gen.Generate(models.Pack{ID: "m", CardCount: 3, Guarantees: []models.RarityGuarantee{
		{Rarity: models.RarityMythic, Count: 2},
	}})
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, models.RarityMythic, cards[0].Rarity)
}

func TestGenerator_InvalidPack(t *testing.T) {
	gen := NewGenerator(templates(map[models.Rarity]int{models.RarityCommon: 5}))

	tests := []struct {
		name string
		pack models.Pack
	}{
		{"zero cards", models.Pack{ID: "z"}},
		{"guarantees exceed count", models.Pack{ID: "x", CardCount: 2, Guarantees: []models.RarityGuarantee{
			{Rarity: models.RarityCommon, Count: 3},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gen.Generate(tt.pack)
			assert.ErrorIs(t, err, models.ErrInvalidPack)
		})
	}
}

func TestGenerator_EmptyPool(t *testing.T) {
	_, err := NewGenerator(nil).Generate(models.Pack{ID: "e", CardCount: 1})
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestGenerator_WeightedFillPrefersCommon(t *testing.T) {
	pool := templates(map[models.Rarity]int{
		models.RarityCommon:    200,
		models.RarityLegendary: 200,
	})
	gen := NewGenerator(pool,
		WithFillMode(FillWeighted),
		WithRand(rand.New(rand.NewSource(42))))

	cards, err := gen.Generate(models.Pack{ID: "w", CardCount: 200})
	require.NoError(t, err)

	counts := countByRarity(cards)
	assert.Greater(t, counts[models.RarityCommon], counts[models.RarityLegendary])
}

func TestGenerator_IDCollisionsAreRedrawn(t *testing.T) {
	ids := []string{"dup", "dup", "one", "dup", "two"}
	next := 0
	gen := NewGenerator(templates(map[models.Rarity]int{models.RarityCommon: 3}),
		WithIDFunc(func() string {
			id := ids[next%len(ids)]
			next++
			return id
		}))

	cards, err := gen.Generate(models.Pack{ID: "c", CardCount: 3})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dup", "one", "two"}, []string{cards[0].ID, cards[1].ID, cards[2].ID})
}
