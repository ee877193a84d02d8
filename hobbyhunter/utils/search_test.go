package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

func TestParseSearchQuery(t *testing.T) {
	tests := []struct {
		query string
		want  SearchFilters
	}{
		{
			query: "Ember Drake",
			want:  SearchFilters{Query: "Ember Drake", Name: "ember drake", SortBy: SortByRarity, SortDesc: true},
		},
		{
			query: "rare epic holo <value",
			want: SearchFilters{
				Query:    "rare epic holo <value",
				Rarities: []models.Rarity{models.RarityRare, models.RarityEpic},
				Finish:   models.FinishHolographic,
				SortBy:   SortByValue,
				SortDesc: false,
			},
		},
		{
			query: "pack:starter-pack foil >date",
			want: SearchFilters{
				Query:    "pack:starter-pack foil >date",
				Finish:   models.FinishFoil,
				PackID:   "starter-pack",
				SortBy:   SortByDate,
				SortDesc: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSearchQuery(tt.query))
		})
	}
}

func TestSearchCards(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cards := []models.Card{
		{ID: "1", Name: "Ember Drake", Rarity: models.RarityRare, Finish: models.FinishFoil, Value: decimal.NewFromInt(12), ObtainedAt: now},
		{ID: "2", Name: "Tide Caller", Rarity: models.RarityCommon, Finish: models.FinishNormal, Value: decimal.NewFromInt(1), ObtainedAt: now.Add(time.Hour)},
		{ID: "3", Name: "Ember Whelp", Rarity: models.RarityCommon, Finish: models.FinishNormal, Value: decimal.NewFromInt(2), ObtainedAt: now.Add(2 * time.Hour)},
		{ID: "4", Name: "Void Empress", Rarity: models.RarityMythic, Finish: models.FinishHolographic, Value: decimal.NewFromInt(400), ObtainedAt: now.Add(3 * time.Hour)},
	}

	ids := func(cs []models.Card) []string {
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.ID
		}
		return out
	}

	t.Run("fuzzy name", func(t *testing.T) {
		got := SearchCards(cards, ParseSearchQuery("ember"))
		assert.ElementsMatch(t, []string{"1", "3"}, ids(got))
	})

	t.Run("rarity filter with fuzzy name", func(t *testing.T) {
		got := SearchCards(cards, ParseSearchQuery("common ember"))
		assert.Equal(t, []string{"3"}, ids(got))
	})

	t.Run("no name sorts by value", func(t *testing.T) {
		got := SearchCards(cards, ParseSearchQuery(">value"))
		assert.Equal(t, []string{"4", "1", "3", "2"}, ids(got))
	})

	t.Run("default sort is rarity descending", func(t *testing.T) {
		got := SearchCards(cards, ParseSearchQuery(""))
		assert.Equal(t, []string{"4", "1", "2", "3"}, ids(got))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, SearchCards(cards, ParseSearchQuery("zzzz")))
	})
}
