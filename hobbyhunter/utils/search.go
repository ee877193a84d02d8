package utils

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

const (
	SortByValue  = "value"
	SortByName   = "name"
	SortByRarity = "rarity"
	SortByDate   = "date"
)

// SearchFilters is a parsed collection search query.
type SearchFilters struct {
	Query    string
	Name     string
	Rarities []models.Rarity
	Finish   models.Finish
	PackID   string
	SortBy   string
	SortDesc bool
}

// ParseSearchQuery splits a free-form query into a name part and filters.
// Rarity names and finishes are recognised as bare words, "pack:<id>" limits
// to one pack and "<" or ">" followed by a sort key picks the order.
func ParseSearchQuery(query string) SearchFilters {
	filters := SearchFilters{
		Query:    query,
		SortBy:   SortByRarity,
		SortDesc: true,
	}

	for _, term := range strings.Fields(strings.ToLower(query)) {
		if strings.HasPrefix(term, "<") || strings.HasPrefix(term, ">") {
			switch strings.TrimLeft(term, "<>") {
			case "value", "price":
				filters.SortBy = SortByValue
			case "name":
				filters.SortBy = SortByName
			case "rarity":
				filters.SortBy = SortByRarity
			case "date":
				filters.SortBy = SortByDate
			}
			filters.SortDesc = strings.HasPrefix(term, ">")
			continue
		}

		if r, err := models.ParseRarity(term); err == nil {
			filters.Rarities = append(filters.Rarities, r)
			continue
		}

		switch {
		case term == string(models.FinishFoil):
			filters.Finish = models.FinishFoil
		case term == string(models.FinishHolographic), term == "holo":
			filters.Finish = models.FinishHolographic
		case strings.HasPrefix(term, "pack:"):
			filters.PackID = strings.TrimPrefix(term, "pack:")
		default:
			if filters.Name == "" {
				filters.Name = term
			} else {
				filters.Name += " " + term
			}
		}
	}

	return filters
}

type cardSource []models.Card

func (s cardSource) Len() int {
	return len(s)
}

func (s cardSource) String(i int) string {
	return normalizeName(s[i].Name)
}

// SearchCards filters cards and ranks the survivors by fuzzy match against
// the name part of filters. Without a name the filter sort order applies.
func SearchCards(cards []models.Card, filters SearchFilters) []models.Card {
	filtered := applyFilters(cards, filters)
	if len(filtered) == 0 {
		return nil
	}

	if filters.Name == "" {
		SortCards(filtered, filters.SortBy, filters.SortDesc)
		return filtered
	}

	matches := fuzzy.FindFrom(normalizeName(filters.Name), cardSource(filtered))
	results := make([]models.Card, len(matches))
	for i, match := range matches {
		results[i] = filtered[match.Index]
	}
	return results
}

func applyFilters(cards []models.Card, filters SearchFilters) []models.Card {
	out := make([]models.Card, 0, len(cards))
	for _, card := range cards {
		if len(filters.Rarities) > 0 && !containsRarity(filters.Rarities, card.Rarity) {
			continue
		}
		if filters.Finish != "" && card.Finish != filters.Finish {
			continue
		}
		if filters.PackID != "" && card.PackID != filters.PackID {
			continue
		}
		out = append(out, card)
	}
	return out
}

func containsRarity(rarities []models.Rarity, r models.Rarity) bool {
	for _, candidate := range rarities {
		if candidate == r {
			return true
		}
	}
	return false
}

// SortCards orders cards in place. Ties fall back to name so output is stable.
func SortCards(cards []models.Card, sortBy string, desc bool) {
	less := func(a, b models.Card) bool {
		switch sortBy {
		case SortByValue:
			if !a.Value.Equal(b.Value) {
				return a.Value.LessThan(b.Value)
			}
		case SortByRarity:
			if a.Rarity != b.Rarity {
				return a.Rarity < b.Rarity
			}
		case SortByDate:
			if !a.ObtainedAt.Equal(b.ObtainedAt) {
				return a.ObtainedAt.Before(b.ObtainedAt)
			}
		}
		return a.Name < b.Name
	}

	sort.SliceStable(cards, func(i, j int) bool {
		if desc {
			return less(cards[j], cards[i])
		}
		return less(cards[i], cards[j])
	})
}

func normalizeName(name string) string {
	return strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(name))
}
