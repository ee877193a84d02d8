package opening

import (
	"math/rand"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

// pool is the mutable set of templates still drawable within one opening.
type pool struct {
	byRarity map[models.Rarity][]models.CardTemplate
	size     int
}

func newPool(templates []models.CardTemplate) *pool {
	p := &pool{byRarity: make(map[models.Rarity][]models.CardTemplate)}
	for _, t := range templates {
		if !t.Rarity.Valid() {
			continue
		}
		p.byRarity[t.Rarity] = append(p.byRarity[t.Rarity], t)
		p.size++
	}
	return p
}

func (p *pool) empty() bool {
	return p.size == 0
}

func (p *pool) takeRarity(r models.Rarity, rng *rand.Rand) (models.CardTemplate, bool) {
	bucket := p.byRarity[r]
	if len(bucket) == 0 {
		return models.CardTemplate{}, false
	}
	return p.removeAt(r, rng.Intn(len(bucket))), true
}

// takeAny draws uniformly over every remaining template regardless of rarity.
func (p *pool) takeAny(rng *rand.Rand) models.CardTemplate {
	n := rng.Intn(p.size)
	for _, r := range models.Rarities() {
		bucket := p.byRarity[r]
		if n < len(bucket) {
			return p.removeAt(r, n)
		}
		n -= len(bucket)
	}
	// unreachable while size matches the buckets
	panic("opening: pool size out of sync")
}

// takeWeighted picks a rarity by weight among rarities still present, then a
// template of that rarity uniformly.
func (p *pool) takeWeighted(weights map[models.Rarity]int, rng *rand.Rand) models.CardTemplate {
	total := 0
	for _, r := range models.Rarities() {
		if len(p.byRarity[r]) > 0 {
			total += weights[r]
		}
	}
	if total <= 0 {
		return p.takeAny(rng)
	}

	roll := rng.Intn(total)
	current := 0
	for _, r := range models.Rarities() {
		if len(p.byRarity[r]) == 0 {
			continue
		}
		current += weights[r]
		if roll < current {
			tmpl, _ := p.takeRarity(r, rng)
			return tmpl
		}
	}
	return p.takeAny(rng)
}

func (p *pool) removeAt(r models.Rarity, i int) models.CardTemplate {
	bucket := p.byRarity[r]
	tmpl := bucket[i]
	bucket[i] = bucket[len(bucket)-1]
	p.byRarity[r] = bucket[:len(bucket)-1]
	p.size--
	return tmpl
}
