package mockdata

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

var namespace = uuid.MustParse("6f1c4e8a-3b2d-4c5e-9a7f-0d1e2f3a4b5c")

// Seed hashes parts into a stable random seed.
func Seed(parts ...string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(parts, "\x00")))
	return int64(h.Sum64())
}

func seeded(parts ...string) *rand.Rand {
	return rand.New(rand.NewSource(Seed(parts...)))
}

// StableID derives a uuid that is the same for the same parts on every run.
func StableID(parts ...string) string {
	return uuid.NewSHA1(namespace, []byte(strings.Join(parts, "/"))).String()
}

var (
	firstNames = []string{"Ari", "Blake", "Casey", "Devon", "Emery", "Finley", "Harper", "Jules", "Kai", "Rowan"}
	themes     = []string{"dark", "light", "system"}
)

// GenerateUser builds the user that id resolves to when no fixture exists.
func GenerateUser(id string) models.User {
	rng := seeded("user", id)
	name := firstNames[rng.Intn(len(firstNames))]
	handle := fmt.Sprintf("%s%03d", strings.ToLower(name), rng.Intn(1000))

	return models.User{
		ID:       id,
		Email:    handle + "@hobbyhunter.test",
		Username: handle,
		Credits:  int64(200 + rng.Intn(19)*100),
		Profile: models.Profile{
			DisplayName: name + " the Hunter",
			AvatarURL:   "avatars/" + handle + ".png",
		},
		Preferences: models.Preferences{
			EmailNotifications: rng.Intn(2) == 0,
			Currency:           "USD",
		},
		Settings: models.Settings{
			Theme:    themes[rng.Intn(len(themes))],
			Language: "en",
		},
		CreatedAt: Anchor.AddDate(0, 0, -rng.Intn(365)),
		UpdatedAt: Anchor,
	}
}

// GenerateCards builds the starting collection of userID. Expiry is measured
// from now so a fresh session always sees a mix of live and expiring cards.
func GenerateCards(userID string, templates []models.CardTemplate, now time.Time) []models.Card {
	if len(templates) == 0 {
		return nil
	}

	rng := seeded("cards", userID)
	count := 6 + rng.Intn(7)
	cards := make([]models.Card, 0, count)
	for i := 0; i < count; i++ {
		t := templates[rng.Intn(len(templates))]
		obtained := now.Add(-time.Duration(rng.Intn(13*24)) * time.Hour)
		card := t.Instantiate(StableID("card", userID, fmt.Sprint(i)), obtained, models.CardExpiry)
		card.OwnerID = userID
		cards = append(cards, card)
	}
	return cards
}

// GenerateTransactions builds the transaction history of userID.
func GenerateTransactions(userID string) []models.Transaction {
	rng := seeded("transactions", userID)
	count := 3 + rng.Intn(4)
	out := make([]models.Transaction, 0, count)
	for i := 0; i < count; i++ {
		created := Anchor.Add(-time.Duration(count-i) * 36 * time.Hour)
		tx := models.Transaction{
			ID:        StableID("tx", userID, fmt.Sprint(i)),
			UserID:    userID,
			Currency:  "USD",
			Status:    models.StatusCompleted,
			CreatedAt: created,
			UpdatedAt: created,
		}
		switch rng.Intn(3) {
		case 0:
			credits := int64(500 * (1 + rng.Intn(4)))
			tx.Type = models.TransactionCreditPurchase
			tx.Amount = decimal.NewFromInt(credits)
			tx.Description = fmt.Sprintf("Purchased %d credits", credits)
			tx.PaymentReference = "pay_" + StableID("pay", tx.ID)[:8]
		case 1:
			pack := Packs()[rng.Intn(3)]
			tx.Type = models.TransactionPackPurchase
			tx.Amount = decimal.NewFromInt(-pack.Price)
			tx.Description = "Purchased " + pack.Name
		default:
			tx.Type = models.TransactionBonusCredit
			tx.Amount = decimal.NewFromInt(50)
			tx.Description = "Daily login bonus"
		}
		out = append(out, tx)
	}
	return out
}

// MarketPrices quotes every template. Prices move with the day of now and
// are stable within a day.
func MarketPrices(templates []models.CardTemplate, now time.Time) []models.MarketPrice {
	day := now.UTC().Format("2006-01-02")
	out := make([]models.MarketPrice, 0, len(templates))
	for _, t := range templates {
		rng := seeded("market", t.ID, day)
		factor := decimal.NewFromFloat(0.8 + rng.Float64()*0.5)
		change := decimal.NewFromFloat(rng.Float64()*20 - 10).Round(2)
		out = append(out, models.MarketPrice{
			TemplateID: t.ID,
			Name:       t.Name,
			Rarity:     t.Rarity,
			Price:      t.Value.Mul(factor).Round(2),
			Change24h:  change,
			UpdatedAt:  now.UTC().Truncate(time.Hour),
		})
	}
	return out
}

var historyEvents = []string{"listed", "price_check", "traded", "graded"}

// CardHistory returns the provenance of one card instance.
func CardHistory(card models.Card) []models.CardHistoryEntry {
	rng := seeded("history", card.ID)
	entries := []models.CardHistoryEntry{{
		CardID:    card.ID,
		Event:     "pulled",
		Price:     card.Value,
		Timestamp: card.ObtainedAt,
	}}
	for i := 0; i < rng.Intn(4); i++ {
		factor := decimal.NewFromFloat(0.9 + rng.Float64()*0.3)
		entries = append(entries, models.CardHistoryEntry{
			CardID:    card.ID,
			Event:     historyEvents[rng.Intn(len(historyEvents))],
			Price:     card.Value.Mul(factor).Round(2),
			Timestamp: card.ObtainedAt.Add(time.Duration(i+1) * 6 * time.Hour),
		})
	}
	return entries
}

// BaseStatistics is the opening history a pack has before this session.
func BaseStatistics(pack models.Pack, templates []models.CardTemplate) models.PackStatistics {
	rng := seeded("stats", pack.ID)
	opened := int64(100 + rng.Intn(900))

	stats := models.PackStatistics{
		PackID:       pack.ID,
		TimesOpened:  opened,
		RarityCounts: make(map[models.Rarity]int64),
		AverageValue: decimal.Zero,
	}

	total := opened * int64(pack.CardCount)
	guaranteed := int64(0)
	for _, g := range pack.Guarantees {
		n := opened * int64(g.Count)
		stats.RarityCounts[g.Rarity] += n
		guaranteed += n
	}
	stats.RarityCounts[models.RarityCommon] += total - guaranteed

	byRarity := make(map[models.Rarity][]models.CardTemplate)
	for _, t := range templates {
		byRarity[t.Rarity] = append(byRarity[t.Rarity], t)
	}

	sum := decimal.Zero
	bestValue := decimal.Zero
	for rarity, n := range stats.RarityCounts {
		pool := byRarity[rarity]
		if len(pool) == 0 {
			continue
		}
		poolTotal := decimal.Zero
		for _, t := range pool {
			poolTotal = poolTotal.Add(t.Value)
			if n > 0 && (t.Rarity > stats.BestPullRarity ||
				(t.Rarity == stats.BestPullRarity && t.Value.GreaterThan(bestValue))) {
				stats.BestPullName = t.Name
				stats.BestPullRarity = t.Rarity
				bestValue = t.Value
			}
		}
		mean := poolTotal.Div(decimal.NewFromInt(int64(len(pool))))
		sum = sum.Add(mean.Mul(decimal.NewFromInt(n)))
	}
	if total > 0 {
		stats.AverageValue = sum.Div(decimal.NewFromInt(total)).Round(2)
	}
	return stats
}
