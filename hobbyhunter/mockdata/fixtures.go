package mockdata

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

// Anchor is the fixed point all fixture timestamps are derived from.
var Anchor = time.Date(2025, time.January, 6, 12, 0, 0, 0, time.UTC)

func tmpl(id, name string, rarity models.Rarity, value string, finish models.Finish) models.CardTemplate {
	return models.CardTemplate{
		ID:       id,
		Name:     name,
		Rarity:   rarity,
		Value:    decimal.RequireFromString(value),
		Finish:   finish,
		ImageKey: "cards/" + id + ".png",
	}
}

// Templates is the catalog every mock pack opening draws from.
func Templates() []models.CardTemplate {
	return []models.CardTemplate{
		tmpl("tpl-001", "Tide Caller", models.RarityCommon, "0.25", models.FinishNormal),
		tmpl("tpl-002", "Ember Whelp", models.RarityCommon, "0.30", models.FinishNormal),
		tmpl("tpl-003", "Moss Sprite", models.RarityCommon, "0.20", models.FinishNormal),
		tmpl("tpl-004", "Dune Runner", models.RarityCommon, "0.35", models.FinishNormal),
		tmpl("tpl-005", "Frost Hare", models.RarityCommon, "0.25", models.FinishNormal),
		tmpl("tpl-006", "Copper Golem", models.RarityCommon, "0.40", models.FinishNormal),
		tmpl("tpl-007", "Storm Herald", models.RarityUncommon, "1.10", models.FinishNormal),
		tmpl("tpl-008", "Gloom Stalker", models.RarityUncommon, "1.25", models.FinishNormal),
		tmpl("tpl-009", "Thorn Warden", models.RarityUncommon, "0.95", models.FinishNormal),
		tmpl("tpl-010", "Ash Mystic", models.RarityUncommon, "1.40", models.FinishFoil),
		tmpl("tpl-011", "Reef Guardian", models.RarityUncommon, "1.05", models.FinishNormal),
		tmpl("tpl-012", "Ember Drake", models.RarityRare, "6.50", models.FinishNormal),
		tmpl("tpl-013", "Crystal Oracle", models.RarityRare, "7.25", models.FinishFoil),
		tmpl("tpl-014", "Iron Colossus", models.RarityRare, "5.80", models.FinishNormal),
		tmpl("tpl-015", "Night Weaver", models.RarityRare, "8.10", models.FinishNormal),
		tmpl("tpl-016", "Sunforged Paladin", models.RarityEpic, "24.00", models.FinishFoil),
		tmpl("tpl-017", "Abyssal Kraken", models.RarityEpic, "27.50", models.FinishNormal),
		tmpl("tpl-018", "Celestial Stag", models.RarityEpic, "22.75", models.FinishHolographic),
		tmpl("tpl-019", "Phoenix Sovereign", models.RarityLegendary, "95.00", models.FinishHolographic),
		tmpl("tpl-020", "Titan of the Deep", models.RarityLegendary, "110.00", models.FinishFoil),
		tmpl("tpl-021", "Void Empress", models.RarityMythic, "420.00", models.FinishHolographic),
		tmpl("tpl-022", "Worldtree Eternal", models.RarityMythic, "385.00", models.FinishHolographic),
	}
}

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// Packs is the mock storefront catalog.
func Packs() []models.Pack {
	return []models.Pack{
		{
			ID:          "starter-pack",
			Name:        "Starter Pack",
			Description: "Five cards to begin a collection.",
			Price:       100,
			CardCount:   5,
			Guarantees: []models.RarityGuarantee{
				{Rarity: models.RarityCommon, Count: 3},
				{Rarity: models.RarityUncommon, Count: 2},
			},
			Available: true,
			ImageURL:  "packs/starter-pack.png",
		},
		{
			ID:          "collector-pack",
			Name:        "Collector Pack",
			Description: "Seven cards with a guaranteed rare.",
			Price:       250,
			CardCount:   7,
			Guarantees: []models.RarityGuarantee{
				{Rarity: models.RarityUncommon, Count: 2},
				{Rarity: models.RarityRare, Count: 1},
			},
			Available: true,
			ImageURL:  "packs/collector-pack.png",
		},
		{
			ID:          "elite-pack",
			Name:        "Elite Pack",
			Description: "Ten cards, two rares and an epic.",
			Price:       500,
			CardCount:   10,
			Guarantees: []models.RarityGuarantee{
				{Rarity: models.RarityRare, Count: 2},
				{Rarity: models.RarityEpic, Count: 1},
			},
			Available: true,
			ImageURL:  "packs/elite-pack.png",
		},
		{
			ID:          "legendary-vault",
			Name:        "Legendary Vault",
			Description: "Limited run. Every vault holds a legendary.",
			Price:       1500,
			CardCount:   5,
			Guarantees: []models.RarityGuarantee{
				{Rarity: models.RarityEpic, Count: 1},
				{Rarity: models.RarityLegendary, Count: 1},
			},
			Available:     true,
			Stock:         intPtr(25),
			FeaturedUntil: timePtr(Anchor.AddDate(2, 0, 0)),
			ImageURL:      "packs/legendary-vault.png",
		},
		{
			ID:          "mythic-chase",
			Name:        "Mythic Chase",
			Description: "Three cards. One of them is mythic.",
			Price:       5000,
			CardCount:   3,
			Guarantees: []models.RarityGuarantee{
				{Rarity: models.RarityLegendary, Count: 1},
				{Rarity: models.RarityMythic, Count: 1},
			},
			Available: true,
			Stock:     intPtr(5),
			ImageURL:  "packs/mythic-chase.png",
		},
		{
			ID:          "winter-2024",
			Name:        "Winter 2024",
			Description: "Seasonal pack, no longer sold.",
			Price:       200,
			CardCount:   6,
			Guarantees: []models.RarityGuarantee{
				{Rarity: models.RarityUncommon, Count: 3},
			},
			Available: false,
			Stock:     intPtr(0),
			ImageURL:  "packs/winter-2024.png",
		},
	}
}

// Users are the accounts that exist before any mock call creates another.
func Users() []models.User {
	return []models.User{
		{
			ID:       "user-demo",
			Email:    "demo@hobbyhunter.test",
			Username: "demo",
			Credits:  1000,
			Profile:  models.Profile{DisplayName: "Demo Hunter", Bio: "Just browsing."},
			Preferences: models.Preferences{
				EmailNotifications: true,
				Currency:           "USD",
			},
			Settings:  models.Settings{Theme: "dark", Language: "en"},
			CreatedAt: Anchor.AddDate(0, -6, 0),
			UpdatedAt: Anchor,
		},
		{
			ID:       "user-collector",
			Email:    "collector@hobbyhunter.test",
			Username: "collector",
			Credits:  12500,
			Profile:  models.Profile{DisplayName: "Vault Keeper", Bio: "Mythics or nothing."},
			Preferences: models.Preferences{
				EmailNotifications: true,
				PushNotifications:  true,
				Currency:           "USD",
			},
			Settings:  models.Settings{Theme: "light", Language: "en", Private: true},
			CreatedAt: Anchor.AddDate(-1, 0, 0),
			UpdatedAt: Anchor,
		},
	}
}
