package mock

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

var Now = time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)

var Cards = []models.Card{
	{
		ID:         "card-1",
		TemplateID: "tpl-001",
		Name:       "Meadow Sprite",
		Rarity:     models.RarityCommon,
		Finish:     models.FinishNormal,
		Value:      decimal.RequireFromString("0.25"),
		PackID:     "starter-pack",
		Status:     models.CardStatusOwned,
		ExpiresAt:  Now.Add(30 * 24 * time.Hour),
	},
	{
		ID:         "card-2",
		TemplateID: "tpl-012",
		Name:       "Ember Drake",
		Rarity:     models.RarityRare,
		Finish:     models.FinishFoil,
		Value:      decimal.RequireFromString("6.50"),
		PackID:     "collector-pack",
		Status:     models.CardStatusOwned,
		ExpiresAt:  Now.Add(48 * time.Hour),
	},
	{
		ID:         "card-3",
		TemplateID: "tpl-002",
		Name:       "Brook Otter",
		Rarity:     models.RarityCommon,
		Finish:     models.FinishNormal,
		Value:      decimal.RequireFromString("0.30"),
		PackID:     "starter-pack",
		Status:     models.CardStatusOwned,
		ExpiresAt:  Now.Add(-time.Hour),
	},
}

var MarketPrices = []models.MarketPrice{
	{TemplateID: "tpl-012", Name: "Ember Drake", Rarity: models.RarityRare, Price: decimal.RequireFromString("7.10")},
}
