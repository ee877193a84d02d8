package models

import (
	"fmt"
	"strings"
)

// Rarity is ordered from common to mythic; the zero value is not a valid rarity.
type Rarity int

const (
	RarityCommon Rarity = iota + 1
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityMythic
)

var rarityNames = map[Rarity]string{
	RarityCommon:    "common",
	RarityUncommon:  "uncommon",
	RarityRare:      "rare",
	RarityEpic:      "epic",
	RarityLegendary: "legendary",
	RarityMythic:    "mythic",
}

// Rarities returns every rarity in ascending rank order.
func Rarities() []Rarity {
	return []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary, RarityMythic}
}

func (r Rarity) Rank() int {
	return int(r)
}

func (r Rarity) Valid() bool {
	_, ok := rarityNames[r]
	return ok
}

func (r Rarity) String() string {
	if name, ok := rarityNames[r]; ok {
		return name
	}
	return fmt.Sprintf("rarity(%d)", int(r))
}

func ParseRarity(s string) (Rarity, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for r, name := range rarityNames {
		if name == needle {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rarity %q", s)
}

func (r Rarity) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid rarity %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rarity) UnmarshalText(text []byte) error {
	parsed, err := ParseRarity(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type Finish string

const (
	FinishNormal      Finish = "normal"
	FinishFoil        Finish = "foil"
	FinishHolographic Finish = "holographic"
)
