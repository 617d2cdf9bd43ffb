package game

import "slices"

const (
	DeckSize = 52
	SetCount = 8
)

// SetType splits a suit into its two scoring sets.
type SetType string

const (
	Lower SetType = "lower"
	Upper SetType = "upper"
)

var SetTypes = []SetType{Lower, Upper}

var (
	lowerRanks = []Rank{Two, Three, Four, Five, Six, Seven}
	upperRanks = []Rank{Eight, Nine, Ten, Jack, Queen, King, Ace}
)

var setPoints = map[SetType]int{
	Lower: 20,
	Upper: 30,
}

func (t SetType) Valid() bool {
	return t == Lower || t == Upper
}

// Ranks returns the canonical rank list of the set. The slice is a copy.
func (t SetType) Ranks() []Rank {
	switch t {
	case Lower:
		return slices.Clone(lowerRanks)
	case Upper:
		return slices.Clone(upperRanks)
	}
	return nil
}

func (t SetType) Points() int {
	return setPoints[t]
}

func (t SetType) Contains(r Rank) bool {
	return slices.Contains(t.Ranks(), r)
}

// Cards returns the canonical cards of the given suit's set.
func (t SetType) Cards(suit Suit) []Card {
	ranks := t.Ranks()
	cards := make([]Card, 0, len(ranks))
	for _, r := range ranks {
		cards = append(cards, Card{suit, r})
	}
	return cards
}

func SetTypeOf(r Rank) (SetType, bool) {
	if slices.Contains(lowerRanks, r) {
		return Lower, true
	}
	if slices.Contains(upperRanks, r) {
		return Upper, true
	}
	return "", false
}

func AllRanks() []Rank {
	return append(slices.Clone(lowerRanks), upperRanks...)
}
