package game

import (
	"fmt"
	"math/rand"
	"slices"
)

type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

func (s Suit) Valid() bool {
	return slices.Contains(Suits, s)
}

type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

func (r Rank) Valid() bool {
	_, ok := SetTypeOf(r)
	return ok
}

type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}

// SetType reports which of the suit's two sets the card belongs to.
func (c Card) SetType() SetType {
	t, _ := SetTypeOf(c.Rank)
	return t
}

// InSet reports whether the card is part of the given suit's set.
func (c Card) InSet(suit Suit, setType SetType) bool {
	return c.Suit == suit && c.SetType() == setType
}

type Deck struct {
	Cards []Card `json:"cards"`
}

// NewDeck returns the 52 cards in suit-major, rank-ascending order.
func NewDeck() *Deck {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for _, rank := range AllRanks() {
			deck = append(deck, Card{suit, rank})
		}
	}
	return &Deck{deck}
}

func (deck Deck) Count() int {
	return len(deck.Cards)
}

// Draw takes n cards off the top (the end of the slice).
func (deck *Deck) Draw(n int) (cards []Card) {
	for range n {
		if len(deck.Cards) == 0 {
			return
		}
		card := deck.Cards[len(deck.Cards)-1]
		cards = append(cards, card)
		deck.Cards = deck.Cards[:len(deck.Cards)-1]
	}
	return
}

// Shuffle permutes the deck uniformly. A nil rng uses the package source.
func (d *Deck) Shuffle(rng *rand.Rand) {
	swap := func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	}
	if rng == nil {
		rand.Shuffle(d.Count(), swap)
		return
	}
	rng.Shuffle(d.Count(), swap)
}
