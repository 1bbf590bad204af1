package blackjack

import (
	"fmt"
	"math/rand/v2"
)

// Suit is one of the four French suits. It is sent on the wire as its
// symbol, e.g. "♠".
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var suitString = map[Suit]string{
	Spades:   "♠",
	Hearts:   "♥",
	Diamonds: "♦",
	Clubs:    "♣",
}

var suits = []Suit{Spades, Hearts, Diamonds, Clubs}

func (s Suit) String() string {
	return suitString[s]
}

// MarshalText rejects values outside the four suits.
func (s Suit) MarshalText() ([]byte, error) {
	str, ok := suitString[s]
	if !ok {
		return nil, fmt.Errorf("invalid suit %d", int(s))
	}
	return []byte(str), nil
}

func (s *Suit) UnmarshalText(text []byte) error {
	for suit, str := range suitString {
		if str == string(text) {
			*s = suit
			return nil
		}
	}
	return fmt.Errorf("invalid suit %q", text)
}

// Rank runs from Ace (1) to King (13). It is sent on the wire as "A", "2"
// ... "10", "J", "Q", "K".
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var rankString = map[Rank]string{
	Ace:   "A",
	Two:   "2",
	Three: "3",
	Four:  "4",
	Five:  "5",
	Six:   "6",
	Seven: "7",
	Eight: "8",
	Nine:  "9",
	Ten:   "10",
	Jack:  "J",
	Queen: "Q",
	King:  "K",
}

var ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

func (r Rank) String() string {
	return rankString[r]
}

// MarshalText rejects values outside Ace..King.
func (r Rank) MarshalText() ([]byte, error) {
	str, ok := rankString[r]
	if !ok {
		return nil, fmt.Errorf("invalid rank %d", int(r))
	}
	return []byte(str), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	for rank, str := range rankString {
		if str == string(text) {
			*r = rank
			return nil
		}
	}
	return fmt.Errorf("invalid rank %q", text)
}

// Card carries no value field; Value derives it from the rank.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// Value is the provisional blackjack value of a card. Aces count 11 here;
// HandValue demotes them.
func (c Card) Value() int {
	switch {
	case c.Rank == Ace:
		return 11
	case c.Rank >= Ten:
		return 10
	default:
		return int(c.Rank)
	}
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// DeckSize is the number of cards in a single standard deck.
const DeckSize = 52

// Deck is a draw pile. The top of the pile is the end of Cards.
type Deck struct {
	Cards []Card `json:"cards"`
	// Swapped in by tests for a deterministic shuffle.
	rng *rand.Rand
}

// NewDeck returns the 52 cards in suit-major order, unshuffled.
func NewDeck() *Deck {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range suits {
		for _, rank := range ranks {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	return &Deck{Cards: cards}
}

// NewShuffledDeck returns a fresh, independently shuffled 52-card deck.
func NewShuffledDeck() *Deck {
	deck := NewDeck()
	deck.Shuffle()
	return deck
}

// Count is the number of cards left to draw.
func (d *Deck) Count() int {
	return len(d.Cards)
}

// Shuffle is a Fisher-Yates shuffle in place.
func (d *Deck) Shuffle() {
	swap := func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	}
	if d.rng != nil {
		d.rng.Shuffle(d.Count(), swap)
		return
	}
	rand.Shuffle(d.Count(), swap)
}

// Draw removes and returns the last card. An exhausted deck is replaced
// wholesale by a fresh shuffled deck first; cards already in play are not
// tracked against the new deck.
func (d *Deck) Draw() Card {
	if len(d.Cards) == 0 {
		d.Cards = NewDeck().Cards
		d.Shuffle()
	}
	card := d.Cards[len(d.Cards)-1]
	d.Cards = d.Cards[:len(d.Cards)-1]
	return card
}
