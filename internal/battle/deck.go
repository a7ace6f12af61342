package battle

import (
	"math/rand/v2"
)

// FullDeckSize is the size of a synthetic deck: 13 ranks x 4 copies.
const FullDeckSize = 52

// Deck is an ordered sequence of cards. Draws consume from the front only.
type Deck struct {
	cards []Card
	drawn int
}

// NewDeck wraps cards in a deck without shuffling. The slice is copied.
func NewDeck(cards []Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// GenerateFullDeck builds the 52-card synthetic deck for a faction and shuffles it.
// The four copies of each rank carry the four councils.
func GenerateFullDeck(faction Faction, rng *rand.Rand) *Deck {
	cards := make([]Card, 0, FullDeckSize)
	for _, rank := range Ranks {
		for _, council := range Councils {
			cards = append(cards, NewCard(faction, rank, council, 0))
		}
	}
	d := &Deck{cards: cards}
	d.Shuffle(rng)
	return d
}

// Shuffle applies a uniform Fisher-Yates permutation to the undrawn cards.
func (d *Deck) Shuffle(rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns up to n cards from the front. It never fails;
// a short deck returns whatever remains.
func (d *Deck) Draw(n int) []Card {
	if n <= 0 || len(d.cards) == 0 {
		return nil
	}
	if n > len(d.cards) {
		n = len(d.cards)
	}
	out := make([]Card, n)
	copy(out, d.cards[:n])
	d.cards = d.cards[n:]
	d.drawn += n
	return out
}

// Len returns the number of undrawn cards.
func (d *Deck) Len() int {
	return len(d.cards)
}

// Drawn returns how many cards have left the deck.
func (d *Deck) Drawn() int {
	return d.drawn
}

// Peek returns a copy of the undrawn cards in draw order.
func (d *Deck) Peek() []Card {
	return append([]Card(nil), d.cards...)
}
