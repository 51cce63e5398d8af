package game

import (
	"math/rand"

	pkgerr "paigow-service/pkg/errors"
)

// Deck is the persistent draw pile of a table. It is NOT reshuffled
// between rounds; the table reshuffles only when the pile cannot cover
// one cut card plus two cards per seated player. Deck is not
// goroutine-safe, the table runtime serializes access.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck returns a freshly shuffled 32-card deck using the given
// random source. Passing a fixed-seed source makes deals reproducible.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.Reshuffle()
	return d
}

// Reshuffle rebuilds the pile from the full catalogue and shuffles it.
func (d *Deck) Reshuffle() {
	d.cards = make([]Card, DeckSize)
	copy(d.cards, fullDeck)
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Len reports how many cards remain in the pile.
func (d *Deck) Len() int {
	return len(d.cards)
}

// NeedsReshuffle reports whether the pile is too short to start a
// round for playerCount seats: one cut card plus two cards each.
func (d *Deck) NeedsReshuffle(playerCount int) bool {
	return len(d.cards) < 1+2*playerCount
}

// Draw removes and returns the top n cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 || n > len(d.cards) {
		return nil, pkgerr.ErrDeckExhausted
	}
	out := make([]Card, n)
	copy(out, d.cards[:n])
	d.cards = d.cards[n:]
	return out, nil
}

// CutCard draws the top card, reveals it, and tucks it back into the
// pile at a uniformly random position other than the top, so the next
// draw never repeats the revealed card. Returns the card and its cut value.
func (d *Deck) CutCard() (Card, int, error) {
	if len(d.cards) < 2 {
		return Card{}, 0, pkgerr.ErrDeckExhausted
	}
	cut := d.cards[0]
	d.cards = d.cards[1:]

	// insert positions 1..len are all valid, position 0 is not
	pos := 1 + d.rng.Intn(len(d.cards))
	d.cards = append(d.cards, Card{})
	copy(d.cards[pos+1:], d.cards[pos:])
	d.cards[pos] = cut

	return cut, CutValue(cut), nil
}
