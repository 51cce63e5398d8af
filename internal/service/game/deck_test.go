package game_test

import (
	"errors"
	"math/rand"
	"testing"

	"paigow-service/internal/service/game"
	appErr "paigow-service/pkg/errors"
)

func TestNewDeckIntegrity(t *testing.T) {
	d := game.NewDeck(rand.New(rand.NewSource(1)))
	if d.Len() != game.DeckSize {
		t.Fatalf("expected %d cards, got %d", game.DeckSize, d.Len())
	}

	cards, err := d.Draw(game.DeckSize)
	if err != nil {
		t.Fatalf("draw full deck failed: %v", err)
	}
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		if seen[c.ID] {
			t.Fatalf("duplicate card %s", c.ID)
		}
		seen[c.ID] = true
	}
	if len(seen) != game.DeckSize {
		t.Fatalf("expected %d distinct cards, got %d", game.DeckSize, len(seen))
	}
}

func TestDeckDeterministicWithSeed(t *testing.T) {
	d1 := game.NewDeck(rand.New(rand.NewSource(42)))
	d2 := game.NewDeck(rand.New(rand.NewSource(42)))

	c1, _ := d1.Draw(10)
	c2, _ := d2.Draw(10)
	for i := range c1 {
		if c1[i].ID != c2[i].ID {
			t.Fatalf("same seed diverged at %d: %s vs %s", i, c1[i].ID, c2[i].ID)
		}
	}
}

func TestDrawExhausted(t *testing.T) {
	d := game.NewDeck(rand.New(rand.NewSource(1)))
	if _, err := d.Draw(game.DeckSize + 1); !errors.Is(err, appErr.ErrDeckExhausted) {
		t.Fatalf("expected ErrDeckExhausted, got %v", err)
	}
	if d.Len() != game.DeckSize {
		t.Fatalf("failed draw must not consume cards, got len %d", d.Len())
	}
}

func TestNeedsReshuffle(t *testing.T) {
	d := game.NewDeck(rand.New(rand.NewSource(1)))
	// 4 players need 1 cut + 8 hand cards
	if d.NeedsReshuffle(4) {
		t.Fatal("fresh deck should cover 4 players")
	}
	if _, err := d.Draw(24); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	// 8 left: covers 3 players (7 cards) but not 4 (9 cards)
	if d.NeedsReshuffle(3) {
		t.Fatal("8 cards should cover 3 players")
	}
	if !d.NeedsReshuffle(4) {
		t.Fatal("8 cards should not cover 4 players")
	}

	d.Reshuffle()
	if d.Len() != game.DeckSize {
		t.Fatalf("reshuffle should restore full pile, got %d", d.Len())
	}
}

func TestCutCardReinserted(t *testing.T) {
	d := game.NewDeck(rand.New(rand.NewSource(7)))

	cut, val, err := d.CutCard()
	if err != nil {
		t.Fatalf("cut failed: %v", err)
	}
	if val != game.CutValue(cut) || val < 1 {
		t.Fatalf("bad cut value %d for %s", val, cut.ID)
	}
	if d.Len() != game.DeckSize {
		t.Fatalf("cut must preserve pile size, got %d", d.Len())
	}

	// the revealed card goes back below the top, never dealt next
	top, err := d.Draw(1)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if top[0].ID == cut.ID {
		t.Fatalf("cut card %s came back on top", cut.ID)
	}

	// and it is still somewhere in the pile, exactly once
	rest, err := d.Draw(d.Len())
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	count := 0
	for _, c := range rest {
		if c.ID == cut.ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("cut card present %d times, expected 1", count)
	}
}

func TestCutValues(t *testing.T) {
	cases := map[string]int{
		"joker_big":   6,
		"joker_small": 3,
		"j_spade":     11,
		"q_heart":     12,
		"10_club":     10,
		"2_diamond":   2,
	}
	for id, want := range cases {
		c, ok := game.CardByID(id)
		if !ok {
			t.Fatalf("unknown card %s", id)
		}
		if got := game.CutValue(c); got != want {
			t.Fatalf("%s: expected cut value %d, got %d", id, want, got)
		}
	}
}
