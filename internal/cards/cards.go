package cards

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
)

// ErrConfiguration is returned when the generator is asked for a card size
// the construction cannot honour.
var ErrConfiguration = errors.New("invalid card set configuration")

// DefaultSymbolsPerCard matches the classic 57 card game.
const DefaultSymbolsPerCard = 8

type Symbol int

type Card []Symbol

func (c Card) Contains(s Symbol) bool {
	return slices.Contains(c, s)
}

// Common returns the symbols both cards carry, in the order they appear on c.
func (c Card) Common(other Card) []Symbol {
	var shared []Symbol
	for _, s := range c {
		if other.Contains(s) {
			shared = append(shared, s)
		}
	}
	return shared
}

func (c Card) Clone() Card {
	return slices.Clone(c)
}

func (c Card) String() string {
	return fmt.Sprint([]Symbol(c))
}

type Deck struct {
	Cards          []Card `json:"cards"`
	SymbolsPerCard int    `json:"symbolsPerCard"`
}

func (d Deck) Count() int {
	return len(d.Cards)
}

// SymbolCount is the size of the symbol universe, n²+n+1.
func (d Deck) SymbolCount() int {
	n := d.SymbolsPerCard - 1
	return n*n + n + 1
}

// Shuffle permutes the symbols on every card and then the card order.
// Set membership is untouched.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for _, card := range d.Cards {
		rng.Shuffle(len(card), func(i, j int) {
			card[i], card[j] = card[j], card[i]
		})
	}
	rng.Shuffle(d.Count(), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

// Validate checks the deck against the game's contract: every card has
// SymbolsPerCard distinct symbols from 1..SymbolCount and any two cards
// share exactly one symbol.
func (d Deck) Validate() error {
	universe := d.SymbolCount()
	if d.Count() != universe {
		return fmt.Errorf("deck has %d cards, %d expected", d.Count(), universe)
	}

	for i, card := range d.Cards {
		if len(card) != d.SymbolsPerCard {
			return fmt.Errorf("card %d has %d symbols, %d expected", i, len(card), d.SymbolsPerCard)
		}
		seen := make(map[Symbol]bool, len(card))
		for _, s := range card {
			if s < 1 || int(s) > universe {
				return fmt.Errorf("card %d: symbol %d out of range 1..%d", i, s, universe)
			}
			if seen[s] {
				return fmt.Errorf("card %d: symbol %d repeated", i, s)
			}
			seen[s] = true
		}
	}

	for i := 0; i < d.Count(); i++ {
		for j := i + 1; j < d.Count(); j++ {
			if shared := len(d.Cards[i].Common(d.Cards[j])); shared != 1 {
				return fmt.Errorf("cards %d and %d share %d symbols", i, j, shared)
			}
		}
	}

	return nil
}
