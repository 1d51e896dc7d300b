package cards

import (
	"fmt"
	"math/rand"
)

type options struct {
	rng *rand.Rand
}

type Option func(*options)

// WithShuffle randomises symbol order on each card and the card order.
func WithShuffle(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// ValidateSymbolsPerCard reports whether k symbols per card can be built.
// The construction uses plain arithmetic modulo n = k-1, which only yields
// the one-common-symbol property when n is prime.
func ValidateSymbolsPerCard(k int) error {
	n := k - 1
	if !isPrime(n) {
		return fmt.Errorf("%w: %d symbols per card needs %d to be prime", ErrConfiguration, k, n)
	}
	return nil
}

// Generate builds the full card universe for k symbols per card: n²+n+1
// cards over n²+n+1 symbols, n = k-1.
func Generate(k int, opts ...Option) (Deck, error) {
	if err := ValidateSymbolsPerCard(k); err != nil {
		return Deck{}, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	n := k - 1
	cards := make([]Card, 0, n*n+n+1)

	// n+1 cards through symbol 1
	for i := 0; i <= n; i++ {
		card := make(Card, 0, k)
		card = append(card, 1)
		for j := 0; j < n; j++ {
			card = append(card, Symbol((j+1)+i*n+1))
		}
		cards = append(cards, card)
	}

	// n groups of n cards, group i through symbol i+2
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			card := make(Card, 0, k)
			card = append(card, Symbol(i+2))
			for t := 0; t < n; t++ {
				card = append(card, Symbol(n+1+n*t+(i*t+j)%n+1))
			}
			cards = append(cards, card)
		}
	}

	deck := Deck{Cards: cards, SymbolsPerCard: k}
	if o.rng != nil {
		deck.Shuffle(o.rng)
	}
	return deck, nil
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}
