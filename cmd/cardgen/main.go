// Command cardgen prints a Dobble deck, one card per line.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"dobble-client/internal/cards"
)

func main() {
	k := flag.Int("k", cards.DefaultSymbolsPerCard, "symbols per card (k-1 must be prime)")
	shuffle := flag.Bool("shuffle", false, "shuffle symbols on each card and the card order")
	seed := flag.Int64("seed", 0, "shuffle seed (0 picks one from the clock)")
	flag.Parse()

	var opts []cards.Option
	if *shuffle {
		if *seed == 0 {
			*seed = time.Now().UnixNano()
		}
		opts = append(opts, cards.WithShuffle(rand.New(rand.NewSource(*seed))))
	}

	deck, err := cards.Generate(*k, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cardgen:", err)
		os.Exit(2)
	}
	if err := deck.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "cardgen: generated deck is invalid:", err)
		os.Exit(1)
	}

	for _, card := range deck.Cards {
		fmt.Println(format(card))
	}
}

// format renders a card as "{a, b, ...}," with symbols counted from zero.
func format(card cards.Card) string {
	parts := make([]string, len(card))
	for i, s := range card {
		parts[i] = fmt.Sprint(int(s) - 1)
	}
	return "{" + strings.Join(parts, ", ") + "},"
}
