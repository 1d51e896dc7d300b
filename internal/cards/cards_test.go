package cards_test

import (
	"dobble-client/internal/cards"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ClassicDeck(t *testing.T) {
	deck, err := cards.Generate(8)
	require.NoError(t, err)

	assert.Equal(t, 57, deck.Count())
	assert.Equal(t, 57, deck.SymbolCount())

	for i, card := range deck.Cards {
		assert.Len(t, card, 8, "card %d", i)
		seen := map[cards.Symbol]bool{}
		for _, s := range card {
			assert.GreaterOrEqual(t, int(s), 1)
			assert.LessOrEqual(t, int(s), 57)
			assert.False(t, seen[s], "card %d repeats symbol %d", i, s)
			seen[s] = true
		}
	}

	for i := 0; i < deck.Count(); i++ {
		for j := i + 1; j < deck.Count(); j++ {
			shared := deck.Cards[i].Common(deck.Cards[j])
			if len(shared) != 1 {
				t.Fatalf("cards %d and %d share %v", i, j, shared)
			}
		}
	}
}

func TestGenerate_PrimeSizes(t *testing.T) {
	var tests = []struct {
		k     int
		cards int
	}{
		{3, 7},
		{4, 13},
		{6, 31},
		{8, 57},
		{12, 133},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("k=%d", tt.k), func(t *testing.T) {
			deck, err := cards.Generate(tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.cards, deck.Count())
			assert.NoError(t, deck.Validate())
		})
	}
}

func TestGenerate_RejectsCompositeOrder(t *testing.T) {
	for _, k := range []int{0, 1, 2, 5, 7, 10} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			_, err := cards.Generate(k)
			assert.ErrorIs(t, err, cards.ErrConfiguration)
		})
	}
}

func TestGenerate_DeterministicWithoutShuffle(t *testing.T) {
	a, err := cards.Generate(8)
	require.NoError(t, err)
	b, err := cards.Generate(8)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, cards.Card{1, 2, 3, 4, 5, 6, 7, 8}, a.Cards[0])
}

func TestShuffle_KeepsContract(t *testing.T) {
	plain, err := cards.Generate(8)
	require.NoError(t, err)
	shuffled, err := cards.Generate(8, cards.WithShuffle(rand.New(rand.NewSource(42))))
	require.NoError(t, err)

	assert.NotEqual(t, plain.Cards, shuffled.Cards, "shuffling didn't change anything")
	assert.NoError(t, shuffled.Validate())

	// Same cards as sets, possibly in a different order.
	key := func(c cards.Card) string {
		present := make([]bool, 58)
		for _, s := range c {
			present[s] = true
		}
		return fmt.Sprint(present)
	}
	want := map[string]int{}
	for _, c := range plain.Cards {
		want[key(c)]++
	}
	for _, c := range shuffled.Cards {
		want[key(c)]--
	}
	for k, v := range want {
		assert.Zero(t, v, "card set mismatch for %s", k)
	}
}

func TestValidate_DetectsBrokenDeck(t *testing.T) {
	deck, err := cards.Generate(4)
	require.NoError(t, err)

	deck.Cards[3] = deck.Cards[2].Clone()
	assert.Error(t, deck.Validate())
}

func TestCard_Common(t *testing.T) {
	a := cards.Card{1, 2, 3}
	b := cards.Card{3, 4, 5}

	assert.Equal(t, []cards.Symbol{3}, a.Common(b))
	assert.True(t, a.Contains(2))
	assert.False(t, a.Contains(4))
	assert.Empty(t, a.Common(cards.Card{9}))
}
