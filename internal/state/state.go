package state

import (
	"dobble-client/internal/cards"
	"slices"
	"sort"
)

// NoWinner marks a game without a decided winner.
const NoWinner = -1

type Abilities struct {
	SwapsLeft      int `json:"swapsLeft"`
	SwapCooldown   int `json:"swapCooldown"`
	FreezesLeft    int `json:"freezesLeft"`
	FreezeCooldown int `json:"freezeCooldown"`
	RerollsLeft    int `json:"rerollsLeft"`
	RerollCooldown int `json:"rerollCooldown"`
}

type PlayerState struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Hand        cards.Card `json:"hand"`
	HandCount   int        `json:"handCount"`
	Abilities   Abilities  `json:"abilities"`
	FrozenTurns int        `json:"frozenTurns"`
}

// Frozen players cannot act. A legacy boolean flag of 1 reads as one turn.
func (p PlayerState) Frozen() bool {
	return p.FrozenTurns > 0
}

// The Can* helpers mirror the server's checks so a UI can grey out buttons.
// They are advisory only: the server decides.

func (p PlayerState) CanPlay(symbol cards.Symbol, top cards.Card) bool {
	return !p.Frozen() && p.Hand.Contains(symbol) && top.Contains(symbol)
}

func (p PlayerState) CanSwap() bool {
	return !p.Frozen() && p.Abilities.SwapsLeft > 0 && p.Abilities.SwapCooldown == 0
}

func (p PlayerState) CanFreeze() bool {
	return !p.Frozen() && p.Abilities.FreezesLeft > 0 && p.Abilities.FreezeCooldown == 0
}

func (p PlayerState) CanReroll() bool {
	return !p.Frozen() && p.Abilities.RerollsLeft > 0 && p.Abilities.RerollCooldown == 0
}

func (p PlayerState) Clone() PlayerState {
	p.Hand = p.Hand.Clone()
	return p
}

// GameState is the client's copy of the server's game. Players keep the
// server's registration order.
type GameState struct {
	TopCard  cards.Card    `json:"topCard"`
	Players  []PlayerState `json:"players"`
	Finished bool          `json:"finished"`
	WinnerID int           `json:"winnerId"`
	Version  uint64        `json:"version"`
}

func Empty() GameState {
	return GameState{WinnerID: NoWinner}
}

func (g GameState) Clone() GameState {
	out := g
	out.TopCard = g.TopCard.Clone()
	if g.Players != nil {
		out.Players = make([]PlayerState, len(g.Players))
		for i, p := range g.Players {
			out.Players[i] = p.Clone()
		}
	}
	return out
}

func (g GameState) Player(id int) (PlayerState, bool) {
	i := slices.IndexFunc(g.Players, func(p PlayerState) bool { return p.ID == id })
	if i < 0 {
		return PlayerState{}, false
	}
	return g.Players[i], true
}

type PlayerResult struct {
	PlayerID  int    `json:"playerId"`
	Name      string `json:"name"`
	HandCount int    `json:"handCount"`
	Rank      int    `json:"rank"`
}

// Results orders players by cards left, fewest first. Players with equal
// counts share a rank.
func (g GameState) Results() []PlayerResult {
	results := make([]PlayerResult, 0, len(g.Players))
	for _, p := range g.Players {
		results = append(results, PlayerResult{PlayerID: p.ID, Name: p.Name, HandCount: p.HandCount})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].HandCount < results[j].HandCount
	})

	for i := range results {
		if i > 0 && results[i].HandCount == results[i-1].HandCount {
			results[i].Rank = results[i-1].Rank
		} else {
			results[i].Rank = i + 1
		}
	}
	return results
}

// Winner is a player who emptied their hand, otherwise the single player
// with the fewest cards. Ties give NoWinner.
func (g GameState) Winner() int {
	results := g.Results()
	if len(results) == 0 {
		return NoWinner
	}
	if results[0].HandCount == 0 {
		return results[0].PlayerID
	}
	if len(results) > 1 && results[1].HandCount == results[0].HandCount {
		return NoWinner
	}
	return results[0].PlayerID
}
