package console

import (
	"dobble-client/internal/state"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Render formats g for a terminal, marking the local player with '*'.
func Render(g state.GameState, myID int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "top card:  %s\n", g.TopCard)
	if me, ok := g.Player(myID); ok {
		fmt.Fprintf(&sb, "your card: %s\n", me.Hand)
		if common := me.Hand.Common(g.TopCard); len(common) > 0 {
			fmt.Fprintf(&sb, "match:     %d\n", common[0])
		}
	}

	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tid\tname\tcards\tswap\tfreeze\treroll\tfrozen")
	for _, p := range g.Players {
		mark := ""
		if p.ID == myID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			mark, p.ID, p.Name, p.HandCount,
			ability(p.Abilities.SwapsLeft, p.Abilities.SwapCooldown),
			ability(p.Abilities.FreezesLeft, p.Abilities.FreezeCooldown),
			ability(p.Abilities.RerollsLeft, p.Abilities.RerollCooldown),
			frozen(p.FrozenTurns),
		)
	}
	tw.Flush()

	if g.Finished {
		sb.WriteString(RenderResults(g))
	}
	return sb.String()
}

// RenderResults lists the final standings.
func RenderResults(g state.GameState) string {
	var sb strings.Builder
	switch g.WinnerID {
	case state.NoWinner:
		sb.WriteString("game over: no single winner\n")
	default:
		name := ""
		if p, ok := g.Player(g.WinnerID); ok {
			name = p.Name
		}
		fmt.Fprintf(&sb, "game over: %s (%d) wins\n", name, g.WinnerID)
	}
	for _, r := range g.Results() {
		fmt.Fprintf(&sb, "  %d. %s (%d) %d cards\n", r.Rank, r.Name, r.PlayerID, r.HandCount)
	}
	return sb.String()
}

func ability(left, cooldown int) string {
	if cooldown > 0 {
		return fmt.Sprintf("%d (cd %d)", left, cooldown)
	}
	return fmt.Sprintf("%d", left)
}

func frozen(turns int) string {
	if turns > 0 {
		return fmt.Sprintf("%d", turns)
	}
	return "-"
}
