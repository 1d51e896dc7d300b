package protocol

import (
	"dobble-client/internal/state"
	"dobble-client/internal/wire"
	"fmt"
)

// Encode appends fr to b in wire order. Client code only sends MakeAction
// and FinishGame; the other branches serve tools and test servers.
func Encode(b *wire.Buffer, fr Frame, l Layout) *wire.Buffer {
	b.Uint(uint64(fr.Opcode()))

	switch f := fr.(type) {
	case GameStateFrame:
		appendSnapshot(b, f.State, l)
		b.Uint(uint64(EndRequest))

	case EndRequestFrame:

	case GameMetadataFrame:
		b.Int(f.SymbolsPerCard).Int(f.PlayerID).Uint(uint64(EndRequest))

	case MakeActionFrame:
		b.Uint(uint64(f.Action.Kind)).Int(f.Action.Target).Int(f.Action.Aux).Uint(uint64(EndRequest))

	case FinishGameFrame:

	case ReturnCodeFrame:
		b.Uint(uint64(f.Code))

	default:
		panic(fmt.Sprintf("protocol: unhandled frame %T", fr))
	}
	return b
}

func appendSnapshot(b *wire.Buffer, g state.GameState, l Layout) {
	b.Int(len(g.TopCard))
	for _, s := range g.TopCard {
		b.Int(int(s))
	}

	b.Int(len(g.Players))
	for _, p := range g.Players {
		b.Int(p.ID)
		if l.SnapshotNames {
			b.Name(p.Name, l.NameWidth)
		}
		for _, s := range p.Hand {
			b.Int(int(s))
		}
		b.Int(p.HandCount).
			Int(p.Abilities.SwapsLeft).
			Int(p.Abilities.SwapCooldown).
			Int(p.Abilities.FreezesLeft).
			Int(p.Abilities.FreezeCooldown).
			Int(p.Abilities.RerollsLeft).
			Int(p.Abilities.RerollCooldown).
			Int(p.FrozenTurns)
	}
}
