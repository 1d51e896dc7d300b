package protocol

import (
	"dobble-client/internal/cards"
	"dobble-client/internal/state"
	"dobble-client/internal/wire"
	"fmt"
	"math"
)

// Decoder reads whole frames. Every method either consumes a complete frame
// section or fails; a failed decoder must not be used again.
type Decoder struct {
	r      *wire.Reader
	layout Layout
}

func NewDecoder(r *wire.Reader, l Layout) *Decoder {
	return &Decoder{r: r, layout: l}
}

func (d *Decoder) Layout() Layout {
	return d.layout
}

// WithSymbolsPerCard returns a decoder over the same stream that expects
// cards of k symbols.
func (d *Decoder) WithSymbolsPerCard(k int) *Decoder {
	l := d.layout
	l.SymbolsPerCard = k
	return &Decoder{r: d.r, layout: l}
}

func (d *Decoder) Opcode() (Opcode, error) {
	v, err := d.r.Uint()
	if err != nil {
		return 0, err
	}
	op := Opcode(v)
	if _, ok := opcodeString[op]; !ok {
		return 0, fmt.Errorf("%w: unknown opcode %d", wire.ErrProtocol, v)
	}
	return op, nil
}

// Next reads one opcode and its payload.
func (d *Decoder) Next() (Frame, error) {
	op, err := d.Opcode()
	if err != nil {
		return nil, err
	}
	return d.Body(op)
}

// Body reads the payload that follows op.
func (d *Decoder) Body(op Opcode) (Frame, error) {
	switch op {
	case SendGameState:
		g, err := d.Snapshot()
		if err != nil {
			return nil, err
		}
		return GameStateFrame{State: g}, nil

	case EndRequest:
		return EndRequestFrame{}, nil

	case SendGameMetadata:
		return d.GameMetadata()

	case MakeAction:
		return d.action()

	case FinishGame:
		return FinishGameFrame{}, nil

	case SendReturnCode:
		v, err := d.r.Uint()
		if err != nil {
			return nil, err
		}
		return ReturnCodeFrame{Code: ReturnCode(v)}, nil
	}

	return nil, fmt.Errorf("%w: unknown opcode %d", wire.ErrProtocol, uint64(op))
}

// GameMetadata reads symbols_per_card, the local player id and the closing
// EndRequest.
func (d *Decoder) GameMetadata() (GameMetadataFrame, error) {
	k, err := d.r.Int("symbols_per_card", maxSymbolsPerCard)
	if err != nil {
		return GameMetadataFrame{}, err
	}
	if k == 0 {
		return GameMetadataFrame{}, fmt.Errorf("%w: symbols_per_card is zero", wire.ErrProtocol)
	}
	id, err := d.r.Int("my_player_id", math.MaxInt32)
	if err != nil {
		return GameMetadataFrame{}, err
	}
	if err := d.expectEnd("game metadata"); err != nil {
		return GameMetadataFrame{}, err
	}
	return GameMetadataFrame{SymbolsPerCard: k, PlayerID: id}, nil
}

func (d *Decoder) action() (MakeActionFrame, error) {
	kind, err := d.r.Uint()
	if err != nil {
		return MakeActionFrame{}, err
	}
	target, err := d.r.Int("target", math.MaxInt32)
	if err != nil {
		return MakeActionFrame{}, err
	}
	aux, err := d.r.Int("aux", math.MaxInt32)
	if err != nil {
		return MakeActionFrame{}, err
	}
	if err := d.expectEnd("action"); err != nil {
		return MakeActionFrame{}, err
	}
	return MakeActionFrame{Action: Action{Kind: ActionKind(kind), Target: target, Aux: aux}}, nil
}

// Snapshot reads a full game state including the closing EndRequest.
func (d *Decoder) Snapshot() (state.GameState, error) {
	g := state.Empty()

	k, err := d.r.Int("symbols_per_card", maxSymbolsPerCard)
	if err != nil {
		return g, err
	}
	if k == 0 || (d.layout.SymbolsPerCard != 0 && k != d.layout.SymbolsPerCard) {
		return g, fmt.Errorf("%w: snapshot has %d symbols per card, %d negotiated", wire.ErrProtocol, k, d.layout.SymbolsPerCard)
	}

	if g.TopCard, err = d.card(k); err != nil {
		return g, err
	}

	count, err := d.r.Int("player_count", d.layout.maxPlayers())
	if err != nil {
		return g, err
	}
	if count == 0 {
		return g, fmt.Errorf("%w: snapshot without players", wire.ErrProtocol)
	}

	g.Players = make([]state.PlayerState, 0, count)
	for n := 0; n < count; n++ {
		p, err := d.player(k)
		if err != nil {
			return g, err
		}
		g.Players = append(g.Players, p)
	}

	if err := d.expectEnd("game state"); err != nil {
		return g, err
	}
	if err := d.validate(g); err != nil {
		return g, err
	}
	return g, nil
}

func (d *Decoder) player(k int) (state.PlayerState, error) {
	var p state.PlayerState
	var err error

	if p.ID, err = d.r.Int("player_id", math.MaxInt32); err != nil {
		return p, err
	}
	if d.layout.SnapshotNames {
		if p.Name, err = d.r.Name(d.layout.NameWidth); err != nil {
			return p, err
		}
	}
	if p.Hand, err = d.card(k); err != nil {
		return p, err
	}

	fields := []struct {
		name string
		dst  *int
	}{
		{"hand_count", &p.HandCount},
		{"swaps_left", &p.Abilities.SwapsLeft},
		{"swap_cooldown", &p.Abilities.SwapCooldown},
		{"freezes_left", &p.Abilities.FreezesLeft},
		{"freeze_cooldown", &p.Abilities.FreezeCooldown},
		{"rerolls_left", &p.Abilities.RerollsLeft},
		{"reroll_cooldown", &p.Abilities.RerollCooldown},
		{"frozen", &p.FrozenTurns},
	}
	for _, f := range fields {
		if *f.dst, err = d.r.Int(f.name, math.MaxInt32); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (d *Decoder) card(k int) (cards.Card, error) {
	card := make(cards.Card, 0, k)
	for n := 0; n < k; n++ {
		s, err := d.r.Int("symbol", math.MaxInt32)
		if err != nil {
			return nil, err
		}
		card = append(card, cards.Symbol(s))
	}
	return card, nil
}

func (d *Decoder) expectEnd(what string) error {
	op, err := d.r.Uint()
	if err != nil {
		return err
	}
	if Opcode(op) != EndRequest {
		return fmt.Errorf("%w: %s ends with %s, want EndRequest", wire.ErrProtocol, what, Opcode(op))
	}
	return nil
}

func (d *Decoder) validate(g state.GameState) error {
	if err := distinct(g.TopCard); err != nil {
		return fmt.Errorf("%w: top card: %w", wire.ErrProtocol, err)
	}

	ids := make(map[int]bool, len(g.Players))
	lim := d.layout.Limits
	for _, p := range g.Players {
		if ids[p.ID] {
			return fmt.Errorf("%w: player %d listed twice", wire.ErrProtocol, p.ID)
		}
		ids[p.ID] = true

		if err := distinct(p.Hand); err != nil {
			return fmt.Errorf("%w: player %d hand: %w", wire.ErrProtocol, p.ID, err)
		}
		if over(p.Abilities.SwapsLeft, lim.Swaps) || over(p.Abilities.FreezesLeft, lim.Freezes) || over(p.Abilities.RerollsLeft, lim.Rerolls) {
			return fmt.Errorf("%w: player %d ability charges above configured maximum", wire.ErrProtocol, p.ID)
		}
	}
	return nil
}

func over(v, limit int) bool {
	return limit > 0 && v > limit
}

func distinct(c cards.Card) error {
	seen := make(map[cards.Symbol]bool, len(c))
	for _, s := range c {
		if seen[s] {
			return fmt.Errorf("symbol %d repeated", s)
		}
		seen[s] = true
	}
	return nil
}
