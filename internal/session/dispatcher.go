package session

import (
	"context"
	"dobble-client/internal/cards"
	"dobble-client/internal/protocol"
	"dobble-client/internal/wire"
	"fmt"
	"sync"
)

// Dispatcher writes player actions. Frames go out whole, one at a time. The
// local game state is never touched; the outcome arrives with the next
// snapshot.
type Dispatcher struct {
	s *Session

	mu         sync.Mutex
	finishSent bool
}

func (d *Dispatcher) Submit(ctx context.Context, a protocol.Action) error {
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown action kind %d", uint64(a.Kind))
	}
	if a.Target < 0 || a.Aux < 0 {
		return fmt.Errorf("action %s: negative target %d", a.Kind, a.Target)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch d.s.Phase() {
	case Active:
	case Finished:
		return ErrFinished
	default:
		return ErrNotActive
	}

	p := d.s.Params()
	frame := protocol.Encode(wire.NewBuffer(p.Framing), protocol.MakeActionFrame{Action: a}, d.s.cfg.Layout)
	if _, err := frame.Bytes(); err != nil {
		return fmt.Errorf("encode %s: %w", a.Kind, err)
	}

	d.mu.Lock()
	if d.finishSent {
		d.mu.Unlock()
		return ErrFinished
	}
	_, err := frame.WriteTo(d.s.conn)
	d.mu.Unlock()
	if err != nil {
		err = fmt.Errorf("send %s: %w", a.Kind, err)
		d.s.fail(err)
		return err
	}

	d.s.log.Debug().Stringer("kind", a.Kind).Int("target", a.Target).Msg("action sent")
	return nil
}

func (d *Dispatcher) PlayCard(ctx context.Context, symbol cards.Symbol) error {
	return d.Submit(ctx, protocol.Action{Kind: protocol.PlayCard, Target: int(symbol)})
}

func (d *Dispatcher) Swap(ctx context.Context, playerID int) error {
	return d.Submit(ctx, protocol.Action{Kind: protocol.Swap, Target: playerID})
}

func (d *Dispatcher) Freeze(ctx context.Context, playerID int) error {
	return d.Submit(ctx, protocol.Action{Kind: protocol.Freeze, Target: playerID})
}

// Reroll targets the local player.
func (d *Dispatcher) Reroll(ctx context.Context) error {
	return d.Submit(ctx, protocol.Action{Kind: protocol.Reroll, Target: d.s.Params().PlayerID})
}

// sendFinish writes the FinishGame frame at most once per session.
func (d *Dispatcher) sendFinish() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finishSent {
		return nil
	}
	d.finishSent = true

	p := d.s.Params()
	if p.Framing.Width == 0 {
		return nil
	}
	_, err := protocol.Encode(wire.NewBuffer(p.Framing), protocol.FinishGameFrame{}, d.s.cfg.Layout).WriteTo(d.s.conn)
	return err
}
