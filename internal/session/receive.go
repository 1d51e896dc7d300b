package session

import (
	"context"
	"dobble-client/internal/events"
	"dobble-client/internal/protocol"
	"dobble-client/internal/wire"
	"errors"
	"fmt"
	"time"
)

// Run is the receive loop. It applies snapshots to the store, reports
// advisories and stops when the game finishes, the peer hangs up or ctx is
// cancelled. The connection is closed on return.
//
// A nil error means the game finished or the session was closed locally,
// including a finish that happened before Run was called.
func (s *Session) Run(ctx context.Context) error {
	switch s.Phase() {
	case Active:
	case Finished:
		return nil
	default:
		return ErrNotActive
	}
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("receive loop already running")
	}

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()
	defer s.Close()

	s.mu.RLock()
	dec := s.dec
	playerCount := s.params.PlayerCount
	s.mu.RUnlock()

	for {
		if s.cfg.ReadTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}

		frame, err := dec.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.Phase() == Finished {
				return nil
			}
			s.fail(err)
			return err
		}

		done, err := s.apply(frame, playerCount)
		if err != nil {
			s.fail(err)
			return err
		}
		if done {
			return nil
		}
	}
}

func (s *Session) apply(frame protocol.Frame, playerCount int) (bool, error) {
	switch f := frame.(type) {
	case protocol.GameStateFrame:
		// The store is read-only once the game has ended.
		if s.Phase() == Finished {
			return true, nil
		}
		if len(f.State.Players) != playerCount {
			return false, fmt.Errorf("%w: snapshot has %d players, session started with %d",
				wire.ErrProtocol, len(f.State.Players), playerCount)
		}
		version := s.store.Replace(f.State)
		s.log.Debug().Uint64("version", version).Msg("game state replaced")
		s.bus.Publish(events.Event{Kind: events.StateChanged, State: s.store.Snapshot()})
		return false, nil

	case protocol.ReturnCodeFrame:
		if f.Code == protocol.Success {
			return false, nil
		}
		rejected := &protocol.RejectedError{Code: f.Code}
		s.log.Info().Err(rejected).Msg("action rejected")
		s.bus.Publish(events.Event{Kind: events.Advisory, Rejected: rejected})
		return false, nil

	case protocol.FinishGameFrame:
		s.finish()
		return true, nil
	}

	return false, fmt.Errorf("%w: unexpected %s while active", wire.ErrProtocol, frame.Opcode())
}
