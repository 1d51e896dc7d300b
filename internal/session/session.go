package session

import (
	"bufio"
	"context"
	"dobble-client/internal/events"
	"dobble-client/internal/protocol"
	"dobble-client/internal/state"
	"dobble-client/internal/wire"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Session is one connection to the game server. The handshake runs
// synchronously; afterwards Run owns every read and the Dispatcher owns
// every write.
type Session struct {
	conn net.Conn
	in   *bufio.Reader
	cfg  Config
	log  zerolog.Logger

	store      *state.Store
	bus        *events.Bus
	dispatcher *Dispatcher

	phase   atomic.Int32
	running atomic.Bool

	mu     sync.RWMutex
	params Params
	dec    *protocol.Decoder

	endOnce   sync.Once
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// New wraps an already open connection. Call Handshake next.
func New(conn net.Conn, cfg Config, logger zerolog.Logger) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		conn:  conn,
		in:    bufio.NewReader(conn),
		cfg:   cfg,
		log:   logger.With().Str("component", "session").Logger(),
		store: state.NewStore(),
		bus:   events.NewBus(),
		done:  make(chan struct{}),
	}
	s.dispatcher = &Dispatcher{s: s}
	return s
}

// Dial connects to cfg.Addr and completes the handshake. A refused
// connection is reported as a transport failure; there is no retry.
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", wire.ErrTransport, cfg.Addr, err)
	}

	s := New(conn, cfg, logger)
	s.log.Info().Str("addr", cfg.Addr).Msg("connected")

	if err := s.Handshake(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Session) setPhase(p Phase) {
	s.phase.Store(int32(p))
	s.log.Debug().Stringer("phase", p).Msg("phase changed")
}

func (s *Session) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

func (s *Session) Store() *state.Store {
	return s.store
}

func (s *Session) Actions() *Dispatcher {
	return s.dispatcher
}

// Subscribe returns a stream of session events. It closes after the session
// ends.
func (s *Session) Subscribe() *events.Subscription {
	return s.bus.Subscribe()
}

// Done is closed once the connection has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Handshake reads the framing preamble, sends the username, reads the game
// metadata and the initial snapshot. Any failure closes the connection.
func (s *Session) Handshake(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		s.Close()
		return err
	}
	if s.Phase() != Connecting {
		return fmt.Errorf("handshake called in phase %s", s.Phase())
	}

	// A deadline in the past unblocks any pending read or write.
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetDeadline(time.Unix(1, 0))
	})

	err := s.handshake()
	stop()
	s.conn.SetDeadline(time.Time{})

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	} else if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", err, ctx.Err())
	}
	if err != nil {
		s.log.Error().Err(err).Stringer("phase", s.Phase()).Msg("handshake failed")
		s.Close()
		return err
	}
	return nil
}

func (s *Session) handshake() error {
	layout := s.cfg.Layout

	s.setPhase(AwaitingMetadata)
	framing, err := wire.ReadPreamble(s.in)
	if err != nil {
		return fmt.Errorf("read preamble: %w", err)
	}
	s.log.Debug().Stringer("framing", framing).Msg("framing negotiated")

	s.setPhase(AwaitingUsernameAck)
	if _, err := wire.NewBuffer(framing).Name(s.cfg.Username, layout.NameWidth).WriteTo(s.conn); err != nil {
		return fmt.Errorf("send username: %w", err)
	}

	s.setPhase(AwaitingGameMetadata)
	r := wire.NewReader(s.in, framing)
	// Servers disagree on this opcode, so any value is accepted.
	raw, err := r.Uint()
	if err != nil {
		return fmt.Errorf("read game metadata: %w", err)
	}
	if op := protocol.Opcode(raw); op != protocol.SendGameMetadata {
		s.log.Warn().Stringer("opcode", op).Msg("game metadata announced with unexpected opcode")
	}
	dec := protocol.NewDecoder(r, layout)
	meta, err := dec.GameMetadata()
	if err != nil {
		return fmt.Errorf("read game metadata: %w", err)
	}

	s.setPhase(AwaitingInitialSnapshot)
	dec = dec.WithSymbolsPerCard(meta.SymbolsPerCard)
	op, err := dec.Opcode()
	if err != nil {
		return fmt.Errorf("read initial snapshot: %w", err)
	}
	if op != protocol.SendGameState {
		return fmt.Errorf("%w: initial snapshot announced with %s", wire.ErrProtocol, op)
	}
	g, err := dec.Snapshot()
	if err != nil {
		return fmt.Errorf("read initial snapshot: %w", err)
	}
	if _, ok := g.Player(meta.PlayerID); !ok {
		s.log.Warn().Int("player_id", meta.PlayerID).Msg("own player missing from initial snapshot")
	}

	s.mu.Lock()
	s.params = Params{
		Framing:        framing,
		SymbolsPerCard: meta.SymbolsPerCard,
		PlayerID:       meta.PlayerID,
		PlayerCount:    len(g.Players),
	}
	s.dec = dec
	s.mu.Unlock()

	s.store.Replace(g)
	s.setPhase(Active)
	s.log.Info().
		Int("player_id", meta.PlayerID).
		Int("symbols_per_card", meta.SymbolsPerCard).
		Int("players", len(g.Players)).
		Msg("handshake complete")

	s.bus.Publish(events.Event{Kind: events.StateChanged, State: s.store.Snapshot()})
	return nil
}

// Finish ends the session from this side: the finish frame goes out once,
// observers get one GameEnded event, and the connection is closed.
func (s *Session) Finish() error {
	select {
	case <-s.done:
	default:
		if s.Phase() >= Active {
			s.finish()
		}
	}
	return s.Close()
}

func (s *Session) finish() {
	s.endOnce.Do(func() {
		s.setPhase(Finished)
		if err := s.dispatcher.sendFinish(); err != nil {
			s.log.Warn().Err(err).Msg("could not send finish")
		}

		g := s.store.Finish(s.store.Snapshot().Winner())
		s.log.Info().Int("winner", g.WinnerID).Msg("game ended")
		s.bus.Publish(events.Event{Kind: events.GameEnded, State: g, Results: g.Results()})
	})
}

// fail tears the session down after a transport failure or protocol
// violation.
func (s *Session) fail(err error) {
	s.endOnce.Do(func() {
		s.log.Error().Err(err).Msg("session aborted")
		s.bus.Publish(events.Event{Kind: events.SessionError, Err: err})
	})
	s.Close()
}

// Close releases the connection. It is safe to call from any goroutine and
// any number of times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.setPhase(Finished)
		s.closeErr = s.conn.Close()
		if errors.Is(s.closeErr, net.ErrClosed) {
			s.closeErr = nil
		}
		s.bus.Close()
		close(s.done)
	})
	return s.closeErr
}

// Snapshot is a copy of the current game state.
func (s *Session) Snapshot() state.GameState {
	return s.store.Snapshot()
}

// Submit sends a through the session's dispatcher.
func (s *Session) Submit(ctx context.Context, a protocol.Action) error {
	return s.dispatcher.Submit(ctx, a)
}
