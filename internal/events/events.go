package events

import (
	"dobble-client/internal/protocol"
	"dobble-client/internal/state"
	"sync"
	"time"
)

type Kind string

const (
	StateChanged Kind = "state_changed"
	Advisory     Kind = "advisory"
	GameEnded    Kind = "game_ended"
	SessionError Kind = "session_error"
)

type Event struct {
	Kind Kind
	When time.Time
	// State is a copy of the store after the change (StateChanged, GameEnded).
	State state.GameState
	// Rejected is set for Advisory events.
	Rejected *protocol.RejectedError
	// Results holds final hand counts for GameEnded.
	Results []state.PlayerResult
	// Err is set for SessionError.
	Err error
}

// Bus fans events out to subscribers. Each subscriber has its own unbounded
// queue, so a slow consumer never blocks the publisher and never loses
// events; delivery follows publish order.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe starts receiving events published from now on. On a closed bus
// the returned subscription's channel is already closed.
func (b *Bus) Subscribe() *Subscription {
	s := newSubscription(b)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.finish()
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

func (b *Bus) Publish(e Event) {
	if e.When.IsZero() {
		e.When = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		s.push(e)
	}
}

// Close stops publishing. Subscribers still receive what was queued before
// their channels close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.finish()
	}
	clear(b.subs)
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

type Subscription struct {
	bus *Bus
	out chan Event

	mu    sync.Mutex
	queue []Event
	done  bool
	wake  chan struct{}
	stop  chan struct{}
	once  sync.Once
}

func newSubscription(b *Bus) *Subscription {
	s := &Subscription{
		bus:  b,
		out:  make(chan Event),
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	go s.pump()
	return s
}

// C delivers events in publish order and is closed once the bus closes (after
// the backlog is drained) or the subscription is cancelled.
func (s *Subscription) C() <-chan Event {
	return s.out
}

// Cancel detaches the subscriber and discards anything still queued.
func (s *Subscription) Cancel() {
	s.bus.remove(s)
	s.once.Do(func() { close(s.stop) })
}

func (s *Subscription) push(e Event) {
	s.mu.Lock()
	if !s.done {
		s.queue = append(s.queue, e)
	}
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) finish() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			done := s.done
			s.mu.Unlock()
			if done {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-s.stop:
				return
			}
		}
		next := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.stop:
			return
		}
	}
}
