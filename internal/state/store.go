package state

import "sync"

// Store holds the mirrored game. It has a single writer (the session's
// receive loop); everyone else reads copies through Snapshot.
type Store struct {
	mu        sync.RWMutex
	game      GameState
	populated bool
}

func NewStore() *Store {
	return &Store{game: Empty()}
}

// Replace swaps in a whole new game state. Nothing from the previous state
// survives except the version counter, which moves forward.
func (s *Store) Replace(g GameState) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := g.Clone()
	next.Version = s.game.Version + 1
	if !next.Finished {
		next.WinnerID = NoWinner
	}
	s.game = next
	s.populated = true
	return next.Version
}

// Finish marks the game as over. Later calls keep the first winner.
func (s *Store) Finish(winnerID int) GameState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.Finished {
		s.game.Finished = true
		s.game.WinnerID = winnerID
		s.game.Version++
	}
	return s.game.Clone()
}

func (s *Store) Snapshot() GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Clone()
}

// Populated reports whether an initial snapshot has been applied.
func (s *Store) Populated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.populated
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Version
}
