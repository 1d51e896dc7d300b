package bridge

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter is a per-connection sliding window over action messages.
// Why sliding window: a UI that retries in a loop gets throttled without
// penalising a player who clicks fast now and then.
// Why per-connection: two open tabs should not starve each other.
type RateLimiter struct {
	maxRequests int                    // Maximum actions allowed per window
	window      time.Duration          // Length of the sliding window
	requests    map[string][]time.Time // connectionID -> recent request times
	mu          sync.Mutex             // Protects requests
	now         func() time.Time
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Allow records a request for connectionID and reports whether it fits in
// the window.
func (r *RateLimiter) Allow(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	// Drop timestamps that left the window
	// Why filter in place: memory per connection stays bounded by maxRequests
	timestamps := r.requests[connectionID]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= r.maxRequests {
		r.requests[connectionID] = valid
		return false
	}

	r.requests[connectionID] = append(valid, now)
	return true
}

// RemoveConnection forgets a connection's history.
// Should be called when a websocket disconnects, otherwise the map keeps
// entries for sockets that are gone.
func (r *RateLimiter) RemoveConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, connectionID)
}

// ValidateMessageType rejects websocket message types the bridge does not
// handle.
func ValidateMessageType(msgType string) error {
	switch msgType {
	case "ping", "action":
		return nil
	}
	return fmt.Errorf("INVALID_MESSAGE_TYPE: Unknown message type '%s'", msgType)
}
