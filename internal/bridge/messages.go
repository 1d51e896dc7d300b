package bridge

import (
	"dobble-client/internal/state"
	"encoding/json"
)

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ============================================================================
// ERRORS
// ============================================================================
// tygo:generate
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// ACTIONS (POST /actions, "action")
// ============================================================================
// tygo:generate
type ActionRequest struct {
	Kind   string `json:"kind"`
	Target int    `json:"target"`
}

// ============================================================================
// PUSHED EVENTS
// ============================================================================
// tygo:generate
type StatePayload struct {
	PlayerID int             `json:"playerId"`
	Phase    string          `json:"phase"`
	State    state.GameState `json:"state"`
}

// tygo:generate
type AdvisoryPayload struct {
	Code    uint64 `json:"code"`
	Message string `json:"message"`
}

// tygo:generate
type GameEndedPayload struct {
	WinnerID int                  `json:"winnerId"`
	Results  []state.PlayerResult `json:"results"`
}

// tygo:generate
type HealthResponse struct {
	Status string `json:"status"`
	Phase  string `json:"phase"`
}
