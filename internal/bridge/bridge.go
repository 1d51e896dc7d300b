// Package bridge exposes a running session to a local presentation layer:
// JSON endpoints for state and actions, and a websocket that streams session
// events.
package bridge

import (
	"context"
	"dobble-client/internal/events"
	"dobble-client/internal/protocol"
	"dobble-client/internal/session"
	"dobble-client/internal/state"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Game is the part of a session the bridge needs. *session.Session
// implements it.
type Game interface {
	Phase() session.Phase
	Params() session.Params
	Snapshot() state.GameState
	Submit(ctx context.Context, a protocol.Action) error
}

type Bridge struct {
	game    Game
	conns   *ConnectionManager
	limiter *RateLimiter
	log     zerolog.Logger
	r       *chi.Mux
}

func New(game Game, logger zerolog.Logger) *Bridge {
	b := &Bridge{
		game:    game,
		conns:   NewConnectionManager(),
		limiter: NewRateLimiter(10, time.Second),
		log:     logger.With().Str("component", "bridge").Logger(),
		r:       chi.NewRouter(),
	}

	b.r.Use(chimw.RequestID)
	b.r.Use(chimw.Recoverer)
	b.r.Use(b.requestLogger)
	b.r.Use(cors)

	b.r.Get("/ws", b.websocketHandler)

	b.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/health", b.healthHandler)
		r.Get("/state", b.stateHandler)
		r.Post("/actions", b.actionHandler)
	})

	b.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorMessage{Code: "NOT_FOUND", Message: r.URL.Path})
	})

	return b
}

func (b *Bridge) Handler() http.Handler { return b.r }

// Serve listens on addr until ctx is done, then shuts the server down.
func (b *Bridge) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     b.r,
		IdleTimeout: time.Minute,
		ReadTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		b.log.Info().Str("addr", addr).Msg("bridge listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("bridge server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bridge shutdown: %w", err)
	}
	return nil
}

// Pump forwards events from sub to every websocket until the stream closes
// or ctx is done.
func (b *Bridge) Pump(ctx context.Context, sub *events.Subscription) error {
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-sub.C():
			if !ok {
				return nil
			}
			b.broadcast(ctx, b.message(e))
		}
	}
}

func (b *Bridge) broadcast(ctx context.Context, msg ServerMessage) {
	failed, err := b.conns.Broadcast(ctx, msg)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to broadcast")
		return
	}
	for _, id := range failed {
		b.log.Warn().Str("connection", id).Str("type", msg.Type).Msg("failed to push event")
	}
}

func (b *Bridge) message(e events.Event) ServerMessage {
	switch e.Kind {
	case events.StateChanged:
		return ServerMessage{Type: "state", Payload: b.statePayload(e.State)}
	case events.Advisory:
		p := AdvisoryPayload{}
		if e.Rejected != nil {
			p = AdvisoryPayload{Code: uint64(e.Rejected.Code), Message: e.Rejected.Code.String()}
		}
		return ServerMessage{Type: "advisory", Payload: p}
	case events.GameEnded:
		return ServerMessage{Type: "game_ended", Payload: GameEndedPayload{WinnerID: e.State.WinnerID, Results: e.Results}}
	}
	msg := "session failed"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return ServerMessage{Type: "error", Payload: ErrorMessage{Code: "SESSION_ERROR", Message: msg}}
}

func (b *Bridge) statePayload(g state.GameState) StatePayload {
	return StatePayload{
		PlayerID: b.game.Params().PlayerID,
		Phase:    b.game.Phase().String(),
		State:    g,
	}
}

func (b *Bridge) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Phase: b.game.Phase().String()})
}

func (b *Bridge) stateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.statePayload(b.game.Snapshot()))
}

func (b *Bridge) actionHandler(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorMessage{Code: "INVALID_JSON", Message: err.Error()})
		return
	}

	status, err := b.submit(r.Context(), req)
	if err != nil {
		writeJSON(w, status, errorMessage(err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// submit turns req into an action and sends it. The status is the HTTP code
// that describes the outcome.
func (b *Bridge) submit(ctx context.Context, req ActionRequest) (int, error) {
	kind, err := protocol.ParseActionKind(req.Kind)
	if err != nil {
		return http.StatusBadRequest, fmt.Errorf("INVALID_ACTION: %w", err)
	}
	if req.Target < 0 {
		return http.StatusBadRequest, fmt.Errorf("INVALID_ACTION: target %d is negative", req.Target)
	}

	a := protocol.Action{Kind: kind, Target: req.Target}
	if kind == protocol.Reroll {
		a.Target = b.game.Params().PlayerID
	}

	err = b.game.Submit(ctx, a)
	switch {
	case err == nil:
		return http.StatusAccepted, nil
	case errors.Is(err, session.ErrNotActive), errors.Is(err, session.ErrFinished):
		return http.StatusConflict, err
	default:
		return http.StatusBadGateway, err
	}
}

func (b *Bridge) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		b.log.Warn().Err(err).Msg("failed to open websocket")
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "bridge closing")

	ctx := r.Context()
	connectionID := uuid.New().String()
	log := b.log.With().Str("connection", connectionID).Logger()
	log.Info().Msg("websocket connected")

	b.conns.AddConnection(connectionID, socket)
	defer func() {
		b.conns.RemoveConnection(connectionID)
		b.limiter.RemoveConnection(connectionID)
		log.Info().Msg("websocket closed")
	}()

	if b.game.Phase() >= session.Active {
		b.send(ctx, socket, ServerMessage{Type: "state", Payload: b.statePayload(b.game.Snapshot())})
	}

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("read ended")
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.sendError(ctx, socket, ErrorMessage{Code: "INVALID_JSON", Message: "Invalid JSON"})
			continue
		}
		if err := ValidateMessageType(msg.Type); err != nil {
			b.sendError(ctx, socket, errorMessage(err))
			continue
		}

		switch msg.Type {
		case "ping":
			b.send(ctx, socket, ServerMessage{Type: "pong", Payload: struct{}{}})

		case "action":
			if !b.limiter.Allow(connectionID) {
				b.sendError(ctx, socket, ErrorMessage{Code: "RATE_LIMITED", Message: "Too many actions"})
				continue
			}
			var req ActionRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				b.sendError(ctx, socket, ErrorMessage{Code: "INVALID_ACTION", Message: "Invalid action payload"})
				continue
			}
			if _, err := b.submit(ctx, req); err != nil {
				b.sendError(ctx, socket, errorMessage(err))
			}
		}
	}
}

func (b *Bridge) send(ctx context.Context, socket *websocket.Conn, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Error().Err(err).Str("type", msg.Type).Msg("failed to marshal message")
		return
	}
	if err := socket.Write(ctx, websocket.MessageText, data); err != nil {
		b.log.Debug().Err(err).Str("type", msg.Type).Msg("failed to send message")
	}
}

func (b *Bridge) sendError(ctx context.Context, socket *websocket.Conn, e ErrorMessage) {
	b.send(ctx, socket, ServerMessage{Type: "error", Payload: e})
}
