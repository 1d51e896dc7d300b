package bridge

import (
	"context"
	"dobble-client/internal/cards"
	"dobble-client/internal/events"
	"dobble-client/internal/protocol"
	"dobble-client/internal/session"
	"dobble-client/internal/state"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGame struct {
	mu        sync.Mutex
	phase     session.Phase
	params    session.Params
	snap      state.GameState
	submitted []protocol.Action
	submitErr error
	bus       *events.Bus
}

func newFakeGame() *fakeGame {
	g := state.Empty()
	g.TopCard = cards.Card{1, 2, 3}
	g.Players = []state.PlayerState{
		{ID: 1, Name: "ann", Hand: cards.Card{1, 4, 5}, HandCount: 6},
		{ID: 2, Name: "bo", Hand: cards.Card{2, 4, 6}, HandCount: 6},
	}
	return &fakeGame{
		phase:  session.Active,
		params: session.Params{SymbolsPerCard: 3, PlayerID: 2, PlayerCount: 2},
		snap:   g,
		bus:    events.NewBus(),
	}
}

func (f *fakeGame) Phase() session.Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

func (f *fakeGame) Params() session.Params    { return f.params }
func (f *fakeGame) Snapshot() state.GameState { return f.snap.Clone() }

func (f *fakeGame) Submit(ctx context.Context, a protocol.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, a)
	return nil
}

func (f *fakeGame) actions() []protocol.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Action(nil), f.submitted...)
}

func setupTestBridge(t *testing.T) (*fakeGame, *Bridge, *httptest.Server) {
	t.Helper()
	game := newFakeGame()
	b := New(game, zerolog.Nop())
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return game, b, srv
}

func postAction(t *testing.T, url, body string) (*http.Response, ErrorMessage) {
	t.Helper()
	resp, err := http.Post(url+"/actions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var e ErrorMessage
	if resp.StatusCode >= 400 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	}
	return resp, e
}

func TestHealth(t *testing.T) {
	_, _, srv := setupTestBridge(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var h HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, HealthResponse{Status: "ok", Phase: "active"}, h)
}

func TestState(t *testing.T) {
	game, _, srv := setupTestBridge(t)

	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var p StatePayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, 2, p.PlayerID)
	assert.Equal(t, "active", p.Phase)
	assert.Equal(t, game.snap, p.State)
}

func TestActions(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		submitErr  error
		wantStatus int
		wantCode   string
		want       []protocol.Action
	}{
		{
			name:       "play card",
			body:       `{"kind":"play_card","target":4}`,
			wantStatus: http.StatusAccepted,
			want:       []protocol.Action{{Kind: protocol.PlayCard, Target: 4}},
		},
		{
			name:       "reroll targets self",
			body:       `{"kind":"reroll","target":9}`,
			wantStatus: http.StatusAccepted,
			want:       []protocol.Action{{Kind: protocol.Reroll, Target: 2}},
		},
		{
			name:       "unknown kind",
			body:       `{"kind":"shuffle","target":1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ACTION",
		},
		{
			name:       "negative target",
			body:       `{"kind":"freeze","target":-1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ACTION",
		},
		{
			name:       "bad json",
			body:       `{"kind":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_JSON",
		},
		{
			name:       "not active",
			body:       `{"kind":"swap","target":1}`,
			submitErr:  session.ErrNotActive,
			wantStatus: http.StatusConflict,
			wantCode:   "NOT_ACTIVE",
		},
		{
			name:       "finished",
			body:       `{"kind":"swap","target":1}`,
			submitErr:  session.ErrFinished,
			wantStatus: http.StatusConflict,
			wantCode:   "FINISHED",
		},
		{
			name:       "transport failure",
			body:       `{"kind":"swap","target":1}`,
			submitErr:  errors.New("send swap: broken pipe"),
			wantStatus: http.StatusBadGateway,
			wantCode:   "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game, _, srv := setupTestBridge(t)
			game.submitErr = tt.submitErr

			resp, e := postAction(t, srv.URL, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.want, game.actions())
		})
	}
}

func TestNotFound(t *testing.T) {
	_, _, srv := setupTestBridge(t)

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(context.Background(), srv.URL+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg.Type, msg.Payload
}

func writeMsg(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(ClientMessage{Type: typ, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, data))
}

func TestWebSocket_InitialStatePingAndAction(t *testing.T) {
	game, _, srv := setupTestBridge(t)
	conn := dialWS(t, srv)

	typ, payload := readMsg(t, conn)
	require.Equal(t, "state", typ)
	var p StatePayload
	require.NoError(t, json.Unmarshal(payload, &p))
	assert.Equal(t, 2, p.PlayerID)

	writeMsg(t, conn, "ping", struct{}{})
	typ, _ = readMsg(t, conn)
	assert.Equal(t, "pong", typ)

	writeMsg(t, conn, "action", ActionRequest{Kind: "freeze", Target: 1})
	writeMsg(t, conn, "ping", struct{}{})
	typ, _ = readMsg(t, conn)
	assert.Equal(t, "pong", typ)
	assert.Equal(t, []protocol.Action{{Kind: protocol.Freeze, Target: 1}}, game.actions())
}

func TestWebSocket_Errors(t *testing.T) {
	_, _, srv := setupTestBridge(t)
	conn := dialWS(t, srv)
	readMsg(t, conn)

	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, []byte("{")))
	typ, payload := readMsg(t, conn)
	assert.Equal(t, "error", typ)
	var e ErrorMessage
	require.NoError(t, json.Unmarshal(payload, &e))
	assert.Equal(t, "INVALID_JSON", e.Code)

	writeMsg(t, conn, "create_game", struct{}{})
	typ, payload = readMsg(t, conn)
	assert.Equal(t, "error", typ)
	require.NoError(t, json.Unmarshal(payload, &e))
	assert.Equal(t, "INVALID_MESSAGE_TYPE", e.Code)

	writeMsg(t, conn, "action", ActionRequest{Kind: "dance"})
	typ, payload = readMsg(t, conn)
	assert.Equal(t, "error", typ)
	require.NoError(t, json.Unmarshal(payload, &e))
	assert.Equal(t, "INVALID_ACTION", e.Code)
}

func TestWebSocket_NoStateBeforeActive(t *testing.T) {
	game, _, srv := setupTestBridge(t)
	game.phase = session.AwaitingGameMetadata
	conn := dialWS(t, srv)

	writeMsg(t, conn, "ping", struct{}{})
	typ, _ := readMsg(t, conn)
	assert.Equal(t, "pong", typ)
}

func TestPump(t *testing.T) {
	game, b, srv := setupTestBridge(t)
	conn := dialWS(t, srv)
	readMsg(t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	sub := game.bus.Subscribe()
	go func() { done <- b.Pump(ctx, sub) }()

	game.bus.Publish(events.Event{Kind: events.Advisory, Rejected: &protocol.RejectedError{Code: protocol.PlayerFrozen}})
	typ, payload := readMsg(t, conn)
	require.Equal(t, "advisory", typ)
	var adv AdvisoryPayload
	require.NoError(t, json.Unmarshal(payload, &adv))
	assert.Equal(t, AdvisoryPayload{Code: uint64(protocol.PlayerFrozen), Message: protocol.PlayerFrozen.String()}, adv)

	ended := game.snap.Clone()
	ended.Finished = true
	ended.WinnerID = 1
	game.bus.Publish(events.Event{Kind: events.GameEnded, State: ended, Results: ended.Results()})
	typ, payload = readMsg(t, conn)
	require.Equal(t, "game_ended", typ)
	var ge GameEndedPayload
	require.NoError(t, json.Unmarshal(payload, &ge))
	assert.Equal(t, 1, ge.WinnerID)
	assert.Len(t, ge.Results, 2)

	game.bus.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "Pump did not stop after the stream closed")
	}
}

func TestMessage_SessionError(t *testing.T) {
	_, b, _ := setupTestBridge(t)

	msg := b.message(events.Event{Kind: events.SessionError, Err: errors.New("protocol violation: bad opcode")})
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, ErrorMessage{Code: "SESSION_ERROR", Message: "protocol violation: bad opcode"}, msg.Payload)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, ErrorMessage{Code: "NOT_ACTIVE", Message: "session is not active"}, errorMessage(session.ErrNotActive))
	assert.Equal(t, ErrorMessage{Code: "ERROR", Message: "read: connection reset"}, errorMessage(errors.New("read: connection reset")))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2, time.Second)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"), "limits are per connection")

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, limiter.Allow("a"), "window slid past the old requests")

	limiter.RemoveConnection("a")
	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
}

func TestConnectionManager(t *testing.T) {
	cm := NewConnectionManager()
	assert.Equal(t, 0, cm.Count())

	failed, err := cm.Broadcast(context.Background(), ServerMessage{Type: "state", Payload: struct{}{}})
	require.NoError(t, err)
	assert.Empty(t, failed)

	cm.AddConnection("a", nil)
	assert.Equal(t, 1, cm.Count())
	cm.RemoveConnection("a")
	assert.Nil(t, cm.GetConnection("a"))
}
