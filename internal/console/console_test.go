package console

import (
	"bytes"
	"context"
	"dobble-client/internal/cards"
	"dobble-client/internal/events"
	"dobble-client/internal/protocol"
	"dobble-client/internal/session"
	"dobble-client/internal/state"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr bool
	}{
		{line: "play 7", want: Command{Kind: CmdAction, Action: protocol.Action{Kind: protocol.PlayCard, Target: 7}}},
		{line: "  P 0 ", want: Command{Kind: CmdAction, Action: protocol.Action{Kind: protocol.PlayCard, Target: 0}}},
		{line: "swap 3", want: Command{Kind: CmdAction, Action: protocol.Action{Kind: protocol.Swap, Target: 3}}},
		{line: "freeze 1", want: Command{Kind: CmdAction, Action: protocol.Action{Kind: protocol.Freeze, Target: 1}}},
		{line: "reroll", want: Command{Kind: CmdAction, Action: protocol.Action{Kind: protocol.Reroll}}},
		{line: "state", want: Command{Kind: CmdState}},
		{line: "help", want: Command{Kind: CmdHelp}},
		{line: "QUIT", want: Command{Kind: CmdQuit}},
		{line: "", wantErr: true},
		{line: "dance", wantErr: true},
		{line: "play", wantErr: true},
		{line: "play x", wantErr: true},
		{line: "play -2", wantErr: true},
		{line: "swap 1 2", wantErr: true},
		{line: "reroll 2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func testGame() state.GameState {
	g := state.Empty()
	g.TopCard = cards.Card{0, 1, 2}
	g.Players = []state.PlayerState{
		{ID: 1, Name: "ann", Hand: cards.Card{0, 3, 4}, HandCount: 5, Abilities: state.Abilities{SwapsLeft: 1}},
		{ID: 2, Name: "bo", Hand: cards.Card{1, 3, 5}, HandCount: 3, Abilities: state.Abilities{FreezeCooldown: 2}, FrozenTurns: 1},
	}
	return g
}

func TestRender(t *testing.T) {
	out := Render(testGame(), 2)

	assert.Contains(t, out, "top card:  [0 1 2]")
	assert.Contains(t, out, "your card: [1 3 5]")
	assert.Contains(t, out, "match:     1")
	assert.Contains(t, out, "0 (cd 2)")
	assert.NotContains(t, out, "game over")

	lines := strings.Split(out, "\n")
	var mine string
	for _, l := range lines {
		if strings.HasPrefix(l, "*") {
			mine = l
		}
	}
	assert.Contains(t, mine, "bo")
}

func TestRenderResults(t *testing.T) {
	g := testGame()
	g.Finished = true
	g.WinnerID = g.Winner()

	out := Render(g, 1)
	assert.Contains(t, out, "game over: bo (2) wins")
	assert.Contains(t, out, "1. bo (2) 3 cards")
	assert.Contains(t, out, "2. ann (1) 5 cards")

	g.WinnerID = state.NoWinner
	assert.Contains(t, RenderResults(g), "no single winner")
}

type fakeGame struct {
	mu        sync.Mutex
	submitted []protocol.Action
	finished  int
	submitErr error
}

func (f *fakeGame) Params() session.Params    { return session.Params{PlayerID: 2} }
func (f *fakeGame) Snapshot() state.GameState { return testGame() }

func (f *fakeGame) Submit(ctx context.Context, a protocol.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, a)
	return f.submitErr
}

func (f *fakeGame) Finish() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished++
	return nil
}

func TestConsole_Run(t *testing.T) {
	game := &fakeGame{}
	var out bytes.Buffer
	c := New(game, &out, zerolog.Nop())

	in := strings.NewReader("play 3\n\nreroll\nbogus\nstate\nquit\nplay 4\n")
	require.NoError(t, c.Run(context.Background(), in))

	assert.Equal(t, []protocol.Action{
		{Kind: protocol.PlayCard, Target: 3},
		{Kind: protocol.Reroll, Target: 2},
	}, game.submitted)
	assert.Equal(t, 1, game.finished)
	assert.Contains(t, out.String(), `error: unknown command "bogus"`)
	assert.Contains(t, out.String(), "top card:")
}

func TestConsole_RunEndOfInput(t *testing.T) {
	game := &fakeGame{submitErr: session.ErrNotActive}
	var out bytes.Buffer
	c := New(game, &out, zerolog.Nop())

	require.NoError(t, c.Run(context.Background(), strings.NewReader("swap 1")))
	assert.Equal(t, 0, game.finished)
	assert.Contains(t, out.String(), "NOT_ACTIVE")
}

func TestConsole_Watch(t *testing.T) {
	game := &fakeGame{}
	var out syncBuffer
	c := New(game, &out, zerolog.Nop())

	bus := events.NewBus()
	sub := bus.Subscribe()

	done := make(chan error, 1)
	go func() { done <- c.Watch(context.Background(), sub) }()

	ended := testGame()
	ended.Finished = true
	ended.WinnerID = 2
	bus.Publish(events.Event{Kind: events.StateChanged, State: testGame()})
	bus.Publish(events.Event{Kind: events.Advisory, Rejected: &protocol.RejectedError{Code: protocol.PlayerFrozen}})
	bus.Publish(events.Event{Kind: events.GameEnded, State: ended})
	bus.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "Watch did not stop")
	}

	s := out.String()
	assert.Contains(t, s, "top card:")
	assert.Contains(t, s, "rejected: "+protocol.PlayerFrozen.String())
	assert.Contains(t, s, "game over: bo (2) wins")
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
