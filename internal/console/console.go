// Package console is the terminal front end: it turns typed commands into
// actions and prints session events.
package console

import (
	"bufio"
	"context"
	"dobble-client/internal/events"
	"dobble-client/internal/protocol"
	"dobble-client/internal/session"
	"dobble-client/internal/state"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

type Game interface {
	Params() session.Params
	Snapshot() state.GameState
	Submit(ctx context.Context, a protocol.Action) error
	Finish() error
}

type Console struct {
	game Game
	log  zerolog.Logger

	mu  sync.Mutex
	out io.Writer
}

func New(game Game, out io.Writer, logger zerolog.Logger) *Console {
	return &Console{
		game: game,
		out:  out,
		log:  logger.With().Str("component", "console").Logger(),
	}
}

// Run executes commands read from in until quit, end of input or ctx is
// done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	var scanErr error
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr = sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return scanErr
			}
			if line == "" {
				continue
			}
			if quit := c.Execute(ctx, line); quit {
				return nil
			}
		}
	}
}

// Execute runs one command line and reports whether the user quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	cmd, err := ParseCommand(line)
	if err != nil {
		c.printf("error: %v\n", err)
		return false
	}

	switch cmd.Kind {
	case CmdHelp:
		c.printf("%s\n", Help)
	case CmdState:
		c.printf("%s", Render(c.game.Snapshot(), c.game.Params().PlayerID))
	case CmdQuit:
		if err := c.game.Finish(); err != nil {
			c.log.Warn().Err(err).Msg("finish")
		}
		return true
	case CmdAction:
		a := cmd.Action
		if a.Kind == protocol.Reroll {
			a.Target = c.game.Params().PlayerID
		}
		if err := c.game.Submit(ctx, a); err != nil {
			c.printf("error: %v\n", err)
		}
	}
	return false
}

// Watch prints session events until the stream closes or ctx is done.
func (c *Console) Watch(ctx context.Context, sub *events.Subscription) error {
	defer sub.Cancel()

	myID := c.game.Params().PlayerID
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-sub.C():
			if !ok {
				return nil
			}
			switch e.Kind {
			case events.StateChanged:
				c.printf("\n%s", Render(e.State, myID))
			case events.Advisory:
				if e.Rejected != nil {
					c.printf("rejected: %s\n", e.Rejected.Code)
				}
			case events.GameEnded:
				c.printf("\n%s", RenderResults(e.State))
			case events.SessionError:
				c.printf("connection lost: %v\n", e.Err)
			}
		}
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
