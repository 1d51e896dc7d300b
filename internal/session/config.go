package session

import (
	"dobble-client/internal/protocol"
	"dobble-client/internal/wire"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotActive = errors.New("NOT_ACTIVE: session is not active")
	ErrFinished  = errors.New("FINISHED: session has finished")
)

type Config struct {
	Addr        string
	Username    string
	Layout      protocol.Layout
	DialTimeout time.Duration
	// ReadTimeout bounds each incoming frame once the session is active.
	// Zero waits forever.
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Layout.NameWidth == 0 {
		c.Layout.NameWidth = protocol.DefaultNameWidth
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	return c
}

func (c Config) Validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Layout.NameWidth < 1 {
		return fmt.Errorf("name width %d is too small", c.Layout.NameWidth)
	}
	return nil
}

// Params are the values negotiated during the handshake. They do not change
// for the rest of the session.
type Params struct {
	Framing        wire.Framing
	SymbolsPerCard int
	PlayerID       int
	PlayerCount    int
}
