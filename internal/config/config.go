// Package config reads client settings from the environment. A .env file in
// the working directory is loaded first; variables already set win.
package config

import (
	"dobble-client/internal/cards"
	"dobble-client/internal/protocol"
	"dobble-client/internal/session"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Addr     string
	Username string

	NameWidth      int
	SnapshotNames  bool
	SymbolsPerCard int

	DialTimeout time.Duration
	ReadTimeout time.Duration

	MaxSwaps   int
	MaxFreezes int
	MaxRerolls int

	// HistoryDSN is the SQLite file for match history. Empty disables it.
	HistoryDSN string
	// BridgeAddr is the listen address of the local HTTP bridge. Empty
	// disables it.
	BridgeAddr string
	LogLevel   string
}

func Default() Config {
	return Config{
		Addr:           "127.0.0.1:8080",
		NameWidth:      protocol.DefaultNameWidth,
		SnapshotNames:  true,
		SymbolsPerCard: cards.DefaultSymbolsPerCard,
		DialTimeout:    5 * time.Second,
		MaxSwaps:       1,
		MaxFreezes:     1,
		MaxRerolls:     1,
		HistoryDSN:     "dobble_history.db",
		BridgeAddr:     ":8081",
		LogLevel:       "info",
	}
}

// Load reads the given env files (".env" when none are named), then the
// process environment, and validates the result.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: load %s: %w", ErrInvalid, f, err)
		}
	}

	c := Default()
	e := envReader{}

	c.Addr = e.str("DOBBLE_ADDR", c.Addr)
	c.Username = e.str("DOBBLE_USERNAME", c.Username)
	c.NameWidth = e.num("DOBBLE_NAME_WIDTH", c.NameWidth)
	c.SnapshotNames = e.flag("DOBBLE_SNAPSHOT_NAMES", c.SnapshotNames)
	c.SymbolsPerCard = e.num("DOBBLE_SYMBOLS_PER_CARD", c.SymbolsPerCard)
	c.DialTimeout = e.duration("DOBBLE_DIAL_TIMEOUT", c.DialTimeout)
	c.ReadTimeout = e.duration("DOBBLE_READ_TIMEOUT", c.ReadTimeout)
	c.MaxSwaps = e.num("DOBBLE_MAX_SWAPS", c.MaxSwaps)
	c.MaxFreezes = e.num("DOBBLE_MAX_FREEZES", c.MaxFreezes)
	c.MaxRerolls = e.num("DOBBLE_MAX_REROLLS", c.MaxRerolls)
	c.HistoryDSN = e.str("DOBBLE_HISTORY_DSN", c.HistoryDSN)
	c.BridgeAddr = e.str("DOBBLE_BRIDGE_ADDR", c.BridgeAddr)
	c.LogLevel = e.str("LOG_LEVEL", c.LogLevel)

	if e.err != nil {
		return Config{}, e.err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.NameWidth < 2 {
		errs = append(errs, fmt.Errorf("name width %d is below 2", c.NameWidth))
	}
	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	} else if len(c.Username) >= c.NameWidth {
		errs = append(errs, fmt.Errorf("username must be shorter than %d bytes", c.NameWidth))
	}
	if err := cards.ValidateSymbolsPerCard(c.SymbolsPerCard); err != nil {
		errs = append(errs, err)
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 {
		errs = append(errs, errors.New("timeouts cannot be negative"))
	}
	if c.MaxSwaps < 0 || c.MaxFreezes < 0 || c.MaxRerolls < 0 {
		errs = append(errs, errors.New("ability limits cannot be negative"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Level is the parsed LOG_LEVEL, info when unset.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c Config) Session() session.Config {
	layout := protocol.DefaultLayout()
	layout.NameWidth = c.NameWidth
	layout.SnapshotNames = c.SnapshotNames
	layout.Limits = protocol.Limits{
		Swaps:   c.MaxSwaps,
		Freezes: c.MaxFreezes,
		Rerolls: c.MaxRerolls,
	}

	return session.Config{
		Addr:        c.Addr,
		Username:    c.Username,
		Layout:      layout,
		DialTimeout: c.DialTimeout,
		ReadTimeout: c.ReadTimeout,
	}
}

// envReader keeps the first parse error so Load can read every key before
// reporting.
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s=%q: %w", ErrInvalid, key, v, err)
	}
}

func (e *envReader) str(key, def string) string {
	if _, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(os.Getenv(key))
	}
	return def
}

func (e *envReader) num(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *envReader) flag(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}
