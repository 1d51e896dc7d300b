// Package history keeps a local SQLite journal of played matches: who played,
// which actions the server rejected and how the game ended.
package history

import (
	"context"
	"database/sql"
	"dobble-client/internal/protocol"
	"dobble-client/internal/state"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("MATCH_NOT_FOUND: no such match")

type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
	StatusAborted  Status = "aborted"
)

// MatchInfo is what is known about a match once the handshake completes.
type MatchInfo struct {
	ServerAddr     string
	Username       string
	PlayerID       int
	SymbolsPerCard int
	PlayerCount    int
}

type Match struct {
	ID string
	MatchInfo
	Status     Status
	WinnerID   int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time

	Results    []state.PlayerResult
	Advisories []Advisory
}

type Advisory struct {
	Code    protocol.ReturnCode
	Message string
	At      time.Time
}

type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// Open connects to the SQLite file at dsn and applies pending migrations.
func Open(dsn string, logger zerolog.Logger) (*Store, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dsn+sep+"_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// Why one connection: SQLite allows a single writer, and a shared pool
	// would surface that as "database is locked" errors under concurrent
	// follow/cleanup writes.
	db.SetMaxOpenConns(1)

	log := logger.With().Str("component", "history").Logger()
	if err := migrate(db, log); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, log: log, now: time.Now}, nil
}

func migrate(db *sql.DB, log zerolog.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginMatch records a new active match and returns its id.
func (s *Store) BeginMatch(ctx context.Context, info MatchInfo) (string, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO matches (id, server_addr, username, player_id, symbols_per_card, player_count, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		id,
		info.ServerAddr,
		info.Username,
		info.PlayerID,
		info.SymbolsPerCard,
		info.PlayerCount,
		string(StatusActive),
		s.now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to begin match: %w", err)
	}

	s.log.Debug().Str("match_id", id).Msg("match recorded")
	return id, nil
}

func (s *Store) RecordAdvisory(ctx context.Context, matchID string, code protocol.ReturnCode) error {
	query := `INSERT INTO advisories (match_id, code, message, created_at) VALUES (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, matchID, int64(code), code.String(), s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record advisory for %s: %w", matchID, err)
	}
	return nil
}

// FinishMatch stores the final standings of g. Finishing a match twice keeps
// the first result.
// Why a transaction: the status change and the result rows must land
// together, or a crash leaves a finished match without standings.
func (s *Store) FinishMatch(ctx context.Context, matchID string, g state.GameState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE matches SET status = ?, winner_id = ?, finished_at = ? WHERE id = ? AND status = ?`,
		string(StatusFinished), g.WinnerID, s.now().UTC(), matchID, string(StatusActive),
	)
	if err != nil {
		return fmt.Errorf("failed to finish match %s: %w", matchID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finish result: %w", err)
	}
	if n == 0 {
		// Already ended or unknown. The check runs inside tx because the
		// pool has a single connection and tx is holding it.
		return exists(ctx, tx, matchID)
	}

	for _, r := range g.Results() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO match_results (match_id, player_id, name, hand_count, rank) VALUES (?, ?, ?, ?, ?)`,
			matchID, r.PlayerID, r.Name, r.HandCount, r.Rank,
		)
		if err != nil {
			return fmt.Errorf("failed to save result for player %d: %w", r.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match %s: %w", matchID, err)
	}
	return nil
}

// AbortMatch marks an active match as ended by a session failure.
func (s *Store) AbortMatch(ctx context.Context, matchID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE matches SET status = ?, error = ?, finished_at = ? WHERE id = ? AND status = ?`,
		string(StatusAborted), msg, s.now().UTC(), matchID, string(StatusActive),
	)
	if err != nil {
		return fmt.Errorf("failed to abort match %s: %w", matchID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return exists(ctx, s.db, matchID)
	}
	return nil
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q rowQuerier, matchID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM matches WHERE id = ?`, matchID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) LoadMatch(ctx context.Context, matchID string) (*Match, error) {
	query := `
		SELECT id, server_addr, username, player_id, symbols_per_card, player_count,
		       status, winner_id, error, started_at, finished_at
		FROM matches WHERE id = ?
	`
	m, err := scanMatch(s.db.QueryRowContext(ctx, query, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}

	if m.Results, err = s.results(ctx, matchID); err != nil {
		return nil, err
	}
	if m.Advisories, err = s.advisories(ctx, matchID); err != nil {
		return nil, err
	}
	return m, nil
}

// RecentMatches lists the newest matches first, without results or
// advisories.
func (s *Store) RecentMatches(ctx context.Context, limit int) ([]Match, error) {
	query := `
		SELECT id, server_addr, username, player_id, symbols_per_card, player_count,
		       status, winner_id, error, started_at, finished_at
		FROM matches
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

// CleanupOldMatches deletes ended matches that started before now minus
// olderThan. Active matches are kept.
// Why keep active ones: a long session still writes advisories to its row.
func (s *Store) CleanupOldMatches(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan).UTC()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM matches WHERE status != ? AND started_at < ?`,
		string(StatusActive), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old matches: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check cleanup result: %w", err)
	}
	return int(n), nil
}

func (s *Store) results(ctx context.Context, matchID string) ([]state.PlayerResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, name, hand_count, rank FROM match_results WHERE match_id = ? ORDER BY rank, player_id`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []state.PlayerResult
	for rows.Next() {
		var r state.PlayerResult
		if err := rows.Scan(&r.PlayerID, &r.Name, &r.HandCount, &r.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) advisories(ctx context.Context, matchID string) ([]Advisory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, message, created_at FROM advisories WHERE match_id = ? ORDER BY id`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query advisories: %w", err)
	}
	defer rows.Close()

	var out []Advisory
	for rows.Next() {
		var a Advisory
		var code int64
		if err := rows.Scan(&code, &a.Message, &a.At); err != nil {
			return nil, fmt.Errorf("failed to scan advisory row: %w", err)
		}
		a.Code = protocol.ReturnCode(code)
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*Match, error) {
	var m Match
	var status string
	var finished sql.NullTime
	err := row.Scan(
		&m.ID,
		&m.ServerAddr,
		&m.Username,
		&m.PlayerID,
		&m.SymbolsPerCard,
		&m.PlayerCount,
		&status,
		&m.WinnerID,
		&m.Error,
		&m.StartedAt,
		&finished,
	)
	if err != nil {
		return nil, err
	}
	m.Status = Status(status)
	if finished.Valid {
		m.FinishedAt = finished.Time
	}
	return &m, nil
}

type gooseLogger struct {
	log zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
