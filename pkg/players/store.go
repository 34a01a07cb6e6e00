package players

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// StoreConfig holds configuration for the SQLite-backed player store.
type StoreConfig struct {
	// Path to the database file. Use ":memory:" for an in-memory database;
	// each store opened on ":memory:" gets its own private database.
	Path string
	// BusyTimeout bounds how long a write waits on a locked database.
	BusyTimeout time.Duration
}

// Store is a player table in an embedded SQLite database. It satisfies
// source.RecordSource[string, Player]: a fetch of an absent player reports
// found=false rather than an error, which is what presence tracking needs
// to distinguish "gone" from "fetch failed".
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// pragma represents a SQLite pragma setting applied through the DSN.
type pragma struct {
	name  string
	value string
}

// memoryPragmas are optimized for in-memory databases.
var memoryPragmas = []pragma{
	{name: "foreign_keys", value: "ON"},
	{name: "journal_mode", value: "MEMORY"},
	{name: "synchronous", value: "OFF"},
}

// persistentPragmas are optimized for durable on-disk databases.
var persistentPragmas = []pragma{
	{name: "foreign_keys", value: "ON"},
	{name: "journal_mode", value: "WAL"},
	{name: "synchronous", value: "NORMAL"},
}

// buildDSN constructs a DSN for modernc.org/sqlite.
// modernc uses the syntax: file:path?_pragma=name(value)&_pragma=name2(value2)
func buildDSN(cfg StoreConfig) string {
	var sb strings.Builder

	pragmas := persistentPragmas
	if cfg.Path == ":memory:" {
		// A uuid-named memory database keeps concurrently-open stores
		// isolated while still sharing pages across pooled connections.
		fmt.Fprintf(&sb, "file:%s?mode=memory&cache=shared", uuid.NewString())
		pragmas = memoryPragmas
	} else {
		sb.WriteString("file:")
		sb.WriteString(cfg.Path)
		sb.WriteString("?")
	}

	for i, p := range pragmas {
		if cfg.Path == ":memory:" || i > 0 {
			sb.WriteString("&")
		}
		fmt.Fprintf(&sb, "_pragma=%s(%s)", p.name, p.value)
	}
	fmt.Fprintf(&sb, "&_pragma=busy_timeout(%d)", cfg.BusyTimeout.Milliseconds())

	return sb.String()
}

const schema = `
CREATE TABLE IF NOT EXISTS players (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    score      INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);`

// NewStore opens (creating if necessary) the player table at the configured
// path and verifies connectivity before returning.
func NewStore(ctx context.Context, cfg StoreConfig, logger zerolog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path cannot be empty")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create player schema: %w", err)
	}

	logger.Info().Str("path", cfg.Path).Msg("Player store opened.")

	return &Store{
		db:     db,
		logger: logger.With().Str("component", "PlayerStore").Logger(),
	}, nil
}

// Create inserts a new player. It fails if the ID is already taken.
func (s *Store) Create(ctx context.Context, p Player) error {
	if p.ID == "" {
		return errors.New("player ID cannot be empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, score, updated_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Score, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create player %s: %w", p.ID, err)
	}
	return nil
}

// Fetch retrieves a player by ID. An absent row is an authoritative miss.
func (s *Store) Fetch(ctx context.Context, id string) (Player, bool, error) {
	var p Player
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, score, updated_at FROM players WHERE id = ?`, id)
	if err := row.Scan(&p.ID, &p.Name, &p.Score, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Player{}, false, nil
		}
		return Player{}, false, fmt.Errorf("failed to fetch player %s: %w", id, err)
	}
	return p, true, nil
}

// UpdateScore sets a player's score.
func (s *Store) UpdateScore(ctx context.Context, id string, score int64) error {
	return s.update(ctx, id, `UPDATE players SET score = ?, updated_at = ? WHERE id = ?`, score)
}

// Rename sets a player's name.
func (s *Store) Rename(ctx context.Context, id string, name string) error {
	return s.update(ctx, id, `UPDATE players SET name = ?, updated_at = ? WHERE id = ?`, name)
}

// ErrNotFound is returned by mutations that target an absent player.
var ErrNotFound = errors.New("player not found")

func (s *Store) update(ctx context.Context, id string, query string, arg any) error {
	res, err := s.db.ExecContext(ctx, query, arg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update player %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for player %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update player %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a player. Deleting an absent player is not an error, so the
// operation is idempotent for observers.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete player %s: %w", id, err)
	}
	return nil
}

// List returns all players ordered by ID.
func (s *Store) List(ctx context.Context) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, score, updated_at FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Score, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate player rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	s.logger.Info().Msg("Closing player store...")
	return s.db.Close()
}
