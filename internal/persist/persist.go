// Package persist implements the games/moves embedded relational store,
// spec.md §6, over database/sql with the mattn/go-sqlite3 driver.
package persist

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vincent99/chessboard/internal/chesscore"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	ended_at    INTEGER,
	white       TEXT NOT NULL,
	black       TEXT NOT NULL,
	result      TEXT,
	reason      TEXT,
	source      TEXT NOT NULL,
	opening_fen TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS moves (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id   TEXT NOT NULL REFERENCES games(id),
	ply       INTEGER NOT NULL,
	uci       TEXT NOT NULL,
	san       TEXT NOT NULL,
	fen_after TEXT NOT NULL,
	UNIQUE(game_id, ply)
);

CREATE INDEX IF NOT EXISTS moves_by_game_ply ON moves(game_id, ply);
`

// Store is the single-writer SQLite-backed persistence layer. Its pool is
// limited to one connection, so reads and writes are serialized through
// it whichever goroutine issues them.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and
// applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}
	// A single physical connection avoids SQLITE_BUSY; readers wait for
	// it like writers do.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// StartGame inserts a new unterminated game record. It returns an error
// if an unterminated game already exists, enforcing the single
// unterminated game invariant (spec.md §8).
func (s *Store) StartGame(id string, startedAt time.Time, white, black, source, openingFEN string) error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM games WHERE ended_at IS NULL`).Scan(&count); err != nil {
		return fmt.Errorf("persist: check unterminated games: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("persist: an unterminated game already exists")
	}
	_, err := s.db.Exec(
		`INSERT INTO games (id, started_at, white, black, source, opening_fen) VALUES (?, ?, ?, ?, ?, ?)`,
		id, startedAt.Unix(), white, black, source, openingFEN,
	)
	if err != nil {
		return fmt.Errorf("persist: insert game: %w", err)
	}
	return nil
}

// RecordMove appends one move atomically with the ply it lands at and
// the resulting position; implements the game.Persister interface. The
// san column receives the same UCI text as the uci column; no SAN is
// computed.
func (s *Store) RecordMove(gameID string, ply int, m chesscore.Move, fenAfter string) error {
	_, err := s.db.Exec(
		`INSERT INTO moves (game_id, ply, uci, san, fen_after) VALUES (?, ?, ?, ?, ?)`,
		gameID, ply, m.UCI(), m.UCI(), fenAfter,
	)
	if err != nil {
		return fmt.Errorf("persist: record move: %w", err)
	}
	return nil
}

// RecordResult marks a game terminated; implements game.Persister.
func (s *Store) RecordResult(gameID string, result chesscore.Outcome, reason chesscore.TerminationReason) error {
	res, err := s.db.Exec(
		`UPDATE games SET ended_at = ?, result = ?, reason = ? WHERE id = ? AND ended_at IS NULL`,
		time.Now().Unix(), string(result), string(reason), gameID,
	)
	if err != nil {
		return fmt.Errorf("persist: record result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("persist: record result rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("persist: no unterminated game %q to terminate", gameID)
	}
	return nil
}

// GameRecord is one row of games, used by UnterminatedGame to resume.
type GameRecord struct {
	ID         string
	StartedAt  time.Time
	White      string
	Black      string
	Source     string
	OpeningFEN string
}

// UnterminatedGame returns the single open game record, if any, for
// resume-on-boot (spec.md §4.L).
func (s *Store) UnterminatedGame() (*GameRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, white, black, source, opening_fen FROM games WHERE ended_at IS NULL LIMIT 1`,
	)
	var rec GameRecord
	var startedAt int64
	if err := row.Scan(&rec.ID, &startedAt, &rec.White, &rec.Black, &rec.Source, &rec.OpeningFEN); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: query unterminated game: %w", err)
	}
	rec.StartedAt = time.Unix(startedAt, 0)
	return &rec, nil
}

// MoveRecord is one row of moves.
type MoveRecord struct {
	Ply      int
	UCI      string
	SAN      string
	FENAfter string
}

// MovesForGame returns every move of a game, ordered by ply, for
// resuming an in-progress game or reviewing a finished one.
func (s *Store) MovesForGame(gameID string) ([]MoveRecord, error) {
	rows, err := s.db.Query(
		`SELECT ply, uci, san, fen_after FROM moves WHERE game_id = ? ORDER BY ply ASC`, gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("persist: query moves: %w", err)
	}
	defer rows.Close()

	var out []MoveRecord
	for rows.Next() {
		var m MoveRecord
		if err := rows.Scan(&m.Ply, &m.UCI, &m.SAN, &m.FENAfter); err != nil {
			return nil, fmt.Errorf("persist: scan move: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
