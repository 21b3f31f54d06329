package scrobbler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/w4/dobble/internal/music"

	_ "modernc.org/sqlite"
)

// Spool mirrors the retry queue to SQLite so pending scrobbles survive a
// restart. The in-memory Queue stays authoritative while running.
type Spool struct {
	db *sql.DB
}

// OpenSpool opens (or creates) the spool database at path. Use ":memory:"
// for a throwaway spool.
func OpenSpool(path string) (*Spool, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spool: %w", err)
	}

	// One connection keeps :memory: databases consistent across calls.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS pending (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist TEXT NOT NULL,
			title TEXT NOT NULL,
			album TEXT,
			playing_for INTEGER NOT NULL,
			started_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Spool{db: db}, nil
}

// Close closes the database connection
func (s *Spool) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Add appends a track to the spool.
func (s *Spool) Add(ctx context.Context, track music.Track) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending (artist, title, album, playing_for, started_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		track.Artist,
		track.Title,
		track.Album,
		int64(track.PlayingFor/time.Millisecond),
		track.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pending scrobble: %w", err)
	}
	return nil
}

// Pending returns every spooled track in insertion order.
func (s *Spool) Pending(ctx context.Context) ([]music.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT artist, title, album, playing_for, started_at
		FROM pending
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending scrobbles: %w", err)
	}
	defer rows.Close()

	var tracks []music.Track
	for rows.Next() {
		var (
			t          music.Track
			album      sql.NullString
			playingFor int64
			startedAt  int64
		)
		if err := rows.Scan(&t.Artist, &t.Title, &album, &playingFor, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending scrobble: %w", err)
		}
		t.Album = album.String
		t.PlayingFor = time.Duration(playingFor) * time.Millisecond
		t.StartedAt = time.Unix(startedAt, 0)
		t.Scrobbled = true
		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending scrobbles: %w", err)
	}

	return tracks, nil
}

// Clear removes every spooled track.
func (s *Spool) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending`); err != nil {
		return fmt.Errorf("failed to clear pending scrobbles: %w", err)
	}
	return nil
}
