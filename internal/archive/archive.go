// Package archive stores exported listening history in SQLite.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jfmyers9/replay/pkg/lastfm"
	_ "modernc.org/sqlite"
)

// Archive is a local SQLite copy of a user's listening history
type Archive struct {
	db *sql.DB
}

// Play is a stored history record
type Play struct {
	ID        int64
	PlayedAt  time.Time
	Artist    string
	ArtistURL string
	Name      string
	Album     string
	URL       string
	Image     string
}

// Track converts p back into a history record. The stored image becomes
// the extra large size.
func (p Play) Track() lastfm.RecordedTrack {
	t := lastfm.RecordedTrack{
		Artist:   lastfm.Artist{Name: p.Artist, URL: p.ArtistURL},
		Name:     p.Name,
		Album:    p.Album,
		URL:      p.URL,
		PlayedAt: p.PlayedAt,
	}
	if p.Image != "" {
		image := p.Image
		t.Image.ExtraLarge = &image
	}
	return t
}

// Open opens or creates an archive at dbPath
func Open(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps in-memory databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000", // Wait up to 10 seconds on lock
		"PRAGMA synchronous = NORMAL", // Balance between safety and performance
		"PRAGMA journal_mode = WAL",   // Write-Ahead Logging for concurrent readers
		"PRAGMA temp_store = MEMORY",  // Use memory for temp tables
		"PRAGMA cache_size = -64000",  // 64MB cache
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	// A play is identified by when it happened and what it was
	schema := `
		CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			played_at INTEGER NOT NULL,
			artist TEXT NOT NULL,
			artist_url TEXT,
			name TEXT NOT NULL,
			album TEXT,
			url TEXT,
			image TEXT,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			UNIQUE (played_at, artist, name)
		);

		CREATE INDEX IF NOT EXISTS idx_played_at ON plays(played_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

const insertPlay = `
	INSERT OR IGNORE INTO plays (played_at, artist, artist_url, name, album, url, image)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

func playArgs(t lastfm.RecordedTrack) []any {
	image, _ := t.Image.Largest()
	return []any{
		t.PlayedAt.Unix(),
		t.Artist.Name,
		t.Artist.URL,
		t.Name,
		t.Album,
		t.URL,
		image,
	}
}

// AddBatch stores records in a single transaction and returns how many were
// new.
func (a *Archive) AddBatch(ctx context.Context, tracks []lastfm.RecordedTrack) (int, error) {
	if len(tracks) == 0 {
		return 0, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertPlay)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, t := range tracks {
		result, err := stmt.ExecContext(ctx, playArgs(t)...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert play %q at %d: %w", t.Name, t.PlayedAt.Unix(), err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		added += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return added, nil
}

// Count returns the number of stored plays
func (a *Archive) Count(ctx context.Context) (int, error) {
	var count int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plays").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}

// Latest returns the time of the newest stored play. It reports false if
// the archive is empty.
func (a *Archive) Latest(ctx context.Context) (time.Time, bool, error) {
	var ts sql.NullInt64
	err := a.db.QueryRowContext(ctx, "SELECT MAX(played_at) FROM plays").Scan(&ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest play: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), true, nil
}

// Recent returns up to limit plays, newest first. A limit of 0 returns all.
func (a *Archive) Recent(ctx context.Context, limit int) ([]Play, error) {
	query := `
		SELECT id, played_at, artist, COALESCE(artist_url, ''), name,
		       COALESCE(album, ''), COALESCE(url, ''), COALESCE(image, '')
		FROM plays
		ORDER BY played_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var p Play
		var playedAt int64
		if err := rows.Scan(&p.ID, &playedAt, &p.Artist, &p.ArtistURL, &p.Name, &p.Album, &p.URL, &p.Image); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		p.PlayedAt = time.Unix(playedAt, 0).UTC()
		plays = append(plays, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plays: %w", err)
	}

	return plays, nil
}

// ErrNoPlays is returned by Oldest when the archive is empty.
var ErrNoPlays = errors.New("archive: no plays stored")

// Oldest returns the oldest stored play.
func (a *Archive) Oldest(ctx context.Context) (Play, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, played_at, artist, COALESCE(artist_url, ''), name,
		       COALESCE(album, ''), COALESCE(url, ''), COALESCE(image, '')
		FROM plays
		ORDER BY played_at ASC, id ASC
		LIMIT 1
	`)

	var p Play
	var playedAt int64
	err := row.Scan(&p.ID, &playedAt, &p.Artist, &p.ArtistURL, &p.Name, &p.Album, &p.URL, &p.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return Play{}, ErrNoPlays
	}
	if err != nil {
		return Play{}, fmt.Errorf("failed to query oldest play: %w", err)
	}
	p.PlayedAt = time.Unix(playedAt, 0).UTC()
	return p, nil
}
