// Package querylog keeps an append-only record of catalog operations
// in sqlite, so unattended batch runs leave an auditable trail of
// what was asked, what came back and which strategy produced it.
package querylog

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"grazopac-backend/lib/scrapers/webopac"
)

const schema = `
CREATE TABLE IF NOT EXISTS query_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time INTEGER NOT NULL,
	text TEXT NOT NULL,
	kind TEXT NOT NULL,
	hits INTEGER NOT NULL,
	from_cache INTEGER NOT NULL,
	fallback INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_query_log_time ON query_log(time);
`

type Entry struct {
	Time      time.Time
	Text      string
	Kind      webopac.QueryKind
	Hits      int
	FromCache bool
	Fallback  bool
	Duration  time.Duration
	Error     string
}

// FromResult builds the log entry for a finished search. err may be
// nil; a failed search records the error text with zero hits.
func FromResult(q webopac.Query, result webopac.ResultSet, err error) Entry {
	entry := Entry{
		Time: time.Now(),
		Text: q.Text,
		Kind: q.Kind,
	}
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.Hits = result.TotalHits
	entry.FromCache = result.FromCache
	entry.Fallback = result.Fallback
	entry.Duration = result.FetchDuration
	return entry
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the log database at path. ":memory:" gives
// an ephemeral store.
func Open(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	return NewStore(db)
}

func NewStore(db *sql.DB) (Store, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return Store{}, err
	}
	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) Record(ctx context.Context, entry Entry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (time, text, kind, hits, from_cache, fallback, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Time.Unix(),
		entry.Text,
		string(entry.Kind),
		entry.Hits,
		entry.FromCache,
		entry.Fallback,
		entry.Duration.Milliseconds(),
		entry.Error,
	)
	return err
}

// Recent returns the newest entries, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, text, kind, hits, from_cache, fallback, duration_ms, error
		FROM query_log ORDER BY time DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var unix, durationMs int64
		var kind string
		err := rows.Scan(&unix, &entry.Text, &kind, &entry.Hits,
			&entry.FromCache, &entry.Fallback, &durationMs, &entry.Error)
		if err != nil {
			return nil, err
		}
		entry.Time = time.Unix(unix, 0)
		entry.Kind = webopac.QueryKind(kind)
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
