package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/intake-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS entries (
	id                  TEXT PRIMARY KEY,
	link                TEXT NOT NULL UNIQUE,
	title               TEXT NOT NULL,
	source_name         TEXT,
	source_type         TEXT,
	published           TEXT,
	priority            TEXT NOT NULL,
	final_priority      TEXT,
	topics              TEXT NOT NULL DEFAULT '[]',
	quality_grade       TEXT,
	overall_quality     REAL NOT NULL DEFAULT 0,
	verification_status TEXT,
	priority_score      REAL NOT NULL DEFAULT 0,
	processing_method   TEXT,
	payload             TEXT NOT NULL,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_entries_final_priority ON entries(final_priority);
CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, e *model.ProcessedEntry) (bool, error) {
	payload, topics, err := encodeEntry(e)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (
			id, link, title, source_name, source_type, published,
			priority, final_priority, topics, quality_grade, overall_quality,
			verification_status, priority_score, processing_method, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO NOTHING`,
		uuid.New().String(), e.Link, e.Title, e.SourceName, e.SourceType, e.Published,
		string(e.Priority), string(e.FinalPriority), topics, string(e.QualityGrade), e.OverallQuality,
		string(e.VerificationStatus), e.PriorityScore, string(e.ProcessingMethod), payload,
		time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert entry")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, link string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM entries WHERE link = ? LIMIT 1`, link,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "sqlite: exists")
	}
	return true, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter EntryFilter) ([]model.ProcessedEntry, error) {
	query := `SELECT payload FROM entries WHERE 1=1`
	var args []any

	if filter.Priority != "" {
		query += ` AND final_priority = ?`
		args = append(args, string(filter.Priority))
	}
	if filter.Topic != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(entries.topics) WHERE json_each.value = ?)`
		args = append(args, filter.Topic)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entries")
	}
	defer rows.Close()

	var entries []model.ProcessedEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		var e model.ProcessedEntry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list entries iterate")
}

// encodeEntry marshals the full entry and its topics for storage.
func encodeEntry(e *model.ProcessedEntry) (payload, topics string, err error) {
	p, err := json.Marshal(e)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal entry")
	}
	ts := e.Topics
	if ts == nil {
		ts = []string{}
	}
	t, err := json.Marshal(ts)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal topics")
	}
	return string(p), string(t), nil
}
