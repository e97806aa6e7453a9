package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the store. pgxmock's pool
// interface satisfies it, so tests can run without a server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS entries (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	link                TEXT NOT NULL UNIQUE,
	title               TEXT NOT NULL,
	source_name         TEXT,
	source_type         TEXT,
	published           TEXT,
	priority            TEXT NOT NULL,
	final_priority      TEXT,
	topics              JSONB NOT NULL DEFAULT '[]',
	quality_grade       TEXT,
	overall_quality     DOUBLE PRECISION NOT NULL DEFAULT 0,
	verification_status TEXT,
	priority_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
	processing_method   TEXT,
	payload             JSONB NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_entries_final_priority ON entries(final_priority);
CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, e *model.ProcessedEntry) (bool, error) {
	payload, topics, err := encodeEntry(e)
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO entries (
			link, title, source_name, source_type, published,
			priority, final_priority, topics, quality_grade, overall_quality,
			verification_status, priority_score, processing_method, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (link) DO NOTHING`,
		e.Link, e.Title, e.SourceName, e.SourceType, e.Published,
		string(e.Priority), string(e.FinalPriority), topics, string(e.QualityGrade), e.OverallQuality,
		string(e.VerificationStatus), e.PriorityScore, string(e.ProcessingMethod), payload,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert entry")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Exists(ctx context.Context, link string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM entries WHERE link = $1)`, link,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "postgres: exists")
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context, filter EntryFilter) ([]model.ProcessedEntry, error) {
	query := `SELECT payload FROM entries WHERE 1=1`
	var args []any

	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		query += ` AND final_priority = $` + strconv.Itoa(len(args))
	}
	if filter.Topic != "" {
		args = append(args, filter.Topic)
		query += ` AND topics @> jsonb_build_array($` + strconv.Itoa(len(args)) + `::text)`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entries")
	}
	defer rows.Close()

	var entries []model.ProcessedEntry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		var e model.ProcessedEntry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list entries iterate")
}
