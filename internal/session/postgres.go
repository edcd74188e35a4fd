package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, ttl time.Duration) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return newPostgresWithPool(pool, ttl), nil
}

func newPostgresWithPool(pool Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, ttl: ttlOrDefault(ttl), nowFunc: time.Now}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_results (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	area        INTEGER NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	crime_cd    INTEGER,
	weapon_cd   INTEGER,
	premis_cd   INTEGER,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_session_results_session_id ON session_results(session_id, id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Create(ctx context.Context) (*Session, error) {
	now := s.nowFunc().UTC()
	sess := &Session{ID: uuid.New().String(), CreatedAt: now, ExpiresAt: now.Add(s.ttl)}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, created_at, expires_at) VALUES ($1, $2, $3)`,
		sess.ID, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert session")
	}
	return sess, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	sess := &Session{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT created_at, expires_at FROM sessions WHERE id = $1 AND expires_at > $2`,
		id, s.nowFunc().UTC(),
	).Scan(&sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get session %s", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT area, lat, lon, crime_cd, weapon_cd, premis_cd, created_at
		 FROM session_results WHERE session_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list results %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r                       Result
			crime, weapon, premises sql.NullInt64
		)
		if err := rows.Scan(&r.Area, &r.Lat, &r.Lon, &crime, &weapon, &premises, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		r.Codes = codesFromNull(crime, weapon, premises)
		sess.Results = append(sess.Results, r)
	}
	return sess, eris.Wrap(rows.Err(), "postgres: iterate results")
}

// Append touches the session and inserts the result in one statement.
func (s *PostgresStore) Append(ctx context.Context, id string, r Result) error {
	now := s.nowFunc().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	crime, weapon, premises := codesToNull(r.Codes)

	tag, err := s.pool.Exec(ctx,
		`WITH touched AS (
			UPDATE sessions SET expires_at = $1 WHERE id = $2 AND expires_at > $3 RETURNING id
		)
		INSERT INTO session_results (session_id, area, lat, lon, crime_cd, weapon_cd, premis_cd, created_at)
		SELECT id, $4, $5, $6, $7, $8, $9, $10 FROM touched`,
		now.Add(s.ttl), id, now,
		r.Area, r.Lat, r.Lon, crime, weapon, premises, r.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: append result %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.nowFunc().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired sessions")
	}
	return int(tag.RowsAffected()), nil
}
