package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. Timestamps are
// stored as unix milliseconds.
type SQLiteStore struct {
	db      *sql.DB
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewSQLite opens a SQLite database at dsn.
func NewSQLite(dsn string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, ttl: ttlOrDefault(ttl), nowFunc: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS session_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	area        INTEGER NOT NULL,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	crime_cd    INTEGER,
	weapon_cd   INTEGER,
	premis_cd   INTEGER,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_session_results_session_id ON session_results(session_id, id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context) (*Session, error) {
	now := s.now()
	sess := &Session{ID: uuid.New().String(), CreatedAt: now, ExpiresAt: now.Add(s.ttl)}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, expires_at) VALUES (?, ?, ?)`,
		sess.ID, sess.CreatedAt.UnixMilli(), sess.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert session")
	}
	return sess, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var created, expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?`,
		id, s.now().UnixMilli(),
	).Scan(&created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get session %s", id)
	}

	sess := &Session{
		ID:        id,
		CreatedAt: time.UnixMilli(created).UTC(),
		ExpiresAt: time.UnixMilli(expires).UTC(),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT area, lat, lon, crime_cd, weapon_cd, premis_cd, created_at
		 FROM session_results WHERE session_id = ? ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list results %s", id)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			r                       Result
			crime, weapon, premises sql.NullInt64
			at                      int64
		)
		if err := rows.Scan(&r.Area, &r.Lat, &r.Lon, &crime, &weapon, &premises, &at); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		r.CreatedAt = time.UnixMilli(at).UTC()
		r.Codes = codesFromNull(crime, weapon, premises)
		sess.Results = append(sess.Results, r)
	}
	return sess, eris.Wrap(rows.Err(), "sqlite: iterate results")
}

func (s *SQLiteStore) Append(ctx context.Context, id string, r Result) error {
	now := s.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE id = ? AND expires_at > ?`,
		now.Add(s.ttl).UnixMilli(), id, now.UnixMilli(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch session %s", id)
	}
	if n, err := res.RowsAffected(); err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	} else if n == 0 {
		return ErrNotFound
	}

	crime, weapon, premises := codesToNull(r.Codes)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO session_results (session_id, area, lat, lon, crime_cd, weapon_cd, premis_cd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.Area, r.Lat, r.Lon, crime, weapon, premises, r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert result %s", id)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit append")
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) now() time.Time {
	return s.nowFunc().UTC().Truncate(time.Millisecond)
}

func codesToNull(c *Codes) (crime, weapon, premises sql.NullInt64) {
	if c == nil {
		return
	}
	return sql.NullInt64{Int64: int64(c.Crime), Valid: true},
		sql.NullInt64{Int64: int64(c.Weapon), Valid: true},
		sql.NullInt64{Int64: int64(c.Premises), Valid: true}
}

func codesFromNull(crime, weapon, premises sql.NullInt64) *Codes {
	if !crime.Valid {
		return nil
	}
	return &Codes{Crime: int(crime.Int64), Weapon: int(weapon.Int64), Premises: int(premises.Int64)}
}
