package session

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Open creates a store for driver ("memory", "sqlite" or "postgres") and
// runs its migration.
func Open(ctx context.Context, driver, databaseURL string, ttl time.Duration) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case "", "memory":
		st = NewMemory(ttl)
	case "sqlite":
		st, err = NewSQLite(databaseURL, ttl)
	case "postgres":
		st, err = NewPostgres(ctx, databaseURL, ttl)
	default:
		return nil, eris.Errorf("session: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	zap.L().Info("session store ready", zap.String("driver", driver), zap.Duration("ttl", ttlOrDefault(ttl)))
	return st, nil
}

// Persistent reports whether driver keeps sessions beyond the process. The
// memory driver and in-memory SQLite databases do not.
func Persistent(driver, databaseURL string) bool {
	switch driver {
	case "", "memory":
		return false
	case "sqlite":
		return !strings.Contains(databaseURL, ":memory:") && !strings.Contains(databaseURL, "mode=memory")
	}
	return true
}

// Prune deletes expired sessions every interval until ctx is done.
func Prune(ctx context.Context, st Store, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := st.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				zap.L().Warn("session: prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Debug("session: pruned expired sessions", zap.Int("count", n))
			}
		}
	}
}
