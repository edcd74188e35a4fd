// Package session keeps each visitor's prediction results for the lifetime
// of their session.
package session

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = eris.New("session not found")

// Codes are the inputs recorded with a result in the labeled variant.
type Codes struct {
	Crime    int `json:"crime"`
	Weapon   int `json:"weapon"`
	Premises int `json:"premises"`
}

// Result is one resolved prediction.
type Result struct {
	Area      int       `json:"area"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Codes     *Codes    `json:"codes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one visitor's ordered result list.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Results   []Result  `json:"results"`
}

// Store persists sessions. Results come back in append order and are never
// modified after Append.
type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	// Append adds a result and extends the session's expiry.
	Append(ctx context.Context, id string, r Result) error
	DeleteExpired(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// DefaultTTL applies when a store is created with a non-positive TTL.
const DefaultTTL = 2 * time.Hour

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
