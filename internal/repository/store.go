// Package repository defines the record store contract backing sessions and
// its Postgres, SQLite and in-memory drivers.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/theelderemo/vrsa/internal/domain"
)

// Store is the keyed record store used by the session services. Drivers must
// persist each session as a single record so that an update either applies
// fully or not at all; a failed append must never leave a half-trimmed
// message list behind.
//
// Get and List return nothing (nil, empty) rather than an error when no
// record matches; mapping to domain.ErrSessionNotFound is the caller's job.
type Store interface {
	CreateSession(ctx context.Context, session *domain.Session) (*domain.Session, error)
	GetSession(ctx context.Context, find *FindSession) (*domain.Session, error)
	ListSessions(ctx context.Context, find *FindSession) ([]*domain.Session, error)
	UpdateSession(ctx context.Context, update *UpdateSession) error
	// DeleteSessions removes every matching session and returns their ids.
	DeleteSessions(ctx context.Context, del *DeleteSession) ([]string, error)
	// DeleteExpiredSessions removes sessions whose expiry is at or before the
	// given instant and returns how many were removed.
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// FindSession filters for GetSession and ListSessions. Nil fields are not
// applied. Results are ordered by updated_at descending.
type FindSession struct {
	ID      *string
	OwnerID *string
	// ActiveAt keeps only sessions with expires_at strictly after the instant.
	ActiveAt *time.Time
	// ExcludeMessages omits the message log from the result (metadata
	// projection for listings).
	ExcludeMessages bool
	Limit           int
}

// UpdateSession is a partial patch applied to one session. Nil fields are
// left untouched; updated_at is always refreshed.
type UpdateSession struct {
	ID            string
	Name          *string
	MemoryEnabled *bool
	Settings      *json.RawMessage
	Messages      *[]domain.Message
	ExpiresAt     *time.Time
}

// DeleteSession selects sessions for DeleteSessions. At least one field must
// be set; a nil filter never matches everything.
type DeleteSession struct {
	ID      *string
	OwnerID *string
}
