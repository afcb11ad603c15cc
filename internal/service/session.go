package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/theelderemo/vrsa/internal/config"
	"github.com/theelderemo/vrsa/internal/domain"
	"github.com/theelderemo/vrsa/internal/repository"
)

// SessionService owns the session lifecycle: creation, retrieval, rename,
// flag and settings updates, deletion and owner-wide bulk deletion. Every
// read and write path checks the caller's owner id against the stored one.
//
// Concurrent writers to the same session are not serialized; the last write
// to complete wins. This is acceptable for the single-active-client use the
// service is built for.
type SessionService struct {
	store repository.Store
}

func NewSessionService(store repository.Store) *SessionService {
	return &SessionService{store: store}
}

// CreateSessionParams carries optional creation parameters. Zero values fall
// back to defaults: name derives from the creation time, the context window
// from config.DefaultContextWindow.
type CreateSessionParams struct {
	OwnerID       string
	Name          string
	MemoryEnabled bool
	ContextWindow int
	Settings      json.RawMessage
}

func (s *SessionService) Create(ctx context.Context, p CreateSessionParams) (*domain.Session, error) {
	if p.OwnerID == "" {
		return nil, domain.ErrOwnerRequired
	}
	if p.ContextWindow == 0 {
		p.ContextWindow = config.DefaultContextWindow
	}
	if p.ContextWindow < 1 {
		return nil, domain.ErrInvalidContextWindow
	}

	now := time.Now()
	name := p.Name
	if name == "" {
		name = sessionName(p.Settings, now)
	}

	sess := &domain.Session{
		ID:            uuid.NewString(),
		OwnerID:       p.OwnerID,
		Name:          name,
		MemoryEnabled: p.MemoryEnabled,
		ContextWindow: p.ContextWindow,
		Messages:      []domain.Message{},
		Settings:      p.Settings,
		ExpiresAt:     now.Add(config.SessionTTL),
	}

	created, err := s.store.CreateSession(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return created, nil
}

func (s *SessionService) Get(ctx context.Context, ownerID, sessionID string) (*domain.Session, error) {
	return loadOwned(ctx, s.store, ownerID, sessionID)
}

func (s *SessionService) Rename(ctx context.Context, ownerID, sessionID, name string) error {
	if name == "" {
		return domain.ErrNameRequired
	}
	if _, err := loadOwned(ctx, s.store, ownerID, sessionID); err != nil {
		return err
	}
	if err := s.store.UpdateSession(ctx, &repository.UpdateSession{ID: sessionID, Name: &name}); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

// SetMemoryEnabled toggles whether the stored log is surfaced to readers.
// The log itself and the session expiry are left untouched.
func (s *SessionService) SetMemoryEnabled(ctx context.Context, ownerID, sessionID string, enabled bool) error {
	if _, err := loadOwned(ctx, s.store, ownerID, sessionID); err != nil {
		return err
	}
	if err := s.store.UpdateSession(ctx, &repository.UpdateSession{ID: sessionID, MemoryEnabled: &enabled}); err != nil {
		return fmt.Errorf("update memory flag: %w", err)
	}
	return nil
}

// UpdateSettings replaces the session settings wholesale; there is no merge.
func (s *SessionService) UpdateSettings(ctx context.Context, ownerID, sessionID string, settings json.RawMessage) error {
	if _, err := loadOwned(ctx, s.store, ownerID, sessionID); err != nil {
		return err
	}
	if err := s.store.UpdateSession(ctx, &repository.UpdateSession{ID: sessionID, Settings: &settings}); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func (s *SessionService) Delete(ctx context.Context, ownerID, sessionID string) error {
	if _, err := loadOwned(ctx, s.store, ownerID, sessionID); err != nil {
		return err
	}
	if _, err := s.store.DeleteSessions(ctx, &repository.DeleteSession{ID: &sessionID}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAll removes every session belonging to the owner and returns how many
// were removed. Partial failure in the store surfaces as an error, never as a
// silently short count.
func (s *SessionService) DeleteAll(ctx context.Context, ownerID string) (int, error) {
	if ownerID == "" {
		return 0, domain.ErrOwnerRequired
	}
	ids, err := s.store.DeleteSessions(ctx, &repository.DeleteSession{OwnerID: &ownerID})
	if err != nil {
		return 0, fmt.Errorf("delete all sessions: %w", err)
	}
	return len(ids), nil
}

// ListActive returns the owner's non-expired sessions, most recently updated
// first, as a metadata projection with the message bodies omitted.
func (s *SessionService) ListActive(ctx context.Context, ownerID string) ([]*domain.Session, error) {
	if ownerID == "" {
		return nil, domain.ErrOwnerRequired
	}
	now := time.Now()
	list, err := s.store.ListSessions(ctx, &repository.FindSession{
		OwnerID:         &ownerID,
		ActiveAt:        &now,
		ExcludeMessages: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// GetOrCreate returns the owner's most recently updated non-expired session,
// creating a fresh one with default parameters when none exists. Two
// concurrent calls may both create; callers needing a single-session
// guarantee must serialize themselves.
func (s *SessionService) GetOrCreate(ctx context.Context, ownerID string) (*domain.Session, error) {
	if ownerID == "" {
		return nil, domain.ErrOwnerRequired
	}
	now := time.Now()
	sess, err := s.store.GetSession(ctx, &repository.FindSession{
		OwnerID:  &ownerID,
		ActiveAt: &now,
		Limit:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("get latest session: %w", err)
	}
	if sess != nil {
		return sess, nil
	}
	return s.Create(ctx, CreateSessionParams{OwnerID: ownerID})
}

// loadOwned fetches a session by id and enforces ownership.
func loadOwned(ctx context.Context, store repository.Store, ownerID, sessionID string) (*domain.Session, error) {
	if ownerID == "" {
		return nil, domain.ErrOwnerRequired
	}
	sess, err := store.GetSession(ctx, &repository.FindSession{ID: &sessionID})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, domain.ErrSessionNotFound
	}
	if sess.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return sess, nil
}

// sessionName derives the default session name: the "name" key of the
// initial settings when present, otherwise a creation-time label.
func sessionName(settings json.RawMessage, now time.Time) string {
	if len(settings) > 0 {
		var named struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(settings, &named); err == nil && named.Name != "" {
			return named.Name
		}
	}
	return "Session " + now.Format("Jan 2, 2006 15:04")
}
