// Package memory implements the session record store in process memory. It
// backs tests and the "memory" store driver for throwaway deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/theelderemo/vrsa/internal/domain"
	"github.com/theelderemo/vrsa/internal/repository"
)

type DB struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func New() *DB {
	return &DB{sessions: make(map[string]*domain.Session)}
}

func (d *DB) Close() error {
	return nil
}

func (d *DB) CreateSession(_ context.Context, session *domain.Session) (*domain.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.sessions[session.ID]; exists {
		return nil, fmt.Errorf("session %s already exists", session.ID)
	}

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	d.sessions[session.ID] = clone(session)
	return session, nil
}

func (d *DB) ListSessions(_ context.Context, find *repository.FindSession) ([]*domain.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var list []*domain.Session
	for _, s := range d.sessions {
		if !matches(s, find) {
			continue
		}
		c := clone(s)
		if find.ExcludeMessages {
			c.Messages = []domain.Message{}
		}
		list = append(list, c)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	if find.Limit > 0 && len(list) > find.Limit {
		list = list[:find.Limit]
	}
	return list, nil
}

func (d *DB) GetSession(ctx context.Context, find *repository.FindSession) (*domain.Session, error) {
	list, err := d.ListSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) UpdateSession(_ context.Context, update *repository.UpdateSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[update.ID]
	if !ok {
		return nil
	}
	if v := update.Name; v != nil {
		s.Name = *v
	}
	if v := update.MemoryEnabled; v != nil {
		s.MemoryEnabled = *v
	}
	if v := update.Settings; v != nil {
		s.Settings = append([]byte(nil), *v...)
	}
	if v := update.Messages; v != nil {
		s.Messages = cloneMessages(*v)
	}
	if v := update.ExpiresAt; v != nil {
		s.ExpiresAt = *v
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (d *DB) DeleteSessions(_ context.Context, del *repository.DeleteSession) ([]string, error) {
	if del.ID == nil && del.OwnerID == nil {
		return nil, fmt.Errorf("delete sessions: empty filter")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []string
	for id, s := range d.sessions {
		if del.ID != nil && s.ID != *del.ID {
			continue
		}
		if del.OwnerID != nil && s.OwnerID != *del.OwnerID {
			continue
		}
		delete(d.sessions, id)
		ids = append(ids, id)
	}
	return ids, nil
}

func (d *DB) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var removed int64
	for id, s := range d.sessions {
		if !s.ExpiresAt.After(before) {
			delete(d.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func matches(s *domain.Session, find *repository.FindSession) bool {
	if find.ID != nil && s.ID != *find.ID {
		return false
	}
	if find.OwnerID != nil && s.OwnerID != *find.OwnerID {
		return false
	}
	if find.ActiveAt != nil && !s.ExpiresAt.After(*find.ActiveAt) {
		return false
	}
	return true
}

func clone(s *domain.Session) *domain.Session {
	c := *s
	c.Messages = cloneMessages(s.Messages)
	c.Settings = append([]byte(nil), s.Settings...)
	return &c
}

func cloneMessages(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}
