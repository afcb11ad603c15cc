package service

import (
	"context"
	"fmt"
	"time"

	"github.com/theelderemo/vrsa/internal/config"
	"github.com/theelderemo/vrsa/internal/domain"
	"github.com/theelderemo/vrsa/internal/repository"
)

// ContextService enforces bounded memory on the message log. Appends trim the
// log to the session's context window and renew the session TTL; reads are
// gated on the memory flag.
type ContextService struct {
	store repository.Store
}

func NewContextService(store repository.Store) *ContextService {
	return &ContextService{store: store}
}

// Append adds a message to the session log, trims the log to the session's
// context window and extends the session expiry. The trimmed list is
// persisted in a single store write, so a failed append leaves the stored log
// exactly as it was.
//
// Appends are accepted even while the session's memory flag is off; the log
// keeps accumulating and becomes visible again when memory is re-enabled.
func (s *ContextService) Append(ctx context.Context, ownerID, sessionID string, msg domain.Message) error {
	if !domain.ValidRole(msg.Role) {
		return domain.ErrInvalidRole
	}

	sess, err := loadOwned(ctx, s.store, ownerID, sessionID)
	if err != nil {
		return err
	}

	messages := make([]domain.Message, 0, len(sess.Messages)+1)
	messages = append(messages, sess.Messages...)
	messages = append(messages, msg)
	messages = trimToWindow(messages, sess.ContextWindow)

	expiresAt := time.Now().Add(config.SessionTTL)
	if err := s.store.UpdateSession(ctx, &repository.UpdateSession{
		ID:        sessionID,
		Messages:  &messages,
		ExpiresAt: &expiresAt,
	}); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Read returns the stored log, or an empty list when the session's memory
// flag is off. The log is stored either way; only its visibility is gated.
func (s *ContextService) Read(ctx context.Context, ownerID, sessionID string) ([]domain.Message, error) {
	sess, err := loadOwned(ctx, s.store, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.MemoryEnabled {
		return []domain.Message{}, nil
	}
	return sess.Messages, nil
}

// Clear empties the message log. The memory flag, context window and session
// expiry are untouched.
func (s *ContextService) Clear(ctx context.Context, ownerID, sessionID string) error {
	if _, err := loadOwned(ctx, s.store, ownerID, sessionID); err != nil {
		return err
	}
	empty := []domain.Message{}
	if err := s.store.UpdateSession(ctx, &repository.UpdateSession{ID: sessionID, Messages: &empty}); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

// trimToWindow bounds the log to window non-system messages. System messages
// are never evicted; when the log exceeds the window they are kept in front
// of the retained tail rather than re-interleaved into chronological order.
// Downstream consumers depend on that exact ordering.
//
// A window below 1 is not rejected here: it drops the whole evictable set,
// leaving only system messages. Callers validate windows at session creation.
func trimToWindow(messages []domain.Message, window int) []domain.Message {
	if len(messages) <= window {
		return messages
	}

	var protected, evictable []domain.Message
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			protected = append(protected, m)
		} else {
			evictable = append(evictable, m)
		}
	}

	if window <= 0 {
		evictable = nil
	} else if len(evictable) > window {
		evictable = evictable[len(evictable)-window:]
	}
	return append(protected, evictable...)
}
