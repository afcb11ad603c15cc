package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theelderemo/vrsa/internal/config"
	"github.com/theelderemo/vrsa/internal/domain"
	"github.com/theelderemo/vrsa/internal/repository/memory"
)

const testOwner = "owner-1"

func newTestServices(t *testing.T) (*SessionService, *ContextService) {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })
	return NewSessionService(store), NewContextService(store)
}

func createTestSession(t *testing.T, sessions *SessionService, window int) *domain.Session {
	t.Helper()
	sess, err := sessions.Create(context.Background(), CreateSessionParams{
		OwnerID:       testOwner,
		MemoryEnabled: true,
		ContextWindow: window,
	})
	require.NoError(t, err)
	return sess
}

func appendText(t *testing.T, contexts *ContextService, sessionID, role, content string) {
	t.Helper()
	err := contexts.Append(context.Background(), testOwner, sessionID, domain.Message{Role: role, Content: content})
	require.NoError(t, err)
}

func contents(messages []domain.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}

func TestAppendTrimsToWindow(t *testing.T) {
	sessions, contexts := newTestServices(t)
	sess := createTestSession(t, sessions, 3)

	appendText(t, contexts, sess.ID, domain.RoleUser, "A")
	appendText(t, contexts, sess.ID, domain.RoleAssistant, "B")
	appendText(t, contexts, sess.ID, domain.RoleUser, "C")
	appendText(t, contexts, sess.ID, domain.RoleAssistant, "D")
	appendText(t, contexts, sess.ID, domain.RoleUser, "E")

	messages, err := contexts.Read(context.Background(), testOwner, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D", "E"}, contents(messages))
}

func TestAppendNeverEvictsSystemMessages(t *testing.T) {
	sessions, contexts := newTestServices(t)
	sess := createTestSession(t, sessions, 10)

	appendText(t, contexts, sess.ID, domain.RoleSystem, "instructions")
	for i := 0; i < 12; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		appendText(t, contexts, sess.ID, role, fmt.Sprintf("m%d", i))
	}

	messages, err := contexts.Read(context.Background(), testOwner, sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 11)

	assert.Equal(t, domain.RoleSystem, messages[0].Role)
	assert.Equal(t, "instructions", messages[0].Content)
	for _, m := range messages[1:] {
		assert.NotEqual(t, domain.RoleSystem, m.Role)
	}
	// Most recent 10 non-system messages survive.
	assert.Equal(t, "m2", messages[1].Content)
	assert.Equal(t, "m11", messages[10].Content)
}

func TestAppendMovesProtectedMessagesToFront(t *testing.T) {
	sessions, contexts := newTestServices(t)
	sess := createTestSession(t, sessions, 2)

	appendText(t, contexts, sess.ID, domain.RoleUser, "u1")
	appendText(t, contexts, sess.ID, domain.RoleSystem, "steer")
	appendText(t, contexts, sess.ID, domain.RoleUser, "u2")
	appendText(t, contexts, sess.ID, domain.RoleUser, "u3")

	messages, err := contexts.Read(context.Background(), testOwner, sess.ID)
	require.NoError(t, err)
	// Protected-then-recent, not chronological: the system message leads even
	// though it arrived second.
	assert.Equal(t, []string{"steer", "u2", "u3"}, contents(messages))
}

func TestAppendRenewsExpiryAndUpdatedAt(t *testing.T) {
	sessions, contexts := newTestServices(t)
	sess := createTestSession(t, sessions, 5)

	before := time.Now()
	appendText(t, contexts, sess.ID, domain.RoleUser, "hello")

	updated, err := sessions.Get(context.Background(), testOwner, sess.ID)
	require.NoError(t, err)

	assert.True(t, updated.ExpiresAt.After(sess.ExpiresAt) || updated.ExpiresAt.Equal(sess.ExpiresAt))
	assert.WithinDuration(t, before.Add(config.SessionTTL), updated.ExpiresAt, 5*time.Second)
	assert.False(t, updated.UpdatedAt.Before(before))
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	sessions, contexts := newTestServices(t)
	sess := createTestSession(t, sessions, 5)

	err := contexts.Append(context.Background(), testOwner, sess.ID, domain.Message{Role: "tool", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestAppendUnknownSession(t *testing.T) {
	_, contexts := newTestServices(t)

	err := contexts.Append(context.Background(), testOwner, "missing", domain.Message{Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAppendWrongOwner(t *testing.T) {
	sessions, contexts := newTestServices(t)
	sess := createTestSession(t, sessions, 5)

	err := contexts.Append(context.Background(), "intruder", sess.ID, domain.Message{Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAppendAcceptedWhileMemoryDisabled(t *testing.T) {
	sessions, contexts := newTestServices(t)
	ctx := context.Background()

	sess, err := sessions.Create(ctx, CreateSessionParams{OwnerID: testOwner})
	require.NoError(t, err)

	appendText(t, contexts, sess.ID, domain.RoleUser, "logged anyway")

	messages, err := contexts.Read(ctx, testOwner, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, messages, "read must be gated while memory is off")

	// Re-enabling memory surfaces the accumulated log.
	require.NoError(t, sessions.SetMemoryEnabled(ctx, testOwner, sess.ID, true))
	messages, err = contexts.Read(ctx, testOwner, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"logged anyway"}, contents(messages))
}

func TestClearEmptiesLogButKeepsExpiry(t *testing.T) {
	sessions, contexts := newTestServices(t)
	sess := createTestSession(t, sessions, 5)

	appendText(t, contexts, sess.ID, domain.RoleUser, "a")
	appendText(t, contexts, sess.ID, domain.RoleAssistant, "b")

	withMessages, err := sessions.Get(context.Background(), testOwner, sess.ID)
	require.NoError(t, err)

	require.NoError(t, contexts.Clear(context.Background(), testOwner, sess.ID))

	cleared, err := sessions.Get(context.Background(), testOwner, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Messages)
	assert.True(t, cleared.MemoryEnabled)
	assert.Equal(t, withMessages.ExpiresAt, cleared.ExpiresAt, "clear must not touch expiry")
	assert.Equal(t, withMessages.ContextWindow, cleared.ContextWindow)
}

func TestTrimToWindowNonPositiveWindowDropsEvictable(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: "keep"},
		{Role: domain.RoleUser, Content: "drop1"},
		{Role: domain.RoleAssistant, Content: "drop2"},
	}

	trimmed := trimToWindow(messages, 0)
	require.Len(t, trimmed, 1)
	assert.Equal(t, "keep", trimmed[0].Content)

	trimmed = trimToWindow(messages, -3)
	require.Len(t, trimmed, 1)
	assert.Equal(t, "keep", trimmed[0].Content)
}

func TestAppendConvergesAfterWindowReduction(t *testing.T) {
	// A log already over the bound converges on the next single append.
	messages := []domain.Message{
		{Role: domain.RoleUser, Content: "1"},
		{Role: domain.RoleUser, Content: "2"},
		{Role: domain.RoleUser, Content: "3"},
		{Role: domain.RoleUser, Content: "4"},
		{Role: domain.RoleUser, Content: "5"},
	}

	trimmed := trimToWindow(append(messages, domain.Message{Role: domain.RoleUser, Content: "6"}), 2)
	assert.Equal(t, []string{"5", "6"}, contents(trimmed))
}
