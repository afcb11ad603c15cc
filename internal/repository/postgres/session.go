package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/theelderemo/vrsa/internal/domain"
	"github.com/theelderemo/vrsa/internal/repository"
)

func (d *DB) CreateSession(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	stmt := `INSERT INTO sessions (id, owner_id, name, memory_enabled, context_window, messages, settings, expires_at)
	         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	         RETURNING created_at, updated_at`
	if err := d.pool.QueryRow(ctx, stmt,
		session.ID, session.OwnerID, session.Name, session.MemoryEnabled,
		session.ContextWindow, messages, rawOrNil(session.Settings), session.ExpiresAt,
	).Scan(&session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}
	return session, nil
}

func (d *DB) ListSessions(ctx context.Context, find *repository.FindSession) ([]*domain.Session, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, fmt.Sprintf("id = $%d", len(args)+1)), append(args, *v)
	}
	if v := find.OwnerID; v != nil {
		where, args = append(where, fmt.Sprintf("owner_id = $%d", len(args)+1)), append(args, *v)
	}
	if v := find.ActiveAt; v != nil {
		where, args = append(where, fmt.Sprintf("expires_at > $%d", len(args)+1)), append(args, *v)
	}

	messagesCol := "messages"
	if find.ExcludeMessages {
		messagesCol = "'[]'::jsonb AS messages"
	}
	query := fmt.Sprintf(
		`SELECT id, owner_id, name, memory_enabled, context_window, %s, settings, created_at, updated_at, expires_at
		 FROM sessions WHERE %s ORDER BY updated_at DESC`,
		messagesCol, strings.Join(where, " AND "),
	)
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*domain.Session
	for rows.Next() {
		s := &domain.Session{}
		var messages, settings []byte
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.Name, &s.MemoryEnabled, &s.ContextWindow,
			&messages, &settings, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(messages, &s.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
		s.Settings = json.RawMessage(settings)
		list = append(list, s)
	}
	return list, rows.Err()
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

func (d *DB) UpdateSession(ctx context.Context, update *repository.UpdateSession) error {
	set, args := []string{"updated_at = now()"}, []any{}
	if v := update.Name; v != nil {
		set, args = append(set, fmt.Sprintf("name = $%d", len(args)+1)), append(args, *v)
	}
	if v := update.MemoryEnabled; v != nil {
		set, args = append(set, fmt.Sprintf("memory_enabled = $%d", len(args)+1)), append(args, *v)
	}
	if v := update.Settings; v != nil {
		set, args = append(set, fmt.Sprintf("settings = $%d", len(args)+1)), append(args, rawOrNil(*v))
	}
	if v := update.Messages; v != nil {
		messages, err := json.Marshal(*v)
		if err != nil {
			return fmt.Errorf("marshal messages: %w", err)
		}
		set, args = append(set, fmt.Sprintf("messages = $%d", len(args)+1)), append(args, messages)
	}
	if v := update.ExpiresAt; v != nil {
		set, args = append(set, fmt.Sprintf("expires_at = $%d", len(args)+1)), append(args, *v)
	}

	args = append(args, update.ID)
	stmt := fmt.Sprintf(`UPDATE sessions SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args))
	_, err := d.pool.Exec(ctx, stmt, args...)
	return err
}

func (d *DB) DeleteSessions(ctx context.Context, del *repository.DeleteSession) ([]string, error) {
	where, args := []string{}, []any{}
	if v := del.ID; v != nil {
		where, args = append(where, fmt.Sprintf("id = $%d", len(args)+1)), append(args, *v)
	}
	if v := del.OwnerID; v != nil {
		where, args = append(where, fmt.Sprintf("owner_id = $%d", len(args)+1)), append(args, *v)
	}
	if len(where) == 0 {
		return nil, fmt.Errorf("delete sessions: empty filter")
	}

	stmt := fmt.Sprintf(`DELETE FROM sessions WHERE %s RETURNING id`, strings.Join(where, " AND "))
	rows, err := d.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *DB) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := d.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// rawOrNil maps empty settings to SQL NULL instead of the empty string.
func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
