// Package sqlite implements the session record store on SQLite for
// single-node deployments without a database server. The schema is created
// on open.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/theelderemo/vrsa/internal/domain"
	"github.com/theelderemo/vrsa/internal/repository"
)

type DB struct {
	db *sql.DB
}

// New opens (or creates) the database file and ensures the schema exists.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &DB{db: db}
	if err := d.ensureTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure tables: %w", err)
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) ensureTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id             TEXT PRIMARY KEY,
			owner_id       TEXT NOT NULL,
			name           TEXT NOT NULL DEFAULT '',
			memory_enabled INTEGER NOT NULL DEFAULT 0,
			context_window INTEGER NOT NULL DEFAULT 10,
			messages       TEXT NOT NULL DEFAULT '[]',
			settings       TEXT,
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL,
			expires_at     DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_owner_updated ON sessions(owner_id, updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
	}
	for _, s := range stmts {
		if _, err := d.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) CreateSession(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	stmt := `INSERT INTO sessions (id, owner_id, name, memory_enabled, context_window, messages, settings, created_at, updated_at, expires_at)
	         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt,
		session.ID, session.OwnerID, session.Name, session.MemoryEnabled,
		session.ContextWindow, string(messages), settingsOrNil(session.Settings),
		session.CreatedAt, session.UpdatedAt, session.ExpiresAt,
	); err != nil {
		return nil, err
	}
	return session, nil
}

func (d *DB) ListSessions(ctx context.Context, find *repository.FindSession) ([]*domain.Session, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.OwnerID; v != nil {
		where, args = append(where, "owner_id = ?"), append(args, *v)
	}
	if v := find.ActiveAt; v != nil {
		where, args = append(where, "expires_at > ?"), append(args, *v)
	}

	messagesCol := "messages"
	if find.ExcludeMessages {
		messagesCol = "'[]' AS messages"
	}
	query := fmt.Sprintf(
		`SELECT id, owner_id, name, memory_enabled, context_window, %s, settings, created_at, updated_at, expires_at
		 FROM sessions WHERE %s ORDER BY updated_at DESC`,
		messagesCol, strings.Join(where, " AND "),
	)
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*domain.Session
	for rows.Next() {
		s := &domain.Session{}
		var messages string
		var settings sql.NullString
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.Name, &s.MemoryEnabled, &s.ContextWindow,
			&messages, &settings, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(messages), &s.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
		if settings.Valid {
			s.Settings = json.RawMessage(settings.String)
		}
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
	set, args := []string{"updated_at = ?"}, []any{time.Now().UTC()}
	if v := update.Name; v != nil {
		set, args = append(set, "name = ?"), append(args, *v)
	}
	if v := update.MemoryEnabled; v != nil {
		set, args = append(set, "memory_enabled = ?"), append(args, *v)
	}
	if v := update.Settings; v != nil {
		set, args = append(set, "settings = ?"), append(args, settingsOrNil(*v))
	}
	if v := update.Messages; v != nil {
		messages, err := json.Marshal(*v)
		if err != nil {
			return fmt.Errorf("marshal messages: %w", err)
		}
		set, args = append(set, "messages = ?"), append(args, string(messages))
	}
	if v := update.ExpiresAt; v != nil {
		set, args = append(set, "expires_at = ?"), append(args, *v)
	}

	args = append(args, update.ID)
	stmt := fmt.Sprintf(`UPDATE sessions SET %s WHERE id = ?`, strings.Join(set, ", "))
	_, err := d.db.ExecContext(ctx, stmt, args...)
	return err
}

func (d *DB) DeleteSessions(ctx context.Context, del *repository.DeleteSession) ([]string, error) {
	where, args := []string{}, []any{}
	if v := del.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := del.OwnerID; v != nil {
		where, args = append(where, "owner_id = ?"), append(args, *v)
	}
	if len(where) == 0 {
		return nil, fmt.Errorf("delete sessions: empty filter")
	}
	cond := strings.Join(where, " AND ")

	// Collect ids first; DELETE ... RETURNING needs a newer SQLite than we
	// can assume everywhere.
	rows, err := d.db.QueryContext(ctx, `SELECT id FROM sessions WHERE `+cond, args...)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := d.db.ExecContext(ctx, `DELETE FROM sessions WHERE `+cond, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *DB) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func settingsOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
