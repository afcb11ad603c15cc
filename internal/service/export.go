package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/theelderemo/vrsa/internal/domain"
)

// Export formats a session and its takes into portable documents. It carries
// no policy of its own; failures are limited to the output sink.

const exportDelimiter = "----------------------------------------"

// ExportDocument is the structured projection of a session, suitable for
// faithful re-import.
type ExportDocument struct {
	ID            string           `json:"id"`
	OwnerID       string           `json:"ownerId"`
	Name          string           `json:"name"`
	MemoryEnabled bool             `json:"memoryEnabled"`
	ContextWindow int              `json:"contextWindow"`
	Settings      json.RawMessage  `json:"settings,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	Messages      []domain.Message `json:"messages"`
	Takes         []domain.Take    `json:"takes"`
	ExportedAt    time.Time        `json:"exportedAt"`
}

// BuildExportDocument projects a session into its structured export form.
func BuildExportDocument(sess *domain.Session) ExportDocument {
	return ExportDocument{
		ID:            sess.ID,
		OwnerID:       sess.OwnerID,
		Name:          sess.Name,
		MemoryEnabled: sess.MemoryEnabled,
		ContextWindow: sess.ContextWindow,
		Settings:      sess.Settings,
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
		Messages:      sess.Messages,
		Takes:         domain.Reconstruct(sess.Messages),
		ExportedAt:    time.Now(),
	}
}

// WriteText renders the session's takes as a plain-text document. An optional
// edit history is appended as a trailing block.
func WriteText(w io.Writer, sess *domain.Session, editHistory []string) error {
	takes := domain.Reconstruct(sess.Messages)

	var sb strings.Builder
	sb.WriteString("=== vrsa session export ===\n")
	fmt.Fprintf(&sb, "Session:  %s\n", sess.Name)
	fmt.Fprintf(&sb, "Created:  %s\n", sess.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Exported: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Takes:    %d\n", len(takes))

	for _, t := range takes {
		sb.WriteString(exportDelimiter + "\n")
		fmt.Fprintf(&sb, "Take %d\n", t.Index+1)
		fmt.Fprintf(&sb, "Prompt: %s\n", t.Prompt)
		if t.Response != nil {
			fmt.Fprintf(&sb, "Response: %s\n", *t.Response)
		} else {
			sb.WriteString("Response: (pending)\n")
		}
	}

	if len(editHistory) > 0 {
		sb.WriteString(exportDelimiter + "\n")
		sb.WriteString("Edit history:\n")
		for _, entry := range editHistory {
			fmt.Fprintf(&sb, "- %s\n", entry)
		}
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
