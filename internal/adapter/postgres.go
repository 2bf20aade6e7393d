package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/careconnect/unisearch/internal/document"
)

// sqlSource reads one entity kind from PostgreSQL. Every query selects the
// same projection (id, title, body, updated_at) so a single scan loop
// serves all kinds.
type sqlSource struct {
	db      *sql.DB
	kind    document.Kind
	query   string
	urlBase string
}

// NewPostgresSources returns one Source per supported entity kind, all
// backed by the given database handle.
func NewPostgresSources(db *sql.DB) []Source {
	return []Source{
		&sqlSource{
			db:   db,
			kind: document.KindGoal,
			query: `SELECT id, title, COALESCE(description, ''), updated_at
				FROM goals WHERE user_id = $1`,
			urlBase: "/goals/",
		},
		&sqlSource{
			db:   db,
			kind: document.KindTask,
			query: `SELECT id, title, COALESCE(notes, ''), updated_at
				FROM tasks WHERE user_id = $1`,
			urlBase: "/tasks/",
		},
		&sqlSource{
			db:   db,
			kind: document.KindNote,
			query: `SELECT id, title, COALESCE(body, ''), updated_at
				FROM notes WHERE user_id = $1`,
			urlBase: "/notes/",
		},
		&sqlSource{
			db:   db,
			kind: document.KindContact,
			query: `SELECT id, name, COALESCE(notes, ''), updated_at
				FROM contacts WHERE user_id = $1`,
			urlBase: "/contacts/",
		},
		&sqlSource{
			db:   db,
			kind: document.KindSkill,
			query: `SELECT id, name, COALESCE(description, ''), updated_at
				FROM skills WHERE user_id = $1`,
			urlBase: "/skills/",
		},
	}
}

func (s *sqlSource) Kind() document.Kind {
	return s.kind
}

func (s *sqlSource) Fetch(ctx context.Context, ownerID string) ([]document.Document, error) {
	rows, err := s.db.QueryContext(ctx, s.query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying %s records: %w", s.kind, err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var (
			id        string
			title     string
			body      string
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &title, &body, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", s.kind, err)
		}
		docs = append(docs, document.Document{
			ID:      id,
			OwnerID: ownerID,
			Kind:    s.kind,
			Fields: map[string]string{
				document.FieldTitle: title,
				document.FieldBody:  body,
			},
			URL:       s.urlBase + id,
			UpdatedAt: updatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s records: %w", s.kind, err)
	}
	return docs, nil
}
