// Package document defines the uniform searchable-document shape that all
// platform entity kinds collapse into at the adapter boundary. Everything
// downstream of the adapter (tokenizer, index, scorer, query engine) is
// kind-agnostic and works only with Document.
package document

import (
	"fmt"
	"time"
)

// Kind identifies the originating entity kind of a document.
type Kind string

const (
	KindGoal    Kind = "goal"
	KindTask    Kind = "task"
	KindNote    Kind = "note"
	KindContact Kind = "contact"
	KindSkill   Kind = "skill"
)

// Well-known field names. Title is weighted above Body during scoring;
// URL is carried for result rendering and is not indexed.
const (
	FieldTitle = "title"
	FieldBody  = "body"
)

// Document is the unit of indexing. ID is stable across rebuilds for the
// same underlying record, and every document belongs to exactly one owner.
type Document struct {
	ID        string
	OwnerID   string
	Kind      Kind
	Fields    map[string]string
	URL       string
	UpdatedAt time.Time
}

// Validate reports whether the document is structurally sound enough to
// index. Malformed documents are skipped by the builder, not fatal.
func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document has empty id")
	}
	if d.OwnerID == "" {
		return fmt.Errorf("document %s has empty owner id", d.ID)
	}
	return nil
}

// Title returns the document's title field, or "" if absent.
func (d Document) Title() string {
	return d.Fields[FieldTitle]
}
