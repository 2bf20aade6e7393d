package index

import (
	"time"

	"github.com/careconnect/unisearch/internal/document"
)

// Posting associates a term with one document field and the term's
// in-field frequency. A term has at most one posting per (document, field).
type Posting struct {
	DocID     string
	Field     string
	Frequency int
}

// PostingList is the ordered list of postings for a single term.
type PostingList []Posting

// DocMeta carries the per-document metadata needed to render and order
// search results without going back to the datastore.
type DocMeta struct {
	ID        string
	OwnerID   string
	Kind      document.Kind
	Title     string
	URL       string
	UpdatedAt time.Time
}

// BuildSummary reports the outcome of one index build.
type BuildSummary struct {
	DocumentsIndexed int
	DocumentsSkipped int
}
