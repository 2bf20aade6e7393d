// Package index builds immutable inverted-index snapshots over a set of
// documents. A Snapshot is never mutated after Build returns, which is what
// lets the service publish it to concurrent readers with a single swap.
package index

import (
	"sort"
	"time"

	"github.com/careconnect/unisearch/internal/document"
	"github.com/careconnect/unisearch/internal/tokenizer"
	"github.com/careconnect/unisearch/pkg/logger"
)

// Snapshot is a read-only inverted index over one owner's documents at a
// point in time. All accessors are safe for concurrent use once built.
type Snapshot struct {
	postings map[string]PostingList
	docFreq  map[string]int
	docs     map[string]DocMeta
	docCount int
	builtAt  time.Time
}

// Build constructs a Snapshot from the given documents. Malformed documents
// (missing id or owner) are skipped and counted in the summary; they never
// abort the build. Building the same document slice twice yields snapshots
// with identical terms, postings, and frequencies.
func Build(docs []document.Document) (*Snapshot, BuildSummary) {
	snap := &Snapshot{
		postings: make(map[string]PostingList),
		docFreq:  make(map[string]int),
		docs:     make(map[string]DocMeta, len(docs)),
		builtAt:  time.Now().UTC(),
	}
	summary := BuildSummary{}
	log := logger.WithComponent("index-builder")

	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			log.Warn("skipping malformed document", "error", err)
			summary.DocumentsSkipped++
			continue
		}
		snap.addDocument(doc)
		summary.DocumentsIndexed++
	}
	snap.docCount = summary.DocumentsIndexed
	return snap, summary
}

// addDocument tokenizes every field and records one posting per distinct
// (term, field) pair with its accumulated frequency. Field names are walked
// in sorted order and terms in first-seen order, so posting lists come out
// identical across builds of the same input.
func (s *Snapshot) addDocument(doc document.Document) {
	fields := make([]string, 0, len(doc.Fields))
	for name := range doc.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	seenInDoc := make(map[string]struct{})
	for _, field := range fields {
		terms := tokenizer.Tokenize(doc.Fields[field])
		order := make([]string, 0, len(terms))
		freq := make(map[string]int, len(terms))
		for _, term := range terms {
			if _, ok := freq[term]; !ok {
				order = append(order, term)
			}
			freq[term]++
		}
		for _, term := range order {
			s.postings[term] = append(s.postings[term], Posting{
				DocID:     doc.ID,
				Field:     field,
				Frequency: freq[term],
			})
			if _, ok := seenInDoc[term]; !ok {
				seenInDoc[term] = struct{}{}
				s.docFreq[term]++
			}
		}
	}

	s.docs[doc.ID] = DocMeta{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Kind:      doc.Kind,
		Title:     doc.Title(),
		URL:       doc.URL,
		UpdatedAt: doc.UpdatedAt,
	}
}

// Postings returns the posting list for a term, or nil if the term is not
// in the index.
func (s *Snapshot) Postings(term string) PostingList {
	return s.postings[term]
}

// DocFreq returns the number of distinct documents containing the term.
func (s *Snapshot) DocFreq(term string) int {
	return s.docFreq[term]
}

// DocCount returns the number of documents indexed by this snapshot.
func (s *Snapshot) DocCount() int {
	return s.docCount
}

// Doc returns the metadata for a document id.
func (s *Snapshot) Doc(id string) (DocMeta, bool) {
	meta, ok := s.docs[id]
	return meta, ok
}

// Terms returns all indexed terms in sorted order.
func (s *Snapshot) Terms() []string {
	terms := make([]string, 0, len(s.postings))
	for term := range s.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// BuiltAt returns the snapshot's build timestamp.
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}
