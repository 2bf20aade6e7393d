// Package scorer computes TF-IDF relevance scores. Each matched term
// contributes fieldWeight × termFrequency × ln(totalDocs/docFreq); a
// document's score is the sum over the query terms that appear in it.
package scorer

import (
	"math"

	"github.com/careconnect/unisearch/internal/document"
)

// Weights holds the per-field score multipliers. Title must weigh at least
// as much as Body; fields without an explicit weight use Default.
type Weights struct {
	Title   float64
	Body    float64
	Default float64
}

// DefaultWeights returns the standard field weighting.
func DefaultWeights() Weights {
	return Weights{Title: 2.0, Body: 1.0, Default: 1.0}
}

// ForField resolves the weight for a field name.
func (w Weights) ForField(field string) float64 {
	switch field {
	case document.FieldTitle:
		return w.Title
	case document.FieldBody:
		return w.Body
	default:
		return w.Default
	}
}

// Match is one (term, field) hit inside a candidate document, together with
// the term's corpus-wide document frequency.
type Match struct {
	Term      string
	Field     string
	Frequency int
	DocFreq   int
}

// Score sums the TF-IDF contributions of all matches. The result is
// non-negative; callers must not invoke Score for documents with zero
// matches, since "no match" and "score zero" are distinct outcomes.
func Score(w Weights, totalDocs int, matches []Match) float64 {
	if totalDocs == 0 {
		return 0
	}
	var score float64
	for _, m := range matches {
		if m.DocFreq <= 0 {
			continue
		}
		idf := math.Log(float64(totalDocs) / float64(m.DocFreq))
		if idf < 0 {
			idf = 0
		}
		score += w.ForField(m.Field) * float64(m.Frequency) * idf
	}
	return score
}
