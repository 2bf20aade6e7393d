package benchmark

import (
	"fmt"
	"testing"

	"github.com/careconnect/unisearch/internal/index"
	"github.com/careconnect/unisearch/internal/searcher/engine"
	"github.com/careconnect/unisearch/internal/searcher/scorer"
)

// BenchmarkSearch measures end-to-end query execution (tokenize, gather,
// score, rank, truncate) at varying corpus sizes.
func BenchmarkSearch(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	eng := engine.New(scorer.DefaultWeights(), 1024)

	for _, n := range sizes {
		snap, _ := index.Build(makeDocs(n))
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				result, err := eng.Search(snap, "bench-owner", "planning agenda blockers", 10)
				if err != nil {
					b.Fatal(err)
				}
				_ = result
			}
		})
	}
}

// BenchmarkSearchQueryShapes holds the corpus fixed and varies the query.
func BenchmarkSearchQueryShapes(b *testing.B) {
	snap, _ := index.Build(makeDocs(5000))
	eng := engine.New(scorer.DefaultWeights(), 1024)

	queries := []struct {
		name  string
		query string
	}{
		{"single_term", "planning"},
		{"multi_term", "planning agenda goals tasks"},
		{"rare_term", "sprint"},
		{"no_match", "zzzxyzzy"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				result, err := eng.Search(snap, "bench-owner", q.query, 10)
				if err != nil {
					b.Fatal(err)
				}
				_ = result
			}
		})
	}
}
