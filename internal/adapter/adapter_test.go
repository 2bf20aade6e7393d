package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/careconnect/unisearch/internal/document"
	apperrors "github.com/careconnect/unisearch/pkg/errors"
)

type fakeSource struct {
	kind  document.Kind
	docs  []document.Document
	err   error
	delay time.Duration
}

func (f *fakeSource) Kind() document.Kind { return f.kind }

func (f *fakeSource) Fetch(ctx context.Context, ownerID string) ([]document.Document, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func fakeDoc(id string, kind document.Kind) document.Document {
	return document.Document{
		ID:      id,
		OwnerID: "u1",
		Kind:    kind,
		Fields:  map[string]string{document.FieldTitle: "title " + id},
	}
}

func TestFetchDocumentsUnion(t *testing.T) {
	a := New(time.Second,
		&fakeSource{kind: document.KindGoal, docs: []document.Document{fakeDoc("g1", document.KindGoal)}},
		&fakeSource{kind: document.KindTask, docs: []document.Document{fakeDoc("t1", document.KindTask), fakeDoc("t2", document.KindTask)}},
	)

	docs, err := a.FetchDocuments(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FetchDocuments: %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("got %d documents, want 3", len(docs))
	}
}

// TestFetchDocumentsPartialFailure checks that one failing entity kind does
// not abort indexing of the others.
func TestFetchDocumentsPartialFailure(t *testing.T) {
	a := New(time.Second,
		&fakeSource{kind: document.KindGoal, err: errors.New("relation does not exist")},
		&fakeSource{kind: document.KindNote, docs: []document.Document{fakeDoc("n1", document.KindNote)}},
	)

	docs, err := a.FetchDocuments(context.Background(), "u1")
	if err != nil {
		t.Fatalf("partial failure should not fail the fetch: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "n1" {
		t.Errorf("docs = %v, want just n1", docs)
	}
}

func TestFetchDocumentsAllFail(t *testing.T) {
	a := New(time.Second,
		&fakeSource{kind: document.KindGoal, err: errors.New("connection refused")},
		&fakeSource{kind: document.KindNote, err: errors.New("connection refused")},
	)

	_, err := a.FetchDocuments(context.Background(), "u1")
	if !errors.Is(err, apperrors.ErrDataSource) {
		t.Errorf("err = %v, want ErrDataSource", err)
	}
}

func TestFetchDocumentsTimeout(t *testing.T) {
	a := New(20*time.Millisecond,
		&fakeSource{kind: document.KindGoal, delay: 500 * time.Millisecond},
	)

	_, err := a.FetchDocuments(context.Background(), "u1")
	if !errors.Is(err, apperrors.ErrDataSource) {
		t.Errorf("err = %v, want ErrDataSource after timeout", err)
	}
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout in chain", err)
	}
}

func TestFetchDocumentsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(time.Second,
		&fakeSource{kind: document.KindGoal, docs: []document.Document{fakeDoc("g1", document.KindGoal)}},
	)
	_, err := a.FetchDocuments(ctx, "u1")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in chain", err)
	}
}

func TestFetchDocumentsNoSources(t *testing.T) {
	a := New(time.Second)
	_, err := a.FetchDocuments(context.Background(), "u1")
	if !errors.Is(err, apperrors.ErrDataSource) {
		t.Errorf("err = %v, want ErrDataSource", err)
	}
}
