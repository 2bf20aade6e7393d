package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/careconnect/unisearch/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
	notify  chan struct{}
}

func (f *fakePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	batch := make([]kafka.Event, len(events))
	copy(batch, events)
	f.batches = append(f.batches, batch)
	if f.notify != nil {
		select {
		case f.notify <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakePublisher) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, batch := range f.batches {
		n += len(batch)
	}
	return n
}

func TestCollectorFlushesAtBatchSize(t *testing.T) {
	pub := &fakePublisher{notify: make(chan struct{}, 1)}
	c := NewCollector(pub, 3, time.Hour)

	for i := 0; i < 3; i++ {
		c.TrackSearch(SearchEvent{
			Type:    EventSearch,
			OwnerID: "u1",
			Query:   fmt.Sprintf("query %d", i),
		})
	}

	select {
	case <-pub.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("no flush after the batch size was reached")
	}
	if got := pub.published(); got != 3 {
		t.Errorf("published %d events, want 3", got)
	}
	if got := c.BufferLen(); got != 0 {
		t.Errorf("BufferLen() = %d after flush, want 0", got)
	}
}

func TestCollectorTickerFlush(t *testing.T) {
	pub := &fakePublisher{notify: make(chan struct{}, 1)}
	c := NewCollector(pub, 100, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.TrackBuild(BuildEvent{Type: EventIndexBuild, OwnerID: "u1", DocumentsIndexed: 2})

	select {
	case <-pub.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("interval flush never happened")
	}
	cancel()
	c.Close()

	if got := pub.published(); got != 1 {
		t.Errorf("published %d events, want 1", got)
	}
}

// TestCollectorFinalFlushOnShutdown checks that events still buffered when
// the context is cancelled are drained before Close returns.
func TestCollectorFinalFlushOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.TrackSearch(SearchEvent{Type: EventZeroResult, OwnerID: "u1", Query: "nothing"})
	cancel()
	c.Close()

	if got := pub.published(); got != 1 {
		t.Errorf("published %d events after shutdown, want 1", got)
	}
}

// TestCollectorRequeueCapped checks that a failing publisher re-queues the
// batch but never grows the buffer past three full batches.
func TestCollectorRequeueCapped(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	c := NewCollector(pub, 2, time.Hour)

	c.mu.Lock()
	for i := 0; i < 10; i++ {
		c.buffer = append(c.buffer, kafka.Event{
			Key:   "u1",
			Value: SearchEvent{Type: EventSearch, OwnerID: "u1", Query: fmt.Sprintf("q%d", i)},
		})
	}
	c.mu.Unlock()

	c.flush(context.Background())

	if got := c.BufferLen(); got != 6 {
		t.Errorf("BufferLen() = %d after failed flush, want cap of 6", got)
	}
	if got := pub.published(); got != 0 {
		t.Errorf("published %d events through a failing publisher, want 0", got)
	}
}

func TestCollectorCloseWithoutStart(t *testing.T) {
	c := NewCollector(&fakePublisher{}, 10, time.Hour)

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a collector that was never started")
	}
}
