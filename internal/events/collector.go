package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/careconnect/unisearch/pkg/kafka"
	"github.com/careconnect/unisearch/pkg/logger"
)

// BatchPublisher is the sink flushed batches are written to.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector accumulates analytics events and flushes them to the publisher
// either when the batch reaches a configurable size or after a time
// interval, whichever comes first. Tracking never blocks the request path.
type Collector struct {
	producer      BatchPublisher
	mu            sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	started       bool
	done          chan struct{}
}

// NewCollector creates a Collector flushing at batchSize events or every
// flushInterval.
func NewCollector(producer BatchPublisher, batchSize int, flushInterval time.Duration) *Collector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		producer:      producer,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger.WithComponent("event-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop, which runs until ctx is
// cancelled and then performs a final flush. Calling Start twice is a no-op.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("event collector started",
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// TrackSearch buffers a search event, keyed by owner for partition affinity.
func (c *Collector) TrackSearch(event SearchEvent) {
	c.track(event.OwnerID, event)
}

// TrackBuild buffers an index build event.
func (c *Collector) TrackBuild(event BuildEvent) {
	c.track(event.OwnerID, event)
}

func (c *Collector) track(key string, value any) {
	c.mu.Lock()
	c.buffer = append(c.buffer, kafka.Event{Key: key, Value: value})
	shouldFlush := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if shouldFlush {
		go c.flush(context.Background())
	}
}

// Close waits for the background flush loop to finish. It returns
// immediately when Start was never called.
func (c *Collector) Close() {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return
	}
	<-c.done
}

// BufferLen returns the current number of buffered events.
func (c *Collector) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

func (c *Collector) flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]kafka.Event, 0, c.batchSize)
	c.mu.Unlock()

	if err := c.producer.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("batch flush failed",
			"batch_size", len(batch),
			"error", err,
		)
		// Re-queue failed events, capped so repeated failures cannot grow
		// the buffer without bound.
		c.mu.Lock()
		c.buffer = append(batch, c.buffer...)
		if len(c.buffer) > c.batchSize*3 {
			dropped := len(c.buffer) - c.batchSize*3
			c.buffer = c.buffer[:c.batchSize*3]
			c.logger.Warn("buffer overflow, events dropped", "dropped", dropped)
		}
		c.mu.Unlock()
		return
	}

	c.logger.Debug("batch flushed", "events", len(batch))
}
