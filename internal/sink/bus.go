package sink

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/devctx/asyncrawler/internal/messaging"
)

// BusSink decouples record production from persistence by publishing each
// Record onto a messaging.ProducerConsumerCloser and persisting it to an
// underlying Sink from a dedicated consumer goroutine, the way the teacher's
// WebCrawler forwards ParsedResult payloads through a Producer instead of
// writing them inline from the fetch goroutine.
type BusSink struct {
	queue    messaging.ProducerConsumerCloser
	dest     Sink
	logger   *log.Logger
	events   chan []byte
	consumed chan struct{}
	closeMu  sync.Once
}

// NewBusSink starts a consumer goroutine draining queue and saving each
// decoded Record into dest. logger receives a line for every record that
// fails to decode or persist; a nil logger discards them.
func NewBusSink(queue messaging.ProducerConsumerCloser, dest Sink, logger *log.Logger) *BusSink {
	if logger == nil {
		logger = log.New(noopWriter{}, "", 0)
	}

	b := &BusSink{
		queue:    queue,
		dest:     dest,
		logger:   logger,
		events:   make(chan []byte),
		consumed: make(chan struct{}),
	}

	go func() {
		if err := queue.Consume(b.events); err != nil {
			b.logger.Printf("sink: queue consume stopped: %v", err)
		}
		close(b.events)
	}()

	go func() {
		defer close(b.consumed)
		b.drain()
	}()

	return b
}

func (b *BusSink) drain() {
	for payload := range b.events {
		var r Record
		if err := json.Unmarshal(payload, &r); err != nil {
			b.logger.Printf("sink: dropping malformed record: %v", err)
			continue
		}
		if err := b.dest.Save(r); err != nil {
			b.logger.Printf("sink: failed to persist %s: %v", r.URL, err)
		}
	}
}

// Save encodes r and publishes it onto the queue; the consumer goroutine
// persists it asynchronously.
func (b *BusSink) Save(r Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sink: cannot encode record: %w", err)
	}
	return b.queue.Produce(payload)
}

// Close closes the queue, waits for the consumer goroutine to drain
// whatever is left, then closes the underlying sink.
func (b *BusSink) Close() error {
	var err error
	b.closeMu.Do(func() {
		b.queue.Close()
		<-b.consumed
		err = b.dest.Close()
	})
	return err
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
