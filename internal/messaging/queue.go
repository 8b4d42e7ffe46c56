// Package messaging decouples page production from page persistence: a
// Sink can publish encoded records onto a queue instead of writing them
// directly, letting the consumer side batch, retry, or fan out independently
// of the crawl workers. Grounded on the teacher's root-level messaging
// package (Producer/Consumer/ProducerConsumerCloser split).
package messaging

// Producer exposes a single method to enqueue a payload of bytes.
type Producer interface {
	Produce([]byte) error
}

// Consumer connects to a queue, blocking while it forwards incoming payloads
// onto a channel.
type Consumer interface {
	Consume(chan<- []byte) error
}

// ProducerConsumer is the behavior of a simple message queue: it can both
// produce and consume payloads.
type ProducerConsumer interface {
	Producer
	Consumer
}

// ProducerConsumerCloser is a ProducerConsumer that owns a resource (a
// channel, a connection) that must be released once done.
type ProducerConsumerCloser interface {
	ProducerConsumer
	Close()
}
