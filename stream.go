package bookline

import "sync/atomic"

// Generator yields a sequence of values until completion, in the style of
// iter.Seq2. Consumers range over it; returning false from yield stops the
// producer.
type Generator[T, E any] func(yield func(T, E) bool)

// StreamPipe directs the yielding of values produced on another goroutine.
type StreamPipe[T any] struct {
	err    error
	closed atomic.Bool
	queue  chan T
	next   T
}

// NewStreamPipe creates a new StreamPipe director.
func NewStreamPipe[T any]() *StreamPipe[T] {
	return &StreamPipe[T]{
		queue: make(chan T, 8),
	}
}

// Send enqueues a value for the consumer.
func (d *StreamPipe[T]) Send(v T) {
	d.queue <- v
}

// Next returns true if there is a value to yield.
func (d *StreamPipe[T]) Next() bool {
	v, ok := <-d.queue
	if !ok {
		return false
	}
	d.next = v
	return true
}

// Current returns the value and any terminal error. The error is only
// meaningful once Next has returned false.
func (d *StreamPipe[T]) Current() (T, error) {
	return d.next, d.err
}

// Go runs the provided function in a goroutine, closing the StreamPipe when done.
func (d *StreamPipe[T]) Go(fn func() error) {
	go func() {
		defer d.Close()
		d.err = fn()
	}()
}

// Close closes the StreamPipe.
func (d *StreamPipe[T]) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	close(d.queue)
	return nil
}
