package queue

// Option applies a configuration option to an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// withReporter replaces the metrics hook run after every size change.
func withReporter(fn func()) Option {
	return func(q *InMemoryQueue) { q.report = fn }
}
