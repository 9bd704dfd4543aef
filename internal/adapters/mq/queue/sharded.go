package queue

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/guessr/pkg/metrics"
)

// Sharded splits jobs across independent queues by user id, so every write
// for one user lands on the same shard and is applied in order by that
// shard's single consumer.
type Sharded struct {
	shards   []*InMemoryQueue
	capacity int
}

// NewSharded creates n shards sharing capacity between them.
func NewSharded(n, capacity int) *Sharded {
	if n < 1 {
		n = 1
	}
	if capacity < n {
		capacity = n
	}
	s := &Sharded{shards: make([]*InMemoryQueue, n)}
	per := capacity / n
	for i := range s.shards {
		s.shards[i] = NewInMemoryQueue(WithCapacity(per), withReporter(s.report))
		s.capacity += per
	}
	metrics.UpdateQueueCapacity(s.capacity)
	s.report()
	return s
}

// ShardFor returns the shard index for userID.
func (s *Sharded) ShardFor(userID string) int {
	return int(xxhash.Sum64String(userID) % uint64(len(s.shards)))
}

// Shard returns shard i.
func (s *Sharded) Shard(i int) *InMemoryQueue { return s.shards[i] }

// NumShards returns the shard count.
func (s *Sharded) NumShards() int { return len(s.shards) }

// Enqueue implements Queue.
func (s *Sharded) Enqueue(ctx context.Context, j Job) error {
	return s.shards[s.ShardFor(j.Update.UserID)].Enqueue(ctx, j)
}

// Len implements Queue.
func (s *Sharded) Len(ctx context.Context) int {
	n := 0
	for _, q := range s.shards {
		n += q.Len(ctx)
	}
	return n
}

// Close implements Queue.
func (s *Sharded) Close() error {
	for _, q := range s.shards {
		_ = q.Close()
	}
	return nil
}

// IsClosed implements Queue.
func (s *Sharded) IsClosed() bool { return s.shards[0].IsClosed() }

func (s *Sharded) report() {
	// shards still being built report before s.shards is filled
	n := 0
	for _, q := range s.shards {
		if q != nil && q.jobs != nil {
			n += len(q.jobs)
		}
	}
	metrics.UpdateQueueSize(n)
	if s.capacity > 0 {
		metrics.UpdateQueueUtilization(float64(n) / float64(s.capacity))
	}
}
