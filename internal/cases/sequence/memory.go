package sequence

import (
	"context"
	"sync"
	"time"
)

// InMemoryCounter is a process-local Counter for tests and single-instance
// deployments. Expired keys restart at 1.
type InMemoryCounter struct {
	mu      sync.Mutex
	values  map[string]int64
	expires map[string]time.Time
	now     func() time.Time
}

func NewInMemoryCounter() *InMemoryCounter {
	return &InMemoryCounter{
		values:  make(map[string]int64),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (c *InMemoryCounter) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.expires[key]; ok && !now.Before(exp) {
		delete(c.values, key)
	}
	c.values[key]++
	if ttl > 0 {
		c.expires[key] = now.Add(ttl)
	}
	return c.values[key], nil
}
