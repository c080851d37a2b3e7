package cache

import "sync"

// TurnCache holds values derived from frames, keyed by turn, so repeated
// inspection of the same turn does not rebuild them. When capacity is
// positive the oldest inserted turn is evicted once the cache is full.
type TurnCache[T any] struct {
	mu       sync.RWMutex
	capacity int
	values   map[int]T
	order    []int
}

// NewTurnCache creates a new TurnCache. capacity <= 0 means unbounded.
func NewTurnCache[T any](capacity int) *TurnCache[T] {
	return &TurnCache[T]{
		capacity: capacity,
		values:   make(map[int]T),
	}
}

// Get retrieves the value cached for turn
func (c *TurnCache[T]) Get(turn int) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[turn]
	return v, ok
}

// Set stores the value for turn
func (c *TurnCache[T]) Set(turn int, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[turn]; !ok {
		if c.capacity > 0 && len(c.values) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.values, oldest)
		}
		c.order = append(c.order, turn)
	}
	c.values[turn] = v
}

// GetOrCreate returns the cached value for turn, building and storing it
// with build on a miss.
func (c *TurnCache[T]) GetOrCreate(turn int, build func() T) T {
	if v, ok := c.Get(turn); ok {
		return v
	}
	v := build()
	c.Set(turn, v)
	return v
}

// Len returns the number of cached turns
func (c *TurnCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Reset clears all cached turns
func (c *TurnCache[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[int]T)
	c.order = nil
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

func (c *SafeCounter) Add(n int) {
	c.mu.Lock()
	c.v += n
	c.mu.Unlock()
}
