package cache

import (
	"sort"
	"sync"
	"time"
)

// DefaultCapacity is the number of topics kept per module.
const DefaultCapacity = 5

// Entry is one cached item. Touched is refreshed on every Put and Touch.
type Entry[T any] struct {
	Key     string    `json:"key"`
	Value   T         `json:"value"`
	Touched time.Time `json:"touched"`
}

// ContentCache is an in-memory map of "moduleID:topic" keys with a per-module capacity.
// When a new key would push its module over capacity, the module's entry with the oldest
// timestamp is evicted first. Other modules are never affected.
type ContentCache[T any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*Entry[T]
	now      func() time.Time
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewContentCache[T any](capacity int, opts ...Option) *ContentCache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ContentCache[T]{
		capacity: capacity,
		entries:  make(map[string]*Entry[T]),
		now:      o.now,
	}
}

// Put stores value under key and returns the key it evicted, if any.
func (c *ContentCache[T]) Put(key string, value T) (evicted string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, found := c.entries[key]; found {
		existing.Value = value
		existing.Touched = c.now()
		return "", false
	}

	prefix := KeyPrefix(key)
	if c.countLocked(prefix) >= c.capacity {
		evicted = c.oldestLocked(prefix)
		delete(c.entries, evicted)
		ok = true
	}

	c.entries[key] = &Entry[T]{Key: key, Value: value, Touched: c.now()}
	return evicted, ok
}

// Get does not refresh the timestamp; callers that serve a hit call Touch.
func (c *ContentCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return entry.Value, true
}

// Touch refreshes the timestamp of key without changing its value.
func (c *ContentCache[T]) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok {
		entry.Touched = c.now()
	}
	return ok
}

func (c *ContentCache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// ClearPrefix drops every entry of one module and returns how many were removed.
func (c *ContentCache[T]) ClearPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if KeyPrefix(key) == prefix {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *ContentCache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry[T])
	c.mu.Unlock()
}

// Len counts the entries under prefix, or all entries when prefix is "".
func (c *ContentCache[T]) Len(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prefix == "" {
		return len(c.entries)
	}
	return c.countLocked(prefix)
}

// Keys returns the keys under prefix sorted by key.
func (c *ContentCache[T]) Keys(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string
	for key := range c.entries {
		if prefix == "" || KeyPrefix(key) == prefix {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Snapshot copies all entries, ordered by key.
func (c *ContentCache[T]) Snapshot() []Entry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry[T], 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Restore replaces the contents with entries. Capacity is enforced per prefix by keeping
// the most recently touched entries.
func (c *ContentCache[T]) Restore(entries []Entry[T]) {
	sorted := append([]Entry[T](nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Touched.After(sorted[j].Touched) })

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry[T], len(sorted))
	perPrefix := make(map[string]int)
	for i := range sorted {
		e := sorted[i]
		prefix := KeyPrefix(e.Key)
		if _, dup := c.entries[e.Key]; dup || perPrefix[prefix] >= c.capacity {
			continue
		}
		perPrefix[prefix]++
		c.entries[e.Key] = &e
	}
}

func (c *ContentCache[T]) countLocked(prefix string) int {
	n := 0
	for key := range c.entries {
		if KeyPrefix(key) == prefix {
			n++
		}
	}
	return n
}

// oldestLocked picks the smallest timestamp, breaking ties by key.
func (c *ContentCache[T]) oldestLocked(prefix string) string {
	var oldest *Entry[T]
	for key, e := range c.entries {
		if KeyPrefix(key) != prefix {
			continue
		}
		if oldest == nil || e.Touched.Before(oldest.Touched) ||
			(e.Touched.Equal(oldest.Touched) && e.Key < oldest.Key) {
			oldest = e
		}
	}
	return oldest.Key
}
