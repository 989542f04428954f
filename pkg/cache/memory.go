package cache

import (
	"bytes"
	"compress/zlib"
	"container/list"
	"context"
	"io"
	"sync"
	"time"
)

// sweepInterval is how often the background sweeper drops expired entries.
const sweepInterval = 10 * time.Second

type memoryEntry struct {
	key       string
	payload   []byte
	expiresAt time.Time
}

// Memory is an in-memory LRU cache with TTL expiration, optional zlib
// compression, and byte accounting. A background sweeper removes expired
// entries; Get also expires lazily.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List // front = most recently used
	maxItems int
	compress bool
	metrics  *Metrics
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a memory cache holding at most maxItems entries and
// starts its sweeper. Call Close to stop the sweeper.
func NewMemory(maxItems int, compress bool) *Memory {
	if maxItems <= 0 {
		maxItems = 1024
	}
	m := &Memory{
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		maxItems: maxItems,
		compress: compress,
		metrics:  &Metrics{},
		stop:     make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Get returns the cached value if present and not expired.
func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	el, ok := m.entries[key]
	if !ok {
		m.mu.Unlock()
		m.metrics.misses.Add(1)
		return "", false
	}
	entry := el.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		m.removeLocked(el)
		m.mu.Unlock()
		m.metrics.misses.Add(1)
		return "", false
	}
	m.lru.MoveToFront(el)
	payload := entry.payload
	m.mu.Unlock()

	value, err := m.decode(payload)
	if err != nil {
		m.metrics.misses.Add(1)
		return "", false
	}
	m.metrics.hits.Add(1)
	return value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) {
	payload := m.encode(value)
	expiresAt := time.Now().Add(ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		m.metrics.bytes.Add(int64(len(payload) - len(entry.payload)))
		entry.payload = payload
		entry.expiresAt = expiresAt
		m.lru.MoveToFront(el)
		return
	}

	if m.lru.Len() >= m.maxItems {
		if oldest := m.lru.Back(); oldest != nil {
			m.removeLocked(oldest)
			m.metrics.evictions.Add(1)
		}
	}

	el := m.lru.PushFront(&memoryEntry{key: key, payload: payload, expiresAt: expiresAt})
	m.entries[key] = el
	m.metrics.items.Add(1)
	m.metrics.bytes.Add(int64(len(payload)))
}

// Metrics returns the cache's counters.
func (m *Memory) Metrics() MetricsSnapshot { return m.metrics.Snapshot() }

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Close stops the background sweeper.
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweepExpired(time.Now())
		}
	}
}

func (m *Memory) sweepExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []*list.Element
	for el := m.lru.Back(); el != nil; el = el.Prev() {
		if now.After(el.Value.(*memoryEntry).expiresAt) {
			expired = append(expired, el)
		}
	}
	for _, el := range expired {
		m.removeLocked(el)
	}
}

// removeLocked drops an element and adjusts accounting. Callers hold m.mu.
func (m *Memory) removeLocked(el *list.Element) {
	entry := el.Value.(*memoryEntry)
	m.lru.Remove(el)
	delete(m.entries, entry.key)
	m.metrics.items.Add(-1)
	m.metrics.bytes.Add(-int64(len(entry.payload)))
}

func (m *Memory) encode(value string) []byte {
	if !m.compress {
		return []byte(value)
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write([]byte(value))
	_ = w.Close()
	return buf.Bytes()
}

func (m *Memory) decode(payload []byte) (string, error) {
	if !m.compress {
		return string(payload), nil
	}
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
