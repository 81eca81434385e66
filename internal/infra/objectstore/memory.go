package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// Memory is an in-process Store. With a byte cap set, the oldest objects
// are evicted to make room for new ones.
type Memory struct {
	mu       sync.RWMutex
	objects  map[string]memoryObject
	order    []string
	size     int64
	maxBytes int64
	baseURL  string
	public   bool
}

// NewMemory creates a memory store whose URLs are rooted at baseURL.
func NewMemory(baseURL string, public bool) *Memory {
	if baseURL == "" {
		baseURL = "memory://objects"
	}
	return &Memory{objects: make(map[string]memoryObject), baseURL: baseURL, public: public}
}

// WithMaxBytes caps the total stored bytes. Zero means unbounded.
func (m *Memory) WithMaxBytes(n int64) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxBytes = n
	return m
}

func (m *Memory) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrExists)
	}
	if m.maxBytes > 0 && int64(len(data)) > m.maxBytes {
		return fmt.Errorf("%s: object of %d bytes exceeds store cap", key, len(data))
	}
	for m.maxBytes > 0 && m.size+int64(len(data)) > m.maxBytes && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		m.size -= int64(len(m.objects[oldest].data))
		delete(m.objects, oldest)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = memoryObject{data: cp, contentType: contentType}
	m.order = append(m.order, key)
	m.size += int64(len(cp))
	return nil
}

func (m *Memory) PublicURL(key string) string {
	return m.baseURL + "/" + key
}

func (m *Memory) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	q := url.Values{}
	q.Set("expires", fmt.Sprintf("%d", time.Now().Add(ttl).Unix()))
	return m.baseURL + "/" + key + "?" + q.Encode(), nil
}

func (m *Memory) Public() bool { return m.public }

// Get returns a stored object.
func (m *Memory) Get(key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return obj.data, obj.contentType, nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
