package store

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Client used by tests. It implements the same
// ETag precondition semantics as the S3 transport.
type Memory struct {
	mu      sync.Mutex
	objects map[string]*memObject
	created bool

	// FailGets, when set, makes every GetObject return this error. Tests
	// use it to simulate transport failures distinct from not-found.
	FailGets error
}

type memObject struct {
	data        []byte
	contentType string
	etag        string
	modified    time.Time
}

// Ensure Memory implements Client
var _ Client = (*Memory)(nil)

// NewMemory returns an empty in-memory store with an existing bucket.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]*memObject),
		created: true,
	}
}

func (m *Memory) ListObjects(ctx context.Context) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	infos := make([]ObjectInfo, 0, len(keys))
	for _, k := range keys {
		obj := m.objects[k]
		infos = append(infos, ObjectInfo{
			Key:          k,
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
			ETag:         obj.etag,
		})
	}
	return infos, nil
}

func (m *Memory) GetObject(ctx context.Context, key string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailGets != nil {
		return nil, &TransportError{Op: "get", Key: key, Err: m.FailGets}
	}

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, ErrObjectNotFound)
	}

	return &Object{
		Data:         append([]byte(nil), obj.data...),
		ETag:         obj.etag,
		ContentType:  obj.contentType,
		LastModified: obj.modified,
	}, nil
}

func (m *Memory) PutObject(ctx context.Context, key string, data []byte, opts PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.objects[key]
	if opts.IfMatch != "" && (!exists || existing.etag != opts.IfMatch) {
		return fmt.Errorf("object %s: %w", key, ErrPreconditionFailed)
	}
	if opts.IfNoneMatchAny && exists {
		return fmt.Errorf("object %s: %w", key, ErrPreconditionFailed)
	}

	m.objects[key] = &memObject{
		data:        append([]byte(nil), data...),
		contentType: opts.ContentType,
		etag:        fmt.Sprintf("%x", md5.Sum(data)),
		modified:    time.Now().UTC(),
	}
	return nil
}

func (m *Memory) BucketExists(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, nil
}

func (m *Memory) EnsureBucket(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = true
	return nil
}

// Tamper flips one byte of a stored object without touching anything else.
// Only tests use this.
func (m *Memory) Tamper(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[key]
	if !ok || len(obj.data) == 0 {
		return false
	}
	obj.data[0] ^= 0xFF
	return true
}
