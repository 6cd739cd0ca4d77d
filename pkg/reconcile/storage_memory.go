package reconcile

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// watchBuffer is the per-watcher channel capacity. Changes are dropped when a
// watcher falls behind; the periodic check covers the gap.
const watchBuffer = 16

// MemoryBackend is process-local storage shared by several handles, the
// equivalent of one browser profile's local storage.
type MemoryBackend struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers map[string]map[chan Change]struct{} // handle id -> channels
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data:     make(map[string]string),
		watchers: make(map[string]map[chan Change]struct{}),
	}
}

// Handle returns a new handle (one per tab).
func (b *MemoryBackend) Handle() *MemoryStorage {
	return &MemoryStorage{backend: b, id: uuid.New().String()}
}

func (b *MemoryBackend) broadcast(origin string, c Change) {
	for id, chans := range b.watchers {
		if id == origin {
			continue
		}
		for ch := range chans {
			select {
			case ch <- c:
			default:
			}
		}
	}
}

// MemoryStorage is one handle on a MemoryBackend.
type MemoryStorage struct {
	backend *MemoryBackend
	id      string
}

// Get returns the value for key.
func (s *MemoryStorage) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	v, ok := s.backend.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key and notifies other handles.
func (s *MemoryStorage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.data[key] = value
	s.backend.broadcast(s.id, Change{Key: key})
	return nil
}

// Remove deletes key and notifies other handles.
func (s *MemoryStorage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if _, ok := s.backend.data[key]; !ok {
		return nil
	}
	delete(s.backend.data, key)
	s.backend.broadcast(s.id, Change{Key: key, Removed: true})
	return nil
}

// Watch subscribes to changes made through other handles.
func (s *MemoryStorage) Watch(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, watchBuffer)

	b := s.backend
	b.mu.Lock()
	if b.watchers[s.id] == nil {
		b.watchers[s.id] = make(map[chan Change]struct{})
	}
	b.watchers[s.id][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.watchers[s.id], ch)
		if len(b.watchers[s.id]) == 0 {
			delete(b.watchers, s.id)
		}
		close(ch)
		b.mu.Unlock()
	}()

	return ch, nil
}
