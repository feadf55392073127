package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-cellar-auth/internal/errors"
)

// MemoryHub is shared in-process storage. Each repo opened on it behaves like a browser tab
// on the same origin.
type MemoryHub struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[chan Change]string // channel -> origin of the watching repo
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		data:     make(map[string][]byte),
		watchers: make(map[chan Change]string),
	}
}

// Open returns a repo with its own origin
func (h *MemoryHub) Open() *MemoryRepo {
	return &MemoryRepo{hub: h, origin: uuid.NewString()}
}

func (h *MemoryHub) publish(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch, origin := range h.watchers {
		if origin != c.Origin {
			notify(ch, c)
		}
	}
}

// MemoryRepo is an in-memory implementation of Repo
type MemoryRepo struct {
	hub    *MemoryHub
	origin string
}

var _ Repo = (*MemoryRepo)(nil)

// NewMemoryRepo creates a repo on a private hub
func NewMemoryRepo() *MemoryRepo {
	return NewMemoryHub().Open()
}

func (r *MemoryRepo) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	r.hub.mu.RLock()
	defer r.hub.mu.RUnlock()

	value, ok := r.hub.data[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (r *MemoryRepo) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	r.hub.mu.Lock()
	r.hub.data[key] = append([]byte(nil), value...)
	r.hub.mu.Unlock()

	r.hub.publish(Change{Key: key, Origin: r.origin})
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	r.hub.mu.Lock()
	_, existed := r.hub.data[key]
	delete(r.hub.data, key)
	r.hub.mu.Unlock()

	if existed {
		r.hub.publish(Change{Key: key, Origin: r.origin})
	}
	return nil
}

func (r *MemoryRepo) Watch(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, watchBuffer)

	r.hub.mu.Lock()
	r.hub.watchers[ch] = r.origin
	r.hub.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.hub.mu.Lock()
		delete(r.hub.watchers, ch)
		r.hub.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (r *MemoryRepo) Close() error {
	return nil
}
