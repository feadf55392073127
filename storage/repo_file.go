package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/jrsteele09/go-cellar-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

// FileRepo keeps one file per key in a folder. Processes on the same host that open the same
// folder see each other's writes through fsnotify.
type FileRepo struct {
	dir string

	mu    sync.Mutex
	known map[string][]byte // last content written or observed per key; nil means absent
}

var _ Repo = (*FileRepo)(nil)

func NewFileRepo(dir string) (*FileRepo, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("[FileRepo NewFileRepo] create %s: %w", dir, err)
	}
	return &FileRepo{
		dir:   dir,
		known: make(map[string][]byte),
	}, nil
}

func (r *FileRepo) path(key string) string {
	return filepath.Join(r.dir, key)
}

func (r *FileRepo) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path(key))
	if os.IsNotExist(err) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[FileRepo Get] read %s: %w", key, err)
	}
	return data, nil
}

// Set replaces the file atomically so readers never see a partial record
func (r *FileRepo) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("[FileRepo Set] temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileRepo Set] write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileRepo Set] close %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Rename(tmpName, r.path(key)); err != nil {
		return fmt.Errorf("[FileRepo Set] rename %s: %w", key, err)
	}
	r.known[key] = append([]byte{}, value...)
	return nil
}

func (r *FileRepo) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(r.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[FileRepo Delete] remove %s: %w", key, err)
	}
	r.known[key] = nil
	return nil
}

// Watch reports changes whose content differs from what this repo last wrote or saw
func (r *FileRepo) Watch(ctx context.Context) (<-chan Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("[FileRepo Watch] new watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("[FileRepo Watch] watch %s: %w", r.dir, err)
	}

	ch := make(chan Change, watchBuffer)
	go func() {
		defer close(ch)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				key := filepath.Base(event.Name)
				if strings.HasPrefix(key, ".") || validateKey(key) != nil {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if r.observe(key) {
					notify(ch, Change{Key: key, Origin: externalOrigin})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("dir", r.dir).Msg("FileRepo watcher error")
			}
		}
	}()
	return ch, nil
}

// observe records the current content of key and reports whether it changed
func (r *FileRepo) observe(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := os.ReadFile(r.path(key))
	if err != nil {
		current = nil
	}
	previous, seen := r.known[key]
	if seen && bytes.Equal(previous, current) && (previous == nil) == (current == nil) {
		return false
	}
	r.known[key] = current
	return true
}

func (r *FileRepo) Close() error {
	return nil
}
