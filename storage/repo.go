package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/jrsteele09/go-cellar-auth/internal/errors"
)

// Change announces that a key was written or removed by another writer
type Change struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Repo is durable key/value storage for the session record. Every instance has its own
// origin; Watch only reports changes made through other instances sharing the same backing
// store (another tab, another terminal process, another server replica).
//
// Notifications are coalesced: a watcher that falls behind may miss intermediate changes but
// always sees one that happened after the last value it could read.
type Repo interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Watch(ctx context.Context) (<-chan Change, error)
	Close() error
}

const watchBuffer = 16

// externalOrigin marks changes whose writer cannot be identified (file storage)
const externalOrigin = "external"

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("[storage] key is required: %w", errors.ErrInvalidRequest)
	}
	if strings.HasPrefix(key, ".") || strings.ContainsFunc(key, func(r rune) bool {
		return r == '/' || r == '\\' || unicode.IsSpace(r)
	}) {
		return fmt.Errorf("[storage] invalid key %q: %w", key, errors.ErrInvalidRequest)
	}
	return nil
}

// notify delivers without blocking; a full buffer already holds a pending change
func notify(ch chan Change, c Change) {
	select {
	case ch <- c:
	default:
	}
}
