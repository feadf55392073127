package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-cellar-auth/storage"
)

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the random token string; the record is keyed by its hash.
type StoredRefreshToken struct {
	UserID string    `json:"userId"`
	Iat    time.Time `json:"iat"`
}

// Repo manages server-side storage of refresh token metadata
type Repo interface {
	Upsert(ctx context.Context, token string, rt StoredRefreshToken) error
	Delete(ctx context.Context, token string) error
	Get(ctx context.Context, token string) (*StoredRefreshToken, error)
}

// StorageRepo keeps refresh tokens in a storage.Repo, so the stub can share them across
// replicas through redis or keep them across restarts on disk
type StorageRepo struct {
	repo storage.Repo
}

var _ Repo = (*StorageRepo)(nil)

func NewStorageRepo(repo storage.Repo) *StorageRepo {
	return &StorageRepo{repo: repo}
}

func (r *StorageRepo) Upsert(ctx context.Context, token string, rt StoredRefreshToken) error {
	data, err := json.Marshal(rt)
	if err != nil {
		return fmt.Errorf("[refresh StorageRepo Upsert] %w", err)
	}
	return r.repo.Set(ctx, tokenKey(token), data)
}

func (r *StorageRepo) Delete(ctx context.Context, token string) error {
	return r.repo.Delete(ctx, tokenKey(token))
}

// Get returns the record for token, or an error wrapping errors.ErrNotFound
func (r *StorageRepo) Get(ctx context.Context, token string) (*StoredRefreshToken, error) {
	data, err := r.repo.Get(ctx, tokenKey(token))
	if err != nil {
		return nil, err
	}
	var rt StoredRefreshToken
	if err := json.Unmarshal(data, &rt); err != nil {
		return nil, fmt.Errorf("[refresh StorageRepo Get] corrupt record: %w", err)
	}
	return &rt, nil
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "rt-" + hex.EncodeToString(sum[:])
}
