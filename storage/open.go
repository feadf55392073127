package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Open builds the repo selected by STORAGE. namespace separates independent session
// records sharing one backend (one per terminal, one per storefront).
func Open(ctx context.Context, cfg config.EnvConfig, namespace string) (Repo, error) {
	switch cfg.GetStorage() {
	case config.StorageMemory:
		log.Info().Str("namespace", namespace).Msg("session storage: memory")
		return NewMemoryRepo(), nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("[storage Open] redis %s: %w", cfg.GetRedisAddr(), err)
		}
		prefix := cfg.GetRedisPrefix() + namespace + ":"
		log.Info().Str("addr", cfg.GetRedisAddr()).Str("prefix", prefix).Msg("session storage: redis")
		return NewRedisRepo(client, prefix), nil

	default:
		dir := filepath.Join(cfg.GetDataFolder(), namespace)
		log.Info().Str("dir", dir).Msg("session storage: file")
		return NewFileRepo(dir)
	}
}
