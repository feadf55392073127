package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	folderEnvVar      = "FOLDER"
	baseURLVar        = "BASE_URL"
	apiBaseURLVar     = "API_BASE_URL"
	storageEnvVar     = "STORAGE"
	redisAddrEnvVar   = "REDIS_ADDR"
	redisPrefixEnvVar = "REDIS_PREFIX"
	logLevelEnvVar    = "LOG_LEVEL"
)

// StorageKind selects the durable session storage backend
type StorageKind string

const (
	StorageMemory StorageKind = "memory"
	StorageFile   StorageKind = "file"
	StorageRedis  StorageKind = "redis"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Cellar")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the public URL of the storefront (e.g., "https://shop.example.com")
// Cookies mirrored by session clients are scoped to this URL
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetAPIBaseURL returns the base URL of the remote REST backend that owns the auth endpoints
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8000"), "/")
}

func (EnvVars) GetStorage() StorageKind {
	switch kind := StorageKind(strings.ToLower(GetEnv(storageEnvVar, string(StorageFile)))); kind {
	case StorageMemory, StorageFile, StorageRedis:
		return kind
	default:
		return StorageFile
	}
}

func (EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrEnvVar, "localhost:6379")
}

func (EnvVars) GetRedisPrefix() string {
	return GetEnv(redisPrefixEnvVar, "cellar:")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a Go duration ("90s", "15m"), falling back on absence or error
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
