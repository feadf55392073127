package config

import (
	"path/filepath"
	"strings"
	"time"
)

// StubConfig configures the development auth backend
type StubConfig interface {
	GetJWTSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetRotateRefreshTokens() bool
	GetRegisterAutoLogin() bool
	GetSeedPassword() string
	GetSeedDomain() string
	GetStubPort() string
	GetSigningAlgorithm() string
	GetSigningKeyFile() string
}

type Stub struct{}

var _ StubConfig = Stub{}

func (Stub) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "cellar-dev-secret")
}

func (Stub) GetAccessTokenTTL() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
}

func (Stub) GetRefreshTokenTTL() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour) // 7 days
}

// GetRotateRefreshTokens decides whether /api/token/refresh/ issues a new refresh token
func (Stub) GetRotateRefreshTokens() bool {
	return GetEnvBool("ROTATE_REFRESH_TOKENS", true)
}

// GetRegisterAutoLogin decides whether /api/register/ returns tokens or a confirmation message
func (Stub) GetRegisterAutoLogin() bool {
	return GetEnvBool("REGISTER_AUTO_LOGIN", true)
}

// GetSeedPassword is the password of the seeded admin, staff and customer accounts
func (Stub) GetSeedPassword() string {
	return GetEnv("SEED_PASSWORD", "secret123")
}

// GetStubPort is the listen address of the development auth backend
func (Stub) GetStubPort() string {
	port := GetEnv("STUB_PORT", "8000")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

// GetSigningAlgorithm is HS256 (shared JWT_SECRET) or RS256 (key pair in GetSigningKeyFile)
func (Stub) GetSigningAlgorithm() string {
	return strings.ToUpper(GetEnv("JWT_SIGNING_ALG", "HS256"))
}

func (Stub) GetSigningKeyFile() string {
	return GetEnv("JWT_KEY_FILE", filepath.Join(EnvVars{}.GetDataFolder(), "stub", "signing.pem"))
}

// GetSeedDomain is the email domain of the seeded accounts, e.g. admin@cellar.test
func (Stub) GetSeedDomain() string {
	return GetEnv("SEED_DOMAIN", "cellar.test")
}
