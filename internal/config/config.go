package config

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	GuardConfig
	ClientConfig
	StubConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
	GetBaseURL() string
	GetAPIBaseURL() string
	GetStorage() StorageKind
	GetRedisAddr() string
	GetRedisPrefix() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Guard
	Client
	Stub
}

func New() Config {
	return mainConfig{}
}
