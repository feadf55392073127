package config

import "time"

type SessionConfig interface {
	GetDefaultAccessTokenExpiry() time.Duration
	GetRefreshLeadTime() time.Duration
	GetMinRefreshDelay() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetDefaultAccessTokenExpiry is assumed when an access token carries no exp claim
func (Session) GetDefaultAccessTokenExpiry() time.Duration {
	return 15 * time.Minute
}

// GetRefreshLeadTime is how long before expiry the silent refresh fires
func (Session) GetRefreshLeadTime() time.Duration {
	return GetEnvDuration("REFRESH_LEAD_TIME", 60*time.Second)
}

// GetMinRefreshDelay keeps a nearly expired token from spinning the refresh timer
func (Session) GetMinRefreshDelay() time.Duration {
	return GetEnvDuration("MIN_REFRESH_DELAY", 5*time.Second)
}
