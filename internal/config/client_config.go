package config

import "time"

type ClientConfig interface {
	GetHTTPRetryMax() int
	GetHTTPRetryWaitMin() time.Duration
	GetHTTPRetryWaitMax() time.Duration
	GetHTTPTimeout() time.Duration
}

type Client struct{}

var _ ClientConfig = Client{}

func (Client) GetHTTPRetryMax() int {
	return GetEnvInt("HTTP_RETRY_MAX", 2)
}

func (Client) GetHTTPRetryWaitMin() time.Duration {
	return GetEnvDuration("HTTP_RETRY_WAIT_MIN", 200*time.Millisecond)
}

func (Client) GetHTTPRetryWaitMax() time.Duration {
	return GetEnvDuration("HTTP_RETRY_WAIT_MAX", 2*time.Second)
}

func (Client) GetHTTPTimeout() time.Duration {
	return GetEnvDuration("HTTP_TIMEOUT", 10*time.Second)
}
