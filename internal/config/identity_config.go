package config

import (
	"time"
)

type IdentityConfig interface {
	GetIdentityBaseURL() string
	GetResolveTimeout() time.Duration
}

type Identity struct{}

var _ IdentityConfig = Identity{}

// GetIdentityBaseURL returns the base URL of the backend that serves
// /api/v1/me.
func (Identity) GetIdentityBaseURL() string {
	return GetEnv("IDENTITY_BASE_URL", "http://localhost:9090")
}

// GetResolveTimeout bounds a single resolution pass. A hung identity call
// falls into the fail-open path instead of spinning forever.
func (Identity) GetResolveTimeout() time.Duration {
	raw := GetEnv("RESOLVE_TIMEOUT", "")
	if raw == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
