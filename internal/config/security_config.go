package config

import "time"

type SecurityConfig interface {
	GetMaxSessionAge() time.Duration
	GetCookieHashKey() []byte
	GetCookieBlockKey() []byte
	GetCSRFKey() []byte
	GetEnableRateLimiting() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetMaxSessionAge() time.Duration {
	return 12 * time.Hour
}

// GetCookieHashKey authenticates the session cookie. In DEV a static key
// is acceptable; production must set COOKIE_HASH_KEY.
func (Security) GetCookieHashKey() []byte {
	return []byte(GetEnv("COOKIE_HASH_KEY", "divegate-dev-cookie-hash-key-0001"))
}

func (Security) GetCookieBlockKey() []byte {
	return []byte(GetEnv("COOKIE_BLOCK_KEY", "divegate-dev-block-key-32bytes!!"))
}

func (Security) GetCSRFKey() []byte {
	return []byte(GetEnv("CSRF_KEY", "divegate-dev-csrf-key-32-bytes!!"))
}

func (Security) GetEnableRateLimiting() bool {
	return GetEnv("ENABLE_RATE_LIMITING", "true") == "true"
}
