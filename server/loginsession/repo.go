package loginsession

import "time"

// Session is the shell-local login session created at sign-in and torn
// down at sign-out. It holds the provider-issued tokens and the identity
// claims from the ID token. Identity snapshots are never stored here; they
// are re-fetched on every resolution pass.
type Session struct {
	// Identity claims from the verified ID token
	Subject string
	Email   string
	Name    string

	// Tokens (refresh is essential, access is convenience)
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time

	// Session management
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repo interface {
	Upsert(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
}
