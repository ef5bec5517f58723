package authflowrepo

import "time"

// AuthFlowState is the per-sign-in state held between the redirect to the
// authentication provider and the callback. Single use: the callback takes
// it by state parameter and it is deleted.
type AuthFlowState struct {
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
}
