// Package identity fetches and decodes the identity snapshot the backend
// returns for a bearer credential. Decoding happens once, here, at the
// network boundary: everything downstream switches on the closed Result
// kind set instead of probing optional response fields.
package identity

// Hint is the server-supplied routing hint telling the shell which
// top-level area to show.
type Hint string

const (
	HintAdmin      Hint = "admin"
	HintDashboard  Hint = "dashboard"
	HintOnboarding Hint = "onboarding"
)

// UIMode selects the presentation variant of the shell. It never affects
// routing.
type UIMode string

const (
	UIModeAdmin     UIMode = "admin"
	UIModePro       UIMode = "pro"
	UIModeAffiliate UIMode = "affiliate"
)

// OnboardingState carries the onboarding completion flag. IsComplete is a
// pointer because the backend may omit it entirely; absence and false are
// treated the same way by the resolver.
type OnboardingState struct {
	IsComplete *bool `json:"is_complete"`
}

// Me is the identity snapshot for one resolution pass. It is transient,
// request-scoped data: never cached across navigation decisions, never
// persisted.
type Me struct {
	OK          bool            `json:"ok"`
	RoutingHint Hint            `json:"routing_hint"`
	Onboarding  OnboardingState `json:"onboarding"`
	Permissions map[string]bool `json:"permissions"`
	UIMode      UIMode          `json:"ui_mode"`
}

// HasPermission reports whether the named capability is granted.
func (m Me) HasPermission(name string) bool {
	return m.Permissions[name]
}

// Kind tags a Result. Every HTTP outcome folds into exactly one of these.
type Kind int

const (
	// KindOK: 2xx with a parseable body. Me is populated.
	KindOK Kind = iota
	// KindUnauthenticated: 401, regardless of body content.
	KindUnauthenticated
	// KindServerError: transport failure or non-401 non-2xx status.
	KindServerError
	// KindMalformed: 2xx but the body could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindServerError:
		return "server_error"
	case KindMalformed:
		return "malformed"
	}
	return "unknown"
}

// Result is the tagged outcome of one fetch. Err is diagnostic only; the
// taxonomy already classifies every failure, so Result is returned alone
// rather than as a (Result, error) pair.
type Result struct {
	Kind Kind
	Me   Me    // populated only when Kind == KindOK
	Err  error // diagnostic detail for ServerError / Malformed

	// Retryable marks transport-level failures (connection refused,
	// timeout) where a single retry may succeed. Definitive status codes
	// are never retryable.
	Retryable bool
}
