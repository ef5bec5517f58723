package server

import (
	"context"
	"net/http"

	"github.com/divedesk/divegate/identity"
	"github.com/divedesk/divegate/router"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyMe stores the request-scoped identity snapshot
	ContextKeyMe ContextKey = "me"
)

// MeFromContext returns the identity snapshot the guard resolved for this
// request. Valid only behind RequireDestination.
func MeFromContext(ctx context.Context) (identity.Me, bool) {
	me, ok := ctx.Value(ContextKeyMe).(identity.Me)
	return me, ok
}

// RequireDestination guards a protected section. It runs a fresh
// resolution pass on every entry (identity snapshots are never reused
// across navigation decisions) and then either serves the protected page
// or issues exactly one redirect to the resolved destination, never both,
// and never unauthorized content while resolution is in flight.
func (s *Server) RequireDestination(allowed ...router.Destination) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			credential := s.credentialFromRequest(r)

			outcome := s.resolver.Resolve(r.Context(), credential)
			if !outcome.Resolved {
				// The client went away mid-pass; nothing to render.
				return
			}

			for _, dest := range allowed {
				if dest == outcome.Destination {
					ctx := context.WithValue(r.Context(), ContextKeyMe, outcome.Me)
					next(w, r.WithContext(ctx))
					return
				}
			}

			redirectSuccess(w, r, destinationPath(outcome.Destination))
		}
	}
}
