package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/divedesk/divegate/server/authflowrepo"
	"github.com/divedesk/divegate/server/loginsession"
)

// SignInStartHandler begins the authorization-code flow: it stores the
// per-attempt flow state and redirects to the authentication provider
// (GET /auth/signin).
func (s *Server) SignInStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := generateRandomString(32)
		nonce := generateRandomString(32)
		codeVerifier := generateRandomString(32)

		if err := s.flows.Upsert(state, &authflowrepo.AuthFlowState{
			CodeVerifier: codeVerifier,
			Nonce:        nonce,
			ReturnURL:    r.URL.Query().Get("return_to"),
			CreatedAt:    time.Now(),
		}); err != nil {
			log.Err(err).Msg("failed to store sign-in flow state")
			http.Error(w, "sign-in unavailable", http.StatusInternalServerError)
			return
		}

		authURL, err := s.provider.AuthCodeURL(r.Context(), state, nonce, generateCodeChallenge(codeVerifier))
		if err != nil {
			log.Err(err).Msg("authentication provider unavailable")
			redirectWithError(w, r, RouteLogin, "Sign-in is temporarily unavailable")
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// AuthCallbackHandler lands the provider redirect: it exchanges the code,
// creates the login session, then runs a resolution pass and forwards the
// user to the resolved destination (GET /auth/callback). This is the
// post-login resolution point; routing is decided here once, by the
// Session Router, not by the callback.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.URL.Query().Get("state")
		code := r.URL.Query().Get("code")
		errorParam := r.URL.Query().Get("error")

		// Provider-reported denial (user cancelled, consent refused)
		if errorParam != "" {
			redirectWithError(w, r, RouteLogin, errorParam)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		flowState, err := s.flows.Get(state)
		if err != nil || flowState == nil {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		// Single use: clean up state before the exchange
		if err := s.flows.Delete(state); err != nil {
			http.Error(w, "Invalid state parameter", http.StatusInternalServerError)
			return
		}

		token, claims, err := s.provider.Exchange(r.Context(), code, flowState.CodeVerifier, flowState.Nonce)
		if err != nil {
			log.Err(err).Msg("code exchange failed")
			redirectWithError(w, r, RouteLogin, "Sign-in failed")
			return
		}

		sessionID := uuid.New().String()
		session := loginsession.Session{
			Subject:      claims.Subject,
			Email:        claims.Email,
			Name:         claims.Name,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenExpiry:  token.Expiry,
			ExpiresAt:    time.Now().Add(s.config.GetMaxSessionAge()),
			CreatedAt:    time.Now(),
		}
		if err := s.sessions.Upsert(sessionID, session); err != nil {
			log.Err(err).Msg("failed to create login session")
			redirectWithError(w, r, RouteLogin, "Sign-in failed")
			return
		}

		s.SetLoginSessionCookie(w, r, sessionID, int(s.config.GetMaxSessionAge().Seconds()))

		outcome := s.resolver.Resolve(r.Context(), token.AccessToken)
		if !outcome.Resolved {
			return
		}

		redirectSuccess(w, r, safeReturnURL(flowState.ReturnURL, outcome.Destination))
	}
}

// ConfirmedHandler lands the post-email-confirmation redirect and runs its
// own resolution pass (GET /auth/confirmed). Confirmation may have changed
// the routing hint server-side, so the snapshot must be re-fetched, never
// reused.
func (s *Server) ConfirmedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential := s.credentialFromRequest(r)

		outcome := s.resolver.Resolve(r.Context(), credential)
		if !outcome.Resolved {
			return
		}

		redirectSuccess(w, r, destinationPath(outcome.Destination))
	}
}

// LogoutHandler tears down the login session (POST /auth/logout). The
// session lifecycle has exactly one teardown point: here.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.sessionIDFromRequest(r)
		if sessionID != "" {
			if err := s.sessions.Delete(sessionID); err != nil {
				log.Err(err).Msg("failed to delete login session")
			}
		}

		s.ClearLoginSessionCookie(w, r)
		s.resolver.Reset()
		redirectSuccess(w, r, RouteLogin)
	}
}
