package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/divedesk/divegate/router"
)

const (
	// sessionCookieName carries the securecookie-encoded login session ID
	sessionCookieName = "divegate_session"
)

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read never returns an error as of Go 1.24
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// generateCodeChallenge creates a PKCE code challenge from a verifier
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func (s *Server) SetLoginSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, maxAge int) {
	encoded, err := s.cookies.Encode(sessionCookieName, sessionID)
	if err != nil {
		log.Err(err).Msg("failed to encode session cookie")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) ClearLoginSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// sessionIDFromRequest decodes the session cookie. A missing or
// tamper-damaged cookie reads as no session.
func (s *Server) sessionIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	var sessionID string
	if err := s.cookies.Decode(sessionCookieName, cookie.Value, &sessionID); err != nil {
		return ""
	}
	return sessionID
}

// credentialFromRequest produces the current bearer credential for the
// request, refreshing it through the provider when the access token has
// expired. The shell never inspects the credential; it only carries it.
// Any failure reads as "no credential", which resolves to Login.
func (s *Server) credentialFromRequest(r *http.Request) string {
	sessionID := s.sessionIDFromRequest(r)
	if sessionID == "" {
		return ""
	}

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return ""
	}

	if session.ExpiresAt.Before(time.Now()) {
		_ = s.sessions.Delete(sessionID)
		return ""
	}

	// Fresh enough to use as-is
	if session.TokenExpiry.After(time.Now().Add(30 * time.Second)) {
		return session.AccessToken
	}

	if session.RefreshToken == "" {
		return ""
	}

	// Transparent refresh through the provider
	source, err := s.provider.TokenSource(r.Context(), &oauth2.Token{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		Expiry:       session.TokenExpiry,
	})
	if err != nil {
		log.Err(err).Msg("token source unavailable")
		return ""
	}

	token, err := source.Token()
	if err != nil {
		log.Err(err).Msg("credential refresh failed")
		return ""
	}

	if token.AccessToken != session.AccessToken {
		session.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			session.RefreshToken = token.RefreshToken
		}
		session.TokenExpiry = token.Expiry
		if err := s.sessions.Upsert(sessionID, session); err != nil {
			log.Err(err).Msg("failed to store refreshed session")
		}
	}

	return token.AccessToken
}

// destinationPath maps a resolved destination onto its shell route.
func destinationPath(d router.Destination) string {
	switch d {
	case router.DestinationLogin:
		return RouteLogin
	case router.DestinationAdminHome:
		return RouteAdminHome
	case router.DestinationOperatorDashboard:
		return RouteDashboard
	}
	return RouteOnboarding
}

// safeReturnURL accepts only local paths, and only ones inside the section
// the resolver chose; anything else falls back to the destination path.
func safeReturnURL(returnURL string, dest router.Destination) string {
	sectionPath := destinationPath(dest)
	if returnURL == "" || !strings.HasPrefix(returnURL, "/") || strings.HasPrefix(returnURL, "//") {
		return sectionPath
	}
	if !strings.HasPrefix(returnURL, sectionPath) {
		return sectionPath
	}
	return returnURL
}

func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(errorMsg), http.StatusSeeOther)
}
