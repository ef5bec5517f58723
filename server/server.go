package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/gorilla/securecookie"

	"github.com/divedesk/divegate/internal/config"
	"github.com/divedesk/divegate/router"
	"github.com/divedesk/divegate/server/authflowrepo"
	"github.com/divedesk/divegate/server/loginsession"
	"github.com/divedesk/divegate/signin"
)

// SessionRouter is the slice of the Session Router the server consumes.
type SessionRouter interface {
	Resolve(ctx context.Context, credential string) router.Outcome
	Reset()
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	handler  http.Handler // mux wrapped in CSRF protection
	routes   []string
	config   config.Config
	resolver SessionRouter
	provider signin.Provider
	flows    authflowrepo.Repo
	sessions loginsession.Repo
	cookies  *securecookie.SecureCookie
	limiter  *ipRateLimiter
	metrics  http.Handler
}

// ServerOption modifies the Server instance.
type ServerOption func(*Server)

// WithMetricsHandler mounts a handler on /metrics (typically promhttp).
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = h
	}
}

func New(cfg config.Config, resolver SessionRouter, provider signin.Provider, flows authflowrepo.Repo, sessions loginsession.Repo, options ...ServerOption) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[Server New] config is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("[Server New] session router is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("[Server New] sign-in provider is required")
	}
	if flows == nil {
		return nil, fmt.Errorf("[Server New] flow state repo is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("[Server New] login session repo is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		resolver: resolver,
		provider: provider,
		flows:    flows,
		sessions: sessions,
		cookies:  securecookie.New(cfg.GetCookieHashKey(), cfg.GetCookieBlockKey()),
	}
	s.env = cfg.GetEnv()
	if cfg.GetEnableRateLimiting() {
		s.limiter = newIPRateLimiter(signinRate, signinBurst)
	}

	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	protected := csrf.Protect(cfg.GetCSRFKey(),
		csrf.Secure(s.env != "DEV"),
		csrf.Path("/"),
		csrf.TrustedOrigins(trustedOrigins(cfg.GetBaseURL())),
	)(s.mux)

	if s.env == "DEV" {
		// Local serving is plain HTTP; form posts carry no Referer, which
		// gorilla/csrf treats as a TLS downgrade unless the request is
		// marked plaintext. Token and Origin checks still apply.
		s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	} else {
		s.handler = protected
	}

	return s, nil
}

// trustedOrigins derives the CSRF origin allowlist from the externally
// visible base URL.
func trustedOrigins(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
