package server

import (
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"

	"github.com/divedesk/divegate/identity"
	"github.com/divedesk/divegate/nav"
	"github.com/divedesk/divegate/router"
)

const contentTypeHTML = "text/html; charset=utf-8"

// IndexHandler is the app-boot resolution point: it resolves the current
// credential state and forwards to the authoritative destination (GET /).
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential := s.credentialFromRequest(r)

		outcome := s.resolver.Resolve(r.Context(), credential)
		if !outcome.Resolved {
			return
		}

		redirectSuccess(w, r, destinationPath(outcome.Destination))
	}
}

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName    string
	Error      string
	SignInPath string
	ReturnTo   string
}

// LoginPageHandler displays the login page (GET /login). A visitor whose
// credential already resolves elsewhere is forwarded there instead of
// seeing the page.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse login template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		credential := s.credentialFromRequest(r)
		if credential != "" {
			outcome := s.resolver.Resolve(r.Context(), credential)
			if !outcome.Resolved {
				return
			}
			if outcome.Destination != router.DestinationLogin {
				redirectSuccess(w, r, destinationPath(outcome.Destination))
				return
			}
		}

		data := LoginPageData{
			AppName:    s.config.GetAppName(),
			Error:      r.URL.Query().Get("error"),
			SignInPath: RouteSignInStart,
			ReturnTo:   r.URL.Query().Get("return_to"),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		}
	}
}

// ShellPageData is the common data for guarded shell pages.
type ShellPageData struct {
	AppName    string
	UserName   string
	UIMode     identity.UIMode
	Navigation []nav.Item
	CSRFField  template.HTML
	LogoutPath string
}

func (s *Server) shellPageData(r *http.Request, me identity.Me, items []nav.Item) ShellPageData {
	userName := ""
	if sessionID := s.sessionIDFromRequest(r); sessionID != "" {
		if session, err := s.sessions.Get(sessionID); err == nil {
			userName = session.Name
			if userName == "" {
				userName = session.Email
			}
		}
	}

	return ShellPageData{
		AppName:    s.config.GetAppName(),
		UserName:   userName,
		UIMode:     me.UIMode,
		Navigation: nav.Filter(items, me),
		CSRFField:  csrf.TemplateField(r),
		LogoutPath: RouteLogout,
	}
}

// OnboardingHandler renders the onboarding wizard shell (GET /onboarding).
// The wizard's forms live in the backend-driven pages; this shell shows
// the frame and the step list.
func (s *Server) OnboardingHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("onboarding.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse onboarding template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := MeFromContext(r.Context())

		data := struct {
			ShellPageData
			Steps []string
		}{
			ShellPageData: s.shellPageData(r, me, nil),
			Steps: []string{
				"Operator profile",
				"Dive sites & boats",
				"Schedule & pricing",
				"Payout details",
			},
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render onboarding template")
			http.Error(w, "Failed to render onboarding page", http.StatusInternalServerError)
		}
	}
}

// AdminHomeHandler renders the admin console shell (GET /admin).
func (s *Server) AdminHomeHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("admin.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse admin template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := MeFromContext(r.Context())
		data := s.shellPageData(r, me, nav.AdminItems())

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render admin template")
			http.Error(w, "Failed to render admin page", http.StatusInternalServerError)
		}
	}
}

// DashboardHandler renders the operator dashboard shell (GET /dashboard).
func (s *Server) DashboardHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("dashboard.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse dashboard template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := MeFromContext(r.Context())
		data := s.shellPageData(r, me, nav.OperatorItems())

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render dashboard template")
			http.Error(w, "Failed to render dashboard page", http.StatusInternalServerError)
		}
	}
}

// HealthzHandler reports liveness (GET /healthz).
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
