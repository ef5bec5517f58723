package server

import (
	"github.com/divedesk/divegate/router"
)

func (s *Server) initRoutes() {
	// App entry: a resolution pass on every boot
	s.RegisterRouteFunc("GET /{$}", s.IndexHandler())

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteSignInStart, ChainMiddleware(s.SignInStartHandler(), s.HTMLMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.AuthCallbackHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleware()...))

	// Post-email-confirmation landing
	s.RegisterRouteHandler("GET "+RouteConfirmed, ChainMiddleware(s.ConfirmedHandler(), s.HTMLMiddleware()...))

	// Protected sections. The guard resolves fresh on every entry and
	// serves the page or a single redirect, never both.
	s.RegisterRouteHandler("GET "+RouteOnboarding, ChainMiddleware(
		s.OnboardingHandler(),
		s.HTMLMiddleware(s.RequireDestination(router.DestinationOnboarding))...))
	s.RegisterRouteHandler("GET "+RouteAdminHome, ChainMiddleware(
		s.AdminHomeHandler(),
		s.HTMLMiddleware(s.RequireDestination(router.DestinationAdminHome))...))
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(
		s.DashboardHandler(),
		s.HTMLMiddleware(s.RequireDestination(router.DestinationOperatorDashboard, router.DestinationAdminHome))...))

	// Operational routes
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
	if s.metrics != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics)
	}
}
