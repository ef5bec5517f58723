package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteLogin       = "/login"
	RouteSignInStart = "/auth/signin"
	RouteCallback    = "/auth/callback"
	RouteLogout      = "/auth/logout"

	// Post-email-confirmation landing; runs its own resolution pass
	RouteConfirmed = "/auth/confirmed"

	// Shell sections
	RouteOnboarding = "/onboarding"
	RouteAdminHome  = "/admin"
	RouteDashboard  = "/dashboard"

	// Operational routes
	RouteHealthz = "/healthz"
	RouteMetrics = "/metrics"
)
