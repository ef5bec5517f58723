package router

// Destination is the closed set of top-level navigation targets. It is the
// output of a resolution pass and is never stored.
type Destination int

const (
	DestinationLogin Destination = iota
	DestinationOnboarding
	DestinationAdminHome
	DestinationOperatorDashboard
)

func (d Destination) String() string {
	switch d {
	case DestinationLogin:
		return "login"
	case DestinationOnboarding:
		return "onboarding"
	case DestinationAdminHome:
		return "admin_home"
	case DestinationOperatorDashboard:
		return "operator_dashboard"
	}
	return "unknown"
}
