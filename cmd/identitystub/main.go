package main

import (
	"log"
	"net/http"

	"github.com/divedesk/divegate/identity"
	"github.com/divedesk/divegate/internal/config"
	"github.com/divedesk/divegate/internal/identitystub"
	"github.com/divedesk/divegate/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running identity stub: %s\n", err)
	}
}

func run() error {
	users, err := devUsers()
	if err != nil {
		return err
	}

	stub, err := identitystub.New(
		[]byte(config.GetEnv("STUB_SECRET", "divegate-dev-secret")),
		users,
	)
	if err != nil {
		return err
	}

	addr := ":" + config.GetEnv("STUB_PORT", "9090")
	log.Printf("Identity stub listening on %s\n", addr)
	return http.ListenAndServe(addr, stub.Handler())
}

func devUsers() ([]*identitystub.User, error) {
	fixtures := []struct {
		subject  string
		email    string
		password string
		me       identity.Me
	}{
		{
			subject:  "admin-1",
			email:    "admin@divedesk.example",
			password: "admin-dev",
			me: identity.Me{
				OK:          true,
				RoutingHint: identity.HintAdmin,
				UIMode:      identity.UIModeAdmin,
				Permissions: map[string]bool{
					"affiliates.manage": true,
					"billing.manage":    true,
				},
			},
		},
		{
			subject:  "operator-1",
			email:    "pat@reefdivers.example",
			password: "operator-dev",
			me: identity.Me{
				OK:          true,
				RoutingHint: identity.HintDashboard,
				UIMode:      identity.UIModePro,
				Onboarding:  identity.OnboardingState{IsComplete: utils.Ptr(true)},
				Permissions: map[string]bool{
					"bookings.view":     true,
					"trips.view":        true,
					"staff.manage":      true,
					"operator.settings": true,
				},
			},
		},
		{
			subject:  "newcomer-1",
			email:    "sam@newdive.example",
			password: "newcomer-dev",
			me: identity.Me{
				OK:          true,
				RoutingHint: identity.HintOnboarding,
				UIMode:      identity.UIModePro,
				Onboarding:  identity.OnboardingState{IsComplete: utils.Ptr(false)},
			},
		},
	}

	users := make([]*identitystub.User, 0, len(fixtures))
	for _, f := range fixtures {
		user, err := identitystub.NewUser(f.subject, f.email, f.password, f.me)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
