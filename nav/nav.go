// Package nav builds the shell's navigation from the request-scoped
// identity snapshot. Items gated on a capability are dropped unless the
// snapshot grants it; items scoped to presentation modes are dropped when
// the snapshot's ui_mode is not among them.
package nav

import (
	"github.com/divedesk/divegate/identity"
)

// Item is one navigation entry.
type Item struct {
	Label string
	Path  string

	// Permission names the capability required to see this item. Empty
	// means always visible.
	Permission string

	// Modes restricts the item to specific presentation modes. Empty
	// means visible in every mode.
	Modes []identity.UIMode
}

// visibleTo reports whether the item should render for the snapshot.
func (i Item) visibleTo(me identity.Me) bool {
	if i.Permission != "" && !me.HasPermission(i.Permission) {
		return false
	}
	if len(i.Modes) == 0 {
		return true
	}
	for _, mode := range i.Modes {
		if mode == me.UIMode {
			return true
		}
	}
	return false
}

// Filter returns the items visible to the snapshot, preserving order.
func Filter(items []Item, me identity.Me) []Item {
	visible := make([]Item, 0, len(items))
	for _, item := range items {
		if item.visibleTo(me) {
			visible = append(visible, item)
		}
	}
	return visible
}

// OperatorItems is the operator dashboard sidebar.
func OperatorItems() []Item {
	return []Item{
		{Label: "Schedule", Path: "/dashboard/schedule"},
		{Label: "Bookings", Path: "/dashboard/bookings", Permission: "bookings.view"},
		{Label: "Trips", Path: "/dashboard/trips", Permission: "trips.view"},
		{Label: "Staff", Path: "/dashboard/staff", Permission: "staff.manage", Modes: []identity.UIMode{identity.UIModePro}},
		{Label: "Referrals", Path: "/dashboard/referrals", Modes: []identity.UIMode{identity.UIModeAffiliate}},
		{Label: "Settings", Path: "/dashboard/settings", Permission: "operator.settings"},
	}
}

// AdminItems is the admin console sidebar.
func AdminItems() []Item {
	return []Item{
		{Label: "Operators", Path: "/admin/operators"},
		{Label: "Affiliates", Path: "/admin/affiliates", Permission: "affiliates.manage"},
		{Label: "Billing", Path: "/admin/billing", Permission: "billing.manage"},
		{Label: "Settings", Path: "/admin/settings"},
	}
}
