package model

import "sort"

// Permission is a key from the closed permission enumeration. Only staff
// identities hold grants; admins implicitly hold every key.
type Permission string

const (
	PermUsersView            Permission = "users:view"
	PermUsersLock            Permission = "users:lock"
	PermUsersDelete          Permission = "users:delete"
	PermTripsView            Permission = "trips:view"
	PermTripsDelete          Permission = "trips:delete"
	PermBookingsView         Permission = "bookings:view"
	PermBookingsManage       Permission = "bookings:manage"
	PermReviewsView          Permission = "reviews:view"
	PermReviewsDelete        Permission = "reviews:delete"
	PermDriversVerify        Permission = "drivers:verify"
	PermDriversPremium       Permission = "drivers:premium"
	PermMessagesView         Permission = "messages:view"
	PermMessagesReply        Permission = "messages:reply"
	PermPasswordResetsManage Permission = "password_resets:manage"
	PermBannersManage        Permission = "banners:manage"
	PermSettingsManage       Permission = "settings:manage"
	PermReportsView          Permission = "reports:view"
	PermStaffManage          Permission = "staff:manage"
	PermAuditLogsView        Permission = "audit_logs:view"
)

// permissionLabels maps every key to the label shown next to its checkbox.
// The map doubles as the membership test for the enumeration.
var permissionLabels = map[Permission]string{
	PermUsersView:            "View users",
	PermUsersLock:            "Lock / unlock users",
	PermUsersDelete:          "Delete users",
	PermTripsView:            "View trips",
	PermTripsDelete:          "Delete trips",
	PermBookingsView:         "View bookings",
	PermBookingsManage:       "Manage bookings",
	PermReviewsView:          "View reviews",
	PermReviewsDelete:        "Delete reviews",
	PermDriversVerify:        "Verify drivers",
	PermDriversPremium:       "Manage driver premium",
	PermMessagesView:         "View contact messages",
	PermMessagesReply:        "Reply to contact messages",
	PermPasswordResetsManage: "Manage password reset requests",
	PermBannersManage:        "Manage banners",
	PermSettingsManage:       "Manage settings",
	PermReportsView:          "View reports",
	PermStaffManage:          "Manage staff",
	PermAuditLogsView:        "View audit logs",
}

// allPermissions keeps the enumeration in declaration order.
var allPermissions = []Permission{
	PermUsersView, PermUsersLock, PermUsersDelete,
	PermTripsView, PermTripsDelete,
	PermBookingsView, PermBookingsManage,
	PermReviewsView, PermReviewsDelete,
	PermDriversVerify, PermDriversPremium,
	PermMessagesView, PermMessagesReply,
	PermPasswordResetsManage,
	PermBannersManage,
	PermSettingsManage,
	PermReportsView,
	PermStaffManage,
	PermAuditLogsView,
}

// AllPermissions returns a fresh copy of the full enumeration.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// Valid reports whether p belongs to the enumeration.
func (p Permission) Valid() bool {
	_, ok := permissionLabels[p]
	return ok
}

// Label returns the human readable label, or the raw key when unknown.
func (p Permission) Label() string {
	if l, ok := permissionLabels[p]; ok {
		return l
	}
	return string(p)
}

// ParsePermissions converts raw keys into permissions, dropping duplicates.
// The first unknown key is returned as bad with ok=false.
func ParsePermissions(raw []string) (perms []Permission, bad string, ok bool) {
	seen := make(map[Permission]bool, len(raw))
	perms = make([]Permission, 0, len(raw))
	for _, r := range raw {
		p := Permission(r)
		if !p.Valid() {
			return nil, r, false
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		perms = append(perms, p)
	}
	return perms, "", true
}

// PermissionGrant mirrors a row of `permission_grants`.
type PermissionGrant struct {
	IdentityID string
	Permission Permission
	GrantedBy  string
}

// Templates are convenience bundles that pre-select checkboxes on the staff
// edit form. They are never stored; only the resulting grants persist.
var permissionTemplates = map[string][]Permission{
	"customer_support": {
		PermUsersView, PermTripsView, PermBookingsView,
		PermMessagesView, PermMessagesReply, PermPasswordResetsManage,
	},
	"moderator": {
		PermUsersView, PermUsersLock, PermTripsView, PermTripsDelete,
		PermReviewsView, PermReviewsDelete, PermMessagesView, PermBannersManage,
	},
	"manager": {
		PermUsersView, PermUsersLock, PermUsersDelete,
		PermTripsView, PermTripsDelete,
		PermBookingsView, PermBookingsManage,
		PermReviewsView, PermReviewsDelete,
		PermDriversVerify, PermDriversPremium,
		PermMessagesView, PermMessagesReply,
		PermReportsView, PermAuditLogsView,
	},
}

// ExpandTemplate returns the permissions pre-selected by a named template.
func ExpandTemplate(name string) ([]Permission, bool) {
	perms, ok := permissionTemplates[name]
	if !ok {
		return nil, false
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out, true
}

// TemplateNames lists the known templates sorted by name.
func TemplateNames() []string {
	names := make([]string, 0, len(permissionTemplates))
	for n := range permissionTemplates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
