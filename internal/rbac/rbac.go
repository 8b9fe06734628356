// Package rbac holds the static role/permission table. Roles are fixed at
// three entries and permissions are derived purely by table lookup; there is
// no runtime mutation of the registry.
package rbac

// Role identifies one of the fixed roles a user can hold.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Permission is a fine-grained capability key.
type Permission string

const (
	PermViewDashboard  Permission = "view_dashboard"
	PermManageUsers    Permission = "manage_users"
	PermDeleteMessages Permission = "delete_messages"
	PermEditSettings   Permission = "edit_settings"
	PermViewAnalytics  Permission = "view_analytics"
	PermExportData     Permission = "export_data"
	PermManageRoles    Permission = "manage_roles"
)

// Definition describes a role for administrative listings.
type Definition struct {
	Name        Role         `json:"name"`
	DisplayName string       `json:"display_name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

var definitions = []Definition{
	{
		Name:        RoleAdmin,
		DisplayName: "Administrator",
		Description: "Full access to all features and settings",
		Permissions: []Permission{
			PermViewDashboard,
			PermManageUsers,
			PermDeleteMessages,
			PermEditSettings,
			PermViewAnalytics,
			PermExportData,
			PermManageRoles,
		},
	},
	{
		Name:        RoleModerator,
		DisplayName: "Moderator",
		Description: "Can moderate content and manage some settings",
		Permissions: []Permission{
			PermViewDashboard,
			PermDeleteMessages,
			PermViewAnalytics,
		},
	},
	{
		Name:        RoleUser,
		DisplayName: "User",
		Description: "Standard user with basic access",
		Permissions: nil,
	},
}

// Valid reports whether r is one of the known roles.
func Valid(r Role) bool {
	_, ok := byName(r)
	return ok
}

// Roles returns the full role catalog in declaration order.
func Roles() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// ByName returns the definition for a role.
func ByName(r Role) (Definition, bool) {
	return byName(r)
}

// PermissionsOf returns the permission set of a role. Unknown roles get the
// empty set (deny-by-default).
func PermissionsOf(r Role) []Permission {
	def, ok := byName(r)
	if !ok {
		return nil
	}
	out := make([]Permission, len(def.Permissions))
	copy(out, def.Permissions)
	return out
}

// HasPermission reports whether the role's permission set contains perm.
func HasPermission(r Role, perm Permission) bool {
	def, ok := byName(r)
	if !ok {
		return false
	}
	for _, p := range def.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

func byName(r Role) (Definition, bool) {
	for _, def := range definitions {
		if def.Name == r {
			return def, true
		}
	}
	return Definition{}, false
}
