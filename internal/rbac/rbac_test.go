package rbac

import "testing"

func TestPermissionTable(t *testing.T) {
	allPerms := []Permission{
		PermViewDashboard,
		PermManageUsers,
		PermDeleteMessages,
		PermEditSettings,
		PermViewAnalytics,
		PermExportData,
		PermManageRoles,
	}

	for _, p := range allPerms {
		if !HasPermission(RoleAdmin, p) {
			t.Fatalf("admin missing %s", p)
		}
	}

	modPerms := map[Permission]bool{
		PermViewDashboard:  true,
		PermDeleteMessages: true,
		PermViewAnalytics:  true,
	}
	for _, p := range allPerms {
		if HasPermission(RoleModerator, p) != modPerms[p] {
			t.Fatalf("moderator permission %s: got %v", p, HasPermission(RoleModerator, p))
		}
	}

	if len(PermissionsOf(RoleUser)) != 0 {
		t.Fatalf("user role must have the empty permission set, got %v", PermissionsOf(RoleUser))
	}
	for _, p := range allPerms {
		if HasPermission(RoleUser, p) {
			t.Fatalf("user role unexpectedly granted %s", p)
		}
	}
}

func TestUnknownRoleDeniedByDefault(t *testing.T) {
	if HasPermission(Role("superuser"), PermManageUsers) {
		t.Fatal("unknown role must be denied")
	}
	if PermissionsOf(Role("superuser")) != nil {
		t.Fatal("unknown role must yield the empty set")
	}
	if Valid(Role("superuser")) {
		t.Fatal("unknown role reported valid")
	}
}

func TestRoleCatalog(t *testing.T) {
	roles := Roles()
	if len(roles) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(roles))
	}
	def, ok := ByName(RoleModerator)
	if !ok || def.DisplayName != "Moderator" {
		t.Fatalf("unexpected moderator definition: %+v", def)
	}

	// Mutating the returned slices must not affect the registry.
	perms := PermissionsOf(RoleAdmin)
	perms[0] = Permission("tampered")
	if !HasPermission(RoleAdmin, PermViewDashboard) {
		t.Fatal("registry mutated through returned slice")
	}
}
