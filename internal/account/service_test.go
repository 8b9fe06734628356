package account

import (
	"context"
	"errors"
	"testing"

	"loquia.org/internal/rbac"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewInMemory())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSignupFirstUserIsAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Signup(ctx, "alice@example.com", "pw-alice", "Alice")
	if err != nil {
		t.Fatalf("signup first: %v", err)
	}
	if first.Role != rbac.RoleAdmin {
		t.Fatalf("first user role = %s, want admin", first.Role)
	}

	second, err := svc.Signup(ctx, "bob@example.com", "pw-bob", "Bob")
	if err != nil {
		t.Fatalf("signup second: %v", err)
	}
	if second.Role != rbac.RoleUser {
		t.Fatalf("second user role = %s, want user", second.Role)
	}

	third, err := svc.Signup(ctx, "carol@example.com", "pw-carol", "Carol")
	if err != nil {
		t.Fatalf("signup third: %v", err)
	}
	if third.Role != rbac.RoleUser {
		t.Fatalf("third user role = %s, want user", third.Role)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice@example.com", "pw", "Alice"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Signup(ctx, "alice@example.com", "other", "Imposter"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	// Case differs, so this is a distinct address under exact matching.
	if _, err := svc.Signup(ctx, "Alice@example.com", "pw", "Alice II"); err != nil {
		t.Fatalf("case-variant signup: %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice@example.com", "secret-pw", "Alice"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	sess, err := svc.Login(ctx, "alice@example.com", "secret-pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Email != "alice@example.com" || !sess.Active() {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, "alice@example.com", "pw", "Alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	svc.Logout(&sess)
	if sess.Active() {
		t.Fatal("session still active after logout")
	}
	svc.Logout(&sess)
	svc.Logout(nil)
}

func TestUpdateProfileAndEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, "alice@example.com", "pw", "Alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Signup(ctx, "bob@example.com", "pw", "Bob"); err != nil {
		t.Fatalf("signup bob: %v", err)
	}

	if err := svc.UpdateProfile(ctx, &sess, "Alice Cooper"); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if sess.Name != "Alice Cooper" {
		t.Fatalf("session snapshot not refreshed: %+v", sess)
	}

	if err := svc.UpdateEmail(ctx, &sess, "bob@example.com"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
	if err := svc.UpdateEmail(ctx, &sess, "cooper@example.com"); err != nil {
		t.Fatalf("update email: %v", err)
	}
	if sess.Email != "cooper@example.com" {
		t.Fatalf("session email not refreshed: %+v", sess)
	}

	// Missing backing record.
	ghost := Session{UserID: "gone", Email: "g@example.com", Role: rbac.RoleUser}
	if err := svc.UpdateProfile(ctx, &ghost, "Ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, "alice@example.com", "old-pw", "Alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := svc.UpdatePassword(ctx, &sess, "bad-guess", "new-pw"); !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
	if err := svc.UpdatePassword(ctx, &sess, "old-pw", "new-pw"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "old-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password still accepted")
	}
	if _, err := svc.Login(ctx, "alice@example.com", "new-pw"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestUpdateUserRoleRequiresPermission(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin, err := svc.Signup(ctx, "admin@example.com", "pw", "Admin")
	if err != nil {
		t.Fatalf("signup admin: %v", err)
	}
	member, err := svc.Signup(ctx, "member@example.com", "pw", "Member")
	if err != nil {
		t.Fatalf("signup member: %v", err)
	}

	// A regular user is denied at the store boundary, not just in the UI.
	if _, err := svc.UpdateUserRole(ctx, &member, admin.UserID, rbac.RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListUsers(ctx, &member); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for list, got %v", err)
	}
	if _, err := svc.ListUsers(ctx, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for anonymous list, got %v", err)
	}

	updated, err := svc.UpdateUserRole(ctx, &admin, member.UserID, rbac.RoleModerator)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Role != rbac.RoleModerator {
		t.Fatalf("role = %s, want moderator", updated.Role)
	}

	if _, err := svc.UpdateUserRole(ctx, &admin, member.UserID, rbac.Role("overlord")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}

	// Admins cannot drop their own role management.
	if _, err := svc.UpdateUserRole(ctx, &admin, admin.UserID, rbac.RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for self-demotion, got %v", err)
	}
}

func TestResume(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, "alice@example.com", "pw", "Alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	resumed, err := svc.Resume(ctx, sess.UserID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.UserID != sess.UserID || resumed.Role != sess.Role {
		t.Fatalf("resumed session mismatch: %+v vs %+v", resumed, sess)
	}
	if _, err := svc.Resume(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
