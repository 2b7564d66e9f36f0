package service

import (
	"context"
	"strings"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type authFixture struct {
	db      *memDB
	resets  *memPasswordResetRepo
	svc     *AuthService
	company domain.Company
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newMemDB()
	resets := newMemPasswordResetRepo(db)
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4, // MinCost keeps the suite fast
		},
	}
	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo:          &memUserRepo{db: db},
		CompanyRepo:       &memCompanyRepo{db: db},
		PasswordResetRepo: resets,
	})
	return &authFixture{db: db, resets: resets, svc: svc, company: db.addCompany("acme")}
}

func TestRegister_GrantsUserRole(t *testing.T) {
	f := newAuthFixture(t)

	user, token, _, err := f.svc.Register(context.Background(), f.company.ID, "Alice", "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if token == "" {
		t.Error("Register() should issue a token")
	}

	claims, err := f.svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}
	if claims.Role != domain.RoleUser || claims.CompanyID != f.company.ID || claims.SubjectID != user.ID {
		t.Errorf("claims = %+v, want USER in %s for %s", claims, f.company.ID, user.ID)
	}

	roles, _ := (&memUserRepo{db: f.db}).RolesInCompany(context.Background(), user.ID, f.company.ID)
	if len(roles) != 1 || roles[0] != domain.RoleUser {
		t.Errorf("grants = %v, want [USER]", roles)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)

	if _, _, _, err := f.svc.Register(context.Background(), f.company.ID, "Alice", "alice@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	_, _, _, err := f.svc.Register(context.Background(), f.company.ID, "Other Alice", "alice@example.com", "hunter2hunter2")
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("duplicate Register() = %v, want conflict", err)
	}
}

func TestLogin_PicksStrongestRole(t *testing.T) {
	f := newAuthFixture(t)
	user, _, _, err := f.svc.Register(context.Background(), f.company.ID, "Alice", "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	f.db.grantRole(user.ID, domain.RoleAgent, f.company.ID)
	f.db.grantRole(user.ID, domain.RoleCompanyAdmin, f.company.ID)

	_, token, _, err := f.svc.Login(context.Background(), f.company.ID, "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	claims, err := f.svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}
	if claims.Role != domain.RoleCompanyAdmin {
		t.Errorf("token role = %s, want COMPANY_ADMIN", claims.Role)
	}
}

func TestLogin_Failures(t *testing.T) {
	f := newAuthFixture(t)
	user, _, _, err := f.svc.Register(context.Background(), f.company.ID, "Alice", "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	other := f.db.addCompany("globex")

	tests := []struct {
		name      string
		companyID string
		email     string
		password  string
		wantMsg   string
	}{
		{"wrong password", f.company.ID, "alice@example.com", "wrong", "invalid credentials"},
		{"unknown email", f.company.ID, "nobody@example.com", "hunter2hunter2", "invalid credentials"},
		{"no grant in company", other.ID, "alice@example.com", "hunter2hunter2", "no access"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := f.svc.Login(context.Background(), tt.companyID, tt.email, tt.password)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Login() = %v, want %q", err, tt.wantMsg)
			}
		})
	}

	record := f.db.users[user.ID]
	record.Status = domain.UserStatusSuspended
	f.db.users[user.ID] = record
	if _, _, _, err := f.svc.Login(context.Background(), f.company.ID, "alice@example.com", "hunter2hunter2"); err == nil ||
		!strings.Contains(err.Error(), "suspended") {
		t.Errorf("Login() for suspended account = %v, want suspended error", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	if _, _, _, err := f.svc.Register(context.Background(), f.company.ID, "Alice", "alice@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	token, err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset() error: %v", err)
	}

	if err := f.svc.ConfirmPasswordReset(context.Background(), token.Token, "a-new-password"); err != nil {
		t.Fatalf("ConfirmPasswordReset() error: %v", err)
	}
	if _, _, _, err := f.svc.Login(context.Background(), f.company.ID, "alice@example.com", "a-new-password"); err != nil {
		t.Errorf("Login() with new password error: %v", err)
	}
	if _, _, _, err := f.svc.Login(context.Background(), f.company.ID, "alice@example.com", "hunter2hunter2"); err == nil {
		t.Error("old password should no longer work")
	}

	// a used token cannot be replayed
	if err := f.svc.ConfirmPasswordReset(context.Background(), token.Token, "another-password"); err == nil {
		t.Error("ConfirmPasswordReset() with a used token should fail")
	}
}

func TestChangePassword_RequiresCurrent(t *testing.T) {
	f := newAuthFixture(t)
	user, _, _, err := f.svc.Register(context.Background(), f.company.ID, "Alice", "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := f.svc.ChangePassword(context.Background(), user.ID, "wrong", "a-new-password"); err == nil {
		t.Error("ChangePassword() with wrong current password should fail")
	}
	if err := f.svc.ChangePassword(context.Background(), user.ID, "hunter2hunter2", "a-new-password"); err != nil {
		t.Fatalf("ChangePassword() error: %v", err)
	}
	if err := auth.ComparePassword(f.db.users[user.ID].PasswordHash, "a-new-password"); err != nil {
		t.Errorf("new password hash mismatch: %v", err)
	}
}
