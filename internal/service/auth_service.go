package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	util "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// roleRank orders roles by privilege; login picks the strongest grant.
var roleRank = map[domain.Role]int{
	domain.RoleUser:          1,
	domain.RoleAgent:         2,
	domain.RoleCompanyAdmin:  3,
	domain.RolePlatformAdmin: 4,
}

// AuthService coordinates registration, login and password flows.
type AuthService struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates repo requirements for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	CompanyRepo       repository.CompanyRepository
	PasswordResetRepo repository.PasswordResetRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		companies:  deps.CompanyRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates an account and grants it the USER role in the company.
func (s *AuthService) Register(ctx context.Context, companyID, name, email, password string) (*domain.User, string, time.Time, error) {
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		return nil, "", time.Time{}, util.NewNotFound("company", nil)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, util.NewConflict("email already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}
	if err := s.users.GrantRole(ctx, user.ID, domain.RoleUser, companyID); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.RoleUser, companyID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates against a company and issues a token carrying the
// strongest role the account holds there.
func (s *AuthService) Login(ctx context.Context, companyID, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, util.NewUnauthorized("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
	}

	roles, err := s.users.RolesInCompany(ctx, user.ID, companyID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	role := strongestRole(roles)
	if role == "" {
		return nil, "", time.Time{}, util.NewUnauthorized("no access to this company")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, role, companyID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Logout is a no-op for stateless JWTs.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// RequestPasswordReset persists a reset token for the account.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, util.NewNotFound("user", nil)
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return util.NewNotFound("reset token", nil)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return util.NewValidationError("reset token expired or already used", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

// ChangePassword verifies the current password before replacing it.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return util.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func strongestRole(roles []domain.Role) domain.Role {
	var best domain.Role
	for _, role := range roles {
		if roleRank[role] > roleRank[best] {
			best = role
		}
	}
	return best
}
