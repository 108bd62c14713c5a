package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/orgstack/tenant-auth/internal/core/domain"
	"github.com/orgstack/tenant-auth/internal/core/ports"
)

const (
	bearerPrefix = "Bearer "

	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

// PasswordHasher is satisfied by credential.Hasher.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) (bool, error)
}

// TokenCodec is satisfied by token.Codec.
type TokenCodec interface {
	NewAccessClaims(userID, email string) domain.AccessClaims
	NewRefreshClaims(userID string) domain.RefreshClaims
	EncodeAccess(claims domain.AccessClaims) (string, error)
	EncodeRefresh(claims domain.RefreshClaims) (string, error)
	DecodeAccess(raw string) (domain.AccessClaims, error)
	DecodeRefresh(raw string) (domain.RefreshClaims, error)
}

// RegistrationGuard serialises concurrent registrations of one email across
// instances. Acquire reports false when another registration holds the key.
type RegistrationGuard interface {
	Acquire(ctx context.Context, email string) (bool, error)
	Release(ctx context.Context, email string) error
}

// SessionService implements registration, login, profile resolution and
// access token refresh. It keeps no state between calls.
type SessionService struct {
	repo   ports.UserRepository
	hasher PasswordHasher
	tokens TokenCodec
	guard  RegistrationGuard
	clock  ports.Clock

	decoyOnce sync.Once
	decoyHash string
}

// NewSessionService wires the service. guard may be nil, in which case only
// the store's unique index protects against duplicate registrations.
func NewSessionService(
	repo ports.UserRepository,
	hasher PasswordHasher,
	tokens TokenCodec,
	guard RegistrationGuard,
	clock ports.Clock,
) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &SessionService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		guard:  guard,
		clock:  clock,
	}
}

var _ ports.SessionService = (*SessionService)(nil)

func (s *SessionService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	in = normalizeRegister(in)
	if err := requireFields(
		field{"name", in.Name},
		field{"email", in.Email},
		field{"password", in.Password},
		field{"tenantName", in.TenantName},
		field{"tenantSlug", in.TenantSlug},
	); err != nil {
		return nil, err
	}
	if err := checkPasswordLength("password", in.Password); err != nil {
		return nil, err
	}

	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, in.Email)
		// A guard outage must not block registration; the unique index
		// still holds.
		if err == nil {
			if !ok {
				return nil, domain.ErrDuplicateEmail
			}
			defer func() { _ = s.guard.Release(context.WithoutCancel(ctx), in.Email) }()
		}
	}

	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.clock.Now()
	created, err := s.repo.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		TenantName:   in.TenantName,
		TenantSlug:   in.TenantSlug,
		Role:         domain.RoleOrgAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	return s.issuePair(created)
}

func (s *SessionService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = normalizeEmail(email)
	if err := requireFields(field{"email", email}, field{"password", password}); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.spendVerify(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !ok || !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issuePair(user)
}

func (s *SessionService) GetProfile(ctx context.Context, authorization string) (*domain.UserSummary, error) {
	raw := StripBearer(authorization)
	if raw == "" {
		return nil, domain.ErrMissingToken
	}

	claims, err := s.tokens.DecodeAccess(raw)
	if err != nil {
		return nil, domain.Unauthorized(err)
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

func (s *SessionService) RefreshAccessToken(ctx context.Context, refreshToken string) (*ports.RefreshResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if err := requireFields(field{"refreshToken", refreshToken}); err != nil {
		return nil, err
	}

	claims, err := s.tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, domain.Unauthorized(err)
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.EncodeAccess(s.tokens.NewAccessClaims(user.ID, user.Email))
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return &ports.RefreshResult{AccessToken: access, User: user.Summary()}, nil
}

func (s *SessionService) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) error {
	if err := requireFields(
		field{"userId", in.UserID},
		field{"currentPassword", in.CurrentPassword},
		field{"newPassword", in.NewPassword},
	); err != nil {
		return err
	}
	if err := checkPasswordLength("newPassword", in.NewPassword); err != nil {
		return err
	}

	user, err := s.activeUser(ctx, in.UserID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(in.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()

	if _, err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

func (s *SessionService) UpdateProfile(ctx context.Context, userID, name string) (*domain.UserSummary, error) {
	name = strings.TrimSpace(name)
	if err := requireFields(field{"userId", userID}, field{"name", name}); err != nil {
		return nil, err
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	user.UpdatedAt = s.clock.Now()

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	summary := updated.Summary()
	return &summary, nil
}

// StripBearer removes exactly one literal "Bearer " prefix, if present.
func StripBearer(authorization string) string {
	return strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
}

// spendVerify runs one hash comparison against a decoy so an unknown email
// costs the same as a wrong password.
func (s *SessionService) spendVerify(password string) {
	s.decoyOnce.Do(func() {
		s.decoyHash, _ = s.hasher.Hash("decoy-password")
	})
	if s.decoyHash != "" {
		_, _ = s.hasher.Verify(password, s.decoyHash)
	}
}

// activeUser loads a token subject. Deactivated accounts are treated as gone.
func (s *SessionService) activeUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *SessionService) issuePair(user *domain.User) (*ports.AuthResult, error) {
	access, err := s.tokens.EncodeAccess(s.tokens.NewAccessClaims(user.ID, user.Email))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.EncodeRefresh(s.tokens.NewRefreshClaims(user.ID))
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &ports.AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user.Summary(),
	}, nil
}

type field struct {
	name  string
	value string
}

func requireFields(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrValidation, f.name)
		}
	}
	return nil
}

func checkPasswordLength(name, password string) error {
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: %s must be at most %d bytes", domain.ErrValidation, name, maxPasswordBytes)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRegister(in ports.RegisterInput) ports.RegisterInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.TenantName = strings.TrimSpace(in.TenantName)
	in.TenantSlug = strings.ToLower(strings.TrimSpace(in.TenantSlug))
	return in
}
