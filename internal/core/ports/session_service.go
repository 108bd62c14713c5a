package ports

import (
	"context"

	"github.com/orgstack/tenant-auth/internal/core/domain"
)

// RegisterInput carries everything needed to bootstrap a tenant admin.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	TenantName string
	TenantSlug string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         domain.UserSummary
}

// RefreshResult carries a freshly minted access token and the subject it
// was issued to.
type RefreshResult struct {
	AccessToken string
	User        domain.UserSummary
}

// ChangePasswordInput carries a password rotation request for a signed-in user.
type ChangePasswordInput struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
}

// SessionService defines the authentication use cases.
type SessionService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// GetProfile resolves an Authorization header value (with or without the
	// "Bearer " prefix) to the current stored user.
	GetProfile(ctx context.Context, authorization string) (*domain.UserSummary, error)
	// RefreshAccessToken mints a new access token; the refresh token is not rotated.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*RefreshResult, error)
	ChangePassword(ctx context.Context, input ChangePasswordInput) error
	UpdateProfile(ctx context.Context, userID, name string) (*domain.UserSummary, error)
}
