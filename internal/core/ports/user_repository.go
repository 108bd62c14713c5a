package ports

import (
	"context"

	"github.com/orgstack/tenant-auth/internal/core/domain"
)

// UserRepository defines the persistence operations needed by the session
// service. Lookups return domain.ErrUserNotFound when nothing matches.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create assigns ID, CreatedAt and UpdatedAt. A uniqueness violation on
	// email is reported as domain.ErrDuplicateEmail.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// Update persists mutable fields and refreshes UpdatedAt.
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
}
