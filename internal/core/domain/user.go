package domain

import "time"

const (
	RoleOrgAdmin = "ORG_ADMIN"
	RoleUser     = "USER"
)

// User models an account belonging to a tenant.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	TenantName   string    `json:"tenant_name,omitempty"`
	TenantSlug   string    `json:"tenant_slug,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSummary is the caller-facing view of a User. It never carries the
// password hash.
type UserSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	TenantName string `json:"tenantName"`
	TenantSlug string `json:"tenantSlug"`
}

// Summary projects u onto the fields exposed to callers.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		TenantName: u.TenantName,
		TenantSlug: u.TenantSlug,
	}
}
