package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const registrationLockTTL = 30 * time.Second

// RegistrationGuard holds a short-lived Redis lock per email while a
// registration is in flight, so concurrent sign-ups for the same address
// across instances do not all pay for a bcrypt hash before the unique index
// rejects them.
// Key format: register:<email>
type RegistrationGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRegistrationGuard creates a RegistrationGuard wrapping the given Redis client.
func NewRegistrationGuard(client *redis.Client) *RegistrationGuard {
	return &RegistrationGuard{client: client, ttl: registrationLockTTL}
}

// Acquire takes the lock for email. It returns false when another
// registration already holds it.
func (g *RegistrationGuard) Acquire(ctx context.Context, email string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(email), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("registration guard acquire: %w", err)
	}
	return ok, nil
}

// Release drops the lock. The TTL covers the case where Release never runs.
func (g *RegistrationGuard) Release(ctx context.Context, email string) error {
	if err := g.client.Del(ctx, g.key(email)).Err(); err != nil {
		return fmt.Errorf("registration guard release: %w", err)
	}
	return nil
}

func (g *RegistrationGuard) key(email string) string {
	return "register:" + email
}
