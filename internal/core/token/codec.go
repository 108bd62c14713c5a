// Package token encodes and decodes the HS256 JWTs issued by the session
// service.
//
// Two profiles share one wire format:
//
//	access  → {user_id, email, token_use:"access",  exp}  24h by default
//	refresh → {user_id,        token_use:"refresh", exp}  30d by default
//
// Decoding is a pure function of (token, secret, clock): the signature is
// checked first, then the token_use tag, then exp against the injected Clock.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orgstack/tenant-auth/internal/core/domain"
	"github.com/orgstack/tenant-auth/internal/core/ports"
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

var ErrEmptySecret = errors.New("token: signing secret must not be empty")

// Config holds the signing secret and the lifetimes of both token profiles.
// Zero TTLs fall back to the defaults.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Codec signs and verifies tokens. It holds no mutable state and is safe for
// concurrent use.
type Codec struct {
	secret     []byte
	clock      ports.Clock
	accessTTL  time.Duration
	refreshTTL time.Duration
	parser     *jwt.Parser
}

// tokenClaims is the JSON payload shared by both profiles.
type tokenClaims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email,omitempty"`
	Use    domain.TokenUse `json:"token_use"`
	jwt.RegisteredClaims
}

func NewCodec(cfg Config, clock ports.Clock) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrEmptySecret
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Codec{
		secret:     secret,
		clock:      clock,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		// exp is checked in verify against the injected clock: a token is
		// still valid at the exact second it expires.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// NewAccessClaims builds access claims expiring one access TTL from now.
func (c *Codec) NewAccessClaims(userID, email string) domain.AccessClaims {
	return domain.AccessClaims{
		UserID:    userID,
		Email:     email,
		ExpiresAt: c.expiry(c.accessTTL),
	}
}

// NewRefreshClaims builds refresh claims expiring one refresh TTL from now.
func (c *Codec) NewRefreshClaims(userID string) domain.RefreshClaims {
	return domain.RefreshClaims{
		UserID:    userID,
		ExpiresAt: c.expiry(c.refreshTTL),
	}
}

// exp is carried as whole epoch seconds, so expiries are truncated up front
// to keep encode/decode lossless.
func (c *Codec) expiry(ttl time.Duration) time.Time {
	return c.clock.Now().Add(ttl).Truncate(time.Second).UTC()
}

func (c *Codec) EncodeAccess(claims domain.AccessClaims) (string, error) {
	return c.sign(tokenClaims{
		UserID:           claims.UserID,
		Email:            claims.Email,
		Use:              domain.TokenUseAccess,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt)},
	})
}

func (c *Codec) EncodeRefresh(claims domain.RefreshClaims) (string, error) {
	return c.sign(tokenClaims{
		UserID:           claims.UserID,
		Use:              domain.TokenUseRefresh,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt)},
	})
}

// DecodeAccess verifies raw as an access token. It fails with
// domain.ErrInvalidSignature for anything that does not verify (including a
// refresh token) and domain.ErrTokenExpired for a genuine but expired token.
func (c *Codec) DecodeAccess(raw string) (domain.AccessClaims, error) {
	tc, err := c.verify(raw, domain.TokenUseAccess)
	if err != nil {
		return domain.AccessClaims{}, err
	}
	return domain.AccessClaims{
		UserID:    tc.UserID,
		Email:     tc.Email,
		ExpiresAt: tc.ExpiresAt.Time.UTC(),
	}, nil
}

// DecodeRefresh is DecodeAccess for refresh tokens.
func (c *Codec) DecodeRefresh(raw string) (domain.RefreshClaims, error) {
	tc, err := c.verify(raw, domain.TokenUseRefresh)
	if err != nil {
		return domain.RefreshClaims{}, err
	}
	return domain.RefreshClaims{
		UserID:    tc.UserID,
		ExpiresAt: tc.ExpiresAt.Time.UTC(),
	}, nil
}

func (c *Codec) sign(claims tokenClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) verify(raw string, want domain.TokenUse) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := c.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidSignature
	}
	if claims.Use != want || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrInvalidSignature
	}
	if want == domain.TokenUseRefresh && claims.Email != "" {
		return nil, domain.ErrInvalidSignature
	}
	if c.clock.Now().After(claims.ExpiresAt.Time) {
		return nil, domain.ErrTokenExpired
	}
	return claims, nil
}
