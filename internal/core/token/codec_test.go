package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgstack/tenant-auth/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCodec(t *testing.T, secret string) (*Codec, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c, err := NewCodec(Config{Secret: []byte(secret)}, clock)
	require.NoError(t, err)
	return c, clock
}

func decodeSegment(t *testing.T, seg string) map[string]any {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestNewCodec_EmptySecret(t *testing.T) {
	_, err := NewCodec(Config{}, nil)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestCodec_AccessRoundTrip(t *testing.T) {
	c, _ := newTestCodec(t, "secret")

	claims := c.NewAccessClaims("u-1", "ada@x.com")
	raw, err := c.EncodeAccess(claims)
	require.NoError(t, err)

	got, err := c.DecodeAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, claims, got)
}

func TestCodec_RefreshRoundTrip(t *testing.T) {
	c, _ := newTestCodec(t, "secret")

	claims := c.NewRefreshClaims("u-1")
	raw, err := c.EncodeRefresh(claims)
	require.NoError(t, err)

	got, err := c.DecodeRefresh(raw)
	require.NoError(t, err)
	assert.Equal(t, claims, got)
}

func TestCodec_Lifetimes(t *testing.T) {
	c, clock := newTestCodec(t, "secret")

	assert.Equal(t, clock.Now().Add(24*time.Hour), c.NewAccessClaims("u", "e").ExpiresAt)
	assert.Equal(t, clock.Now().Add(30*24*time.Hour), c.NewRefreshClaims("u").ExpiresAt)
}

func TestCodec_WireFormat(t *testing.T) {
	c, clock := newTestCodec(t, "secret")

	raw, err := c.EncodeAccess(c.NewAccessClaims("u-1", "ada@x.com"))
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)

	header := decodeSegment(t, parts[0])
	assert.Equal(t, "HS256", header["alg"])
	assert.Equal(t, "JWT", header["typ"])

	payload := decodeSegment(t, parts[1])
	assert.Equal(t, "u-1", payload["user_id"])
	assert.Equal(t, "ada@x.com", payload["email"])
	assert.Equal(t, "access", payload["token_use"])
	assert.EqualValues(t, clock.Now().Add(DefaultAccessTTL).Unix(), payload["exp"])

	refresh, err := c.EncodeRefresh(c.NewRefreshClaims("u-1"))
	require.NoError(t, err)
	payload = decodeSegment(t, strings.Split(refresh, ".")[1])
	assert.NotContains(t, payload, "email")
	assert.Equal(t, "refresh", payload["token_use"])
}

func TestCodec_InteroperatesWithStandardJWT(t *testing.T) {
	c, _ := newTestCodec(t, "secret")

	raw, err := c.EncodeAccess(c.NewAccessClaims("u-1", "ada@x.com"))
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "u-1", claims["user_id"])
}

func TestCodec_WrongSecret(t *testing.T) {
	issuer, _ := newTestCodec(t, "secret")
	verifier, _ := newTestCodec(t, "other-secret")

	raw, err := issuer.EncodeAccess(issuer.NewAccessClaims("u-1", "ada@x.com"))
	require.NoError(t, err)

	_, err = verifier.DecodeAccess(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestCodec_ExpiredWithWrongSecretIsSignatureError(t *testing.T) {
	issuer, clock := newTestCodec(t, "secret")
	verifier, err := NewCodec(Config{Secret: []byte("other")}, clock)
	require.NoError(t, err)

	raw, err := issuer.EncodeAccess(issuer.NewAccessClaims("u-1", "ada@x.com"))
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)

	_, err = verifier.DecodeAccess(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestCodec_Tampered(t *testing.T) {
	c, _ := newTestCodec(t, "secret")

	raw, err := c.EncodeAccess(c.NewAccessClaims("u-1", "ada@x.com"))
	require.NoError(t, err)
	parts := strings.Split(raw, ".")

	forged, err := json.Marshal(map[string]any{
		"user_id":   "u-2",
		"email":     "eve@x.com",
		"token_use": "access",
		"exp":       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	})
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	_, err = c.DecodeAccess(strings.Join(parts, "."))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestCodec_Malformed(t *testing.T) {
	c, _ := newTestCodec(t, "secret")

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c", "...."} {
		_, err := c.DecodeAccess(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature, "token %q", raw)
	}
}

func TestCodec_RejectsOtherAlgorithms(t *testing.T) {
	c, clock := newTestCodec(t, "secret")

	claims := jwt.MapClaims{
		"user_id":   "u-1",
		"token_use": "access",
		"exp":       clock.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = c.DecodeAccess(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.DecodeAccess(none)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestCodec_MissingExpiry(t *testing.T) {
	c, _ := newTestCodec(t, "secret")

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   "u-1",
		"token_use": "access",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = c.DecodeAccess(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestCodec_Expired(t *testing.T) {
	c, clock := newTestCodec(t, "secret")

	access, err := c.EncodeAccess(c.NewAccessClaims("u-1", "ada@x.com"))
	require.NoError(t, err)
	refresh, err := c.EncodeRefresh(c.NewRefreshClaims("u-1"))
	require.NoError(t, err)

	clock.Advance(DefaultAccessTTL + time.Second)

	_, err = c.DecodeAccess(access)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.NotErrorIs(t, err, domain.ErrInvalidSignature)

	// refresh still has ~29 days left
	_, err = c.DecodeRefresh(refresh)
	assert.NoError(t, err)

	clock.Advance(DefaultRefreshTTL)
	_, err = c.DecodeRefresh(refresh)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestCodec_ExpiredOneSecondAgo(t *testing.T) {
	c, clock := newTestCodec(t, "secret")

	raw, err := c.EncodeAccess(domain.AccessClaims{
		UserID:    "u-1",
		Email:     "ada@x.com",
		ExpiresAt: clock.Now().Add(-time.Second),
	})
	require.NoError(t, err)

	_, err = c.DecodeAccess(raw)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestCodec_ValidUntilExpirySecondPasses(t *testing.T) {
	c, clock := newTestCodec(t, "secret")

	access, err := c.EncodeAccess(c.NewAccessClaims("u-1", "ada@x.com"))
	require.NoError(t, err)
	refresh, err := c.EncodeRefresh(c.NewRefreshClaims("u-1"))
	require.NoError(t, err)

	clock.Advance(DefaultAccessTTL)
	claims, err := c.DecodeAccess(access)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), claims.ExpiresAt)

	clock.Advance(time.Nanosecond)
	_, err = c.DecodeAccess(access)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	clock.Advance(DefaultRefreshTTL - DefaultAccessTTL - time.Nanosecond)
	_, err = c.DecodeRefresh(refresh)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = c.DecodeRefresh(refresh)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestCodec_ProfilesAreNotInterchangeable(t *testing.T) {
	c, _ := newTestCodec(t, "secret")

	access, err := c.EncodeAccess(c.NewAccessClaims("u-1", "ada@x.com"))
	require.NoError(t, err)
	refresh, err := c.EncodeRefresh(c.NewRefreshClaims("u-1"))
	require.NoError(t, err)

	_, err = c.DecodeRefresh(access)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = c.DecodeAccess(refresh)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestCodec_UntaggedTokenRejected(t *testing.T) {
	c, clock := newTestCodec(t, "secret")

	// shape produced by issuers that do not tag token_use
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"exp":     clock.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = c.DecodeRefresh(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestCodec_ConcurrentUse(t *testing.T) {
	c, _ := newTestCodec(t, "secret")

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, err := c.EncodeAccess(c.NewAccessClaims("u-1", "ada@x.com"))
			if err != nil {
				errs <- err
				return
			}
			if _, err := c.DecodeAccess(raw); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent encode/decode: %v", err)
	}
}
