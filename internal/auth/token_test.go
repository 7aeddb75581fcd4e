package auth

import (
	"strings"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	clock := newClock()
	svc := NewTokenService(testSecret, WithClock(clock.Now))
	user := &models.User{ID: 42, Email: "writer@example.com", Role: models.RoleAdmin}

	token, err := svc.Issue(user)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "writer@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, clock.t.Add(DefaultTokenTTL).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenService_ExpiresAfterSevenDays(t *testing.T) {
	clock := newClock()
	svc := NewTokenService(testSecret, WithClock(clock.Now))

	token, err := svc.Issue(&models.User{ID: 1})
	require.NoError(t, err)

	clock.Advance(DefaultTokenTTL - time.Second)
	_, err = svc.Verify(token)
	assert.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_VerifyFailures(t *testing.T) {
	clock := newClock()
	svc := NewTokenService(testSecret, WithClock(clock.Now))
	other := NewTokenService("another-secret-key-123456789012345678901234", WithClock(clock.Now))

	foreign, err := other.Issue(&models.User{ID: 1})
	require.NoError(t, err)

	valid, err := svc.Issue(&models.User{ID: 1})
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	signWith := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	registered := func(sub, iss, aud string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    iss,
			Audience:  jwt.ClaimStrings{aud},
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		}
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrTokenMalformed},
		{"empty", "", ErrTokenMalformed},
		{"wrong secret", foreign, ErrTokenSignatureInvalid},
		{"tampered signature", tampered, ErrTokenSignatureInvalid},
		{"unexpected algorithm", signWith(jwt.SigningMethodHS512, []byte(testSecret), registered("1", DefaultIssuer, DefaultAudience)), ErrTokenSignatureInvalid},
		{"wrong issuer", signWith(jwt.SigningMethodHS256, []byte(testSecret), registered("1", "someone-else", DefaultAudience)), ErrTokenMalformed},
		{"wrong audience", signWith(jwt.SigningMethodHS256, []byte(testSecret), registered("1", DefaultIssuer, "other-client")), ErrTokenMalformed},
		{"non numeric subject", signWith(jwt.SigningMethodHS256, []byte(testSecret), registered("abc", DefaultIssuer, DefaultAudience)), ErrTokenMalformed},
		{"missing expiry", signWith(jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "1", Issuer: DefaultIssuer, Audience: jwt.ClaimStrings{DefaultAudience}}), ErrTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
