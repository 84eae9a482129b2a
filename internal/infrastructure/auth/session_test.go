package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nicepick/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		Issuer:     "nicepick-admin",
		CookieName: "nicepick_session",
		Expiration: time.Hour,
	}
}

func TestIssueAndVerify(t *testing.T) {
	svc := NewSessionService(testSessionConfig())
	userID := uuid.New()

	token, err := svc.Issue(userID, "admin@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewSessionService(testSessionConfig())
	token, err := issuer.Issue(uuid.New(), "a@b.c")
	require.NoError(t, err)

	other := testSessionConfig()
	other.Secret = "ffffffffffffffffffffffffffffffff"
	verifier := NewSessionService(other)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	cfg := testSessionConfig()
	cfg.Issuer = "someone-else"
	issuer := NewSessionService(cfg)
	token, err := issuer.Issue(uuid.New(), "a@b.c")
	require.NoError(t, err)

	verifier := NewSessionService(testSessionConfig())
	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	cfg := testSessionConfig()
	cfg.Expiration = -time.Minute
	svc := NewSessionService(cfg)
	token, err := svc.Issue(uuid.New(), "a@b.c")
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsNonAdminRole(t *testing.T) {
	cfg := testSessionConfig()
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: uuid.New().String(),
		Role:   "viewer",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	svc := NewSessionService(cfg)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewSessionService(testSessionConfig())
	_, err := svc.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingUserID(t *testing.T) {
	cfg := testSessionConfig()
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: "admin",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	svc := NewSessionService(cfg)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
