// Package middleware provides the gin middleware for the admin API:
// session authentication, proxy hop recognition, request IDs, CORS and
// cache control.
package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/infrastructure/auth"
	"github.com/nicepick/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Session context keys
const (
	SessionClaimsKey = "session_claims"
	SessionTokenKey  = "session_token"
	SessionUserIDKey = "session_user_id"
	ProxyHopKey      = "proxy_hop"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// SessionAuthConfig holds configuration for the session middleware
type SessionAuthConfig struct {
	// Sessions verifies the signed admin session token
	Sessions *auth.SessionService
	// CookieName is the session cookie the dashboard sets
	CookieName string
	// ProxySecret authenticates sibling deployments. Empty disables
	// proxy hop recognition entirely.
	ProxySecret string
	// Logger for middleware logging
	Logger *zap.Logger
}

// SessionAuth creates the admin authentication middleware.
//
// A request carrying a valid proxy hop header pair is a sibling
// deployment acting on behalf of an already-authenticated admin; it is
// admitted without a session and flagged so downstream code never
// proxies it onward. Everything else needs a valid session token from
// the cookie or the Authorization header.
func SessionAuth(cfg SessionAuthConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if hop := c.GetHeader(admin.HeaderProxyHop); hop != "" {
			secret := c.GetHeader(admin.HeaderProxySecret)
			if hop == admin.ProxyHopValue && cfg.ProxySecret != "" &&
				subtle.ConstantTimeCompare([]byte(secret), []byte(cfg.ProxySecret)) == 1 {
				c.Set(ProxyHopKey, true)
				c.Next()
				return
			}
			logger.Warn("rejected proxy hop with bad credentials",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			abortUnauthorized(c, dto.ErrCodeForbidden, "Invalid proxy credentials")
			return
		}

		token := extractSessionToken(c, cfg.CookieName)
		if token == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing session token")
			return
		}

		claims, err := cfg.Sessions.Verify(token)
		if err != nil {
			code := dto.ErrCodeTokenInvalid
			if errors.Is(err, auth.ErrExpiredToken) {
				code = dto.ErrCodeTokenExpired
			}
			abortUnauthorized(c, code, "Session validation failed")
			return
		}

		c.Set(SessionClaimsKey, claims)
		c.Set(SessionTokenKey, token)
		c.Set(SessionUserIDKey, claims.UserID)
		c.Next()
	}
}

// extractSessionToken reads the session token from the cookie or the
// Authorization header, preferring the cookie.
func extractSessionToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			return token
		}
	}
	header := c.GetHeader(AuthHeaderKey)
	if strings.HasPrefix(header, BearerPrefix) {
		return strings.TrimPrefix(header, BearerPrefix)
	}
	return ""
}

func abortUnauthorized(c *gin.Context, code, message string) {
	status := dto.GetHTTPStatus(code)
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message))
}

// IsProxyHop reports whether the current request was admitted via the
// proxy hop headers
func IsProxyHop(c *gin.Context) bool {
	return c.GetBool(ProxyHopKey)
}

// GetSessionToken returns the raw session token for forwarding to a
// sibling deployment, or empty for proxy hop requests
func GetSessionToken(c *gin.Context) string {
	return c.GetString(SessionTokenKey)
}

// GetSessionClaims returns the verified session claims, or nil
func GetSessionClaims(c *gin.Context) *auth.SessionClaims {
	if v, ok := c.Get(SessionClaimsKey); ok {
		if claims, ok := v.(*auth.SessionClaims); ok {
			return claims
		}
	}
	return nil
}
