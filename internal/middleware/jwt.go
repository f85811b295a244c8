package middleware

import (
	"net/http"
	"strings"
	"time"

	"dinehub/internal/caching"
	"dinehub/internal/common"
	"dinehub/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PublicPaths are served without bearer authentication: they either
// precede identity (login, registration, reset) or are trusted by a
// different mechanism (webhook signature, health probes).
var PublicPaths = map[string]bool{
	"/api/auth/register":        true,
	"/api/auth/login":           true,
	"/api/auth/refresh":         true,
	"/api/auth/forgot-password": true,
	"/api/auth/reset-password":  true,
	"/api/contact":              true,
	"/api/billing/webhook":      true,
}

// IsPublicPath reports whether a request path bypasses token auth.
func IsPublicPath(path string) bool {
	if strings.HasPrefix(path, "/health") {
		return true
	}
	return PublicPaths[path]
}

// JWTConfig builds the echo-jwt configuration: public paths are skipped,
// claims are parsed into AccessClaims (whose Validate rejects non-access
// tokens), and on success the identity lands in the request context.
func JWTConfig(secret string, logger *zap.Logger) echojwt.Config {
	return echojwt.Config{
		Skipper: func(c echo.Context) bool {
			return IsPublicPath(c.Request().URL.Path)
		},
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(services.AccessClaims)
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(*services.AccessClaims)
			if !ok {
				return
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return
			}
			tenantID, err := uuid.Parse(claims.TenantID)
			if err != nil {
				return
			}
			ctx := common.WithIdentity(c.Request().Context(), common.Identity{
				UserID:     userID,
				TenantID:   tenantID,
				Role:       claims.Role,
				TenantSlug: claims.TenantSlug,
			})
			c.SetRequest(c.Request().WithContext(ctx))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Debug("rejected bearer token", zap.String("path", c.Request().URL.Path), zap.Error(err))
			return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
		},
	}
}

// RequireIdentity is the fail-closed authorization gate behind the JWT
// middleware: protected paths without an attached identity are rejected.
func RequireIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsPublicPath(c.Request().URL.Path) {
				return next(c)
			}
			if _, ok := common.IdentityFromContext(c.Request().Context()); !ok {
				return common.SendUnauthorizedError(c)
			}
			return next(c)
		}
	}
}

// CheckRevocation rejects access tokens whose jti was blacklisted at
// logout. Runs after the JWT middleware so the parsed token is available.
func CheckRevocation(cache caching.CacheService, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return next(c)
			}
			claims, ok := token.Claims.(*services.AccessClaims)
			if !ok || claims.ID == "" {
				return next(c)
			}
			revoked, err := cache.IsTokenBlacklisted(c.Request().Context(), claims.ID)
			if err != nil {
				// Blacklist check is best-effort; token expiry still bounds
				// the exposure window.
				logger.Warn("token blacklist check failed", zap.Error(err))
				return next(c)
			}
			if revoked {
				return common.SendUnauthorizedError(c)
			}
			return next(c)
		}
	}
}

// RequireRole guards endpoints that only certain roles may call.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := common.IdentityFromContext(c.Request().Context())
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if !allowed[identity.Role] {
				return common.SendForbiddenError(c)
			}
			return next(c)
		}
	}
}

// RevocationTTL computes how long a blacklisted jti must be remembered:
// until the token itself expires.
func RevocationTTL(claims *services.AccessClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}
