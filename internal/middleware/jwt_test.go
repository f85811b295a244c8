package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dinehub/internal/common"
	"dinehub/internal/services"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsPublicPath(t *testing.T) {
	assert.True(t, IsPublicPath("/api/auth/login"))
	assert.True(t, IsPublicPath("/api/billing/webhook"))
	assert.True(t, IsPublicPath("/health"))
	assert.True(t, IsPublicPath("/health/ready"))

	assert.False(t, IsPublicPath("/api/auth/me"))
	assert.False(t, IsPublicPath("/api/billing/subscription"))
	assert.False(t, IsPublicPath("/api/tenant"))
}

func newProtectedEcho(secret string) *echo.Echo {
	e := echo.New()
	e.Use(echojwt.WithConfig(JWTConfig(secret, zap.NewNop())))
	e.Use(RequireIdentity())
	e.GET("/api/auth/me", func(c echo.Context) error {
		identity, _ := common.IdentityFromContext(c.Request().Context())
		return c.JSON(http.StatusOK, map[string]string{"user_id": identity.UserID.String(), "role": identity.Role})
	})
	e.GET("/api/tenant", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RequireRole("MANAGER"))
	e.POST("/api/auth/login", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return e
}

func issueTestToken(t *testing.T, secret, role string) (string, uuid.UUID) {
	t.Helper()
	svc, err := services.NewTokenService(secret, 15*time.Minute, time.Hour)
	assert.NoError(t, err)
	userID := uuid.New()
	signed, _, err := svc.IssueAccessToken(userID, uuid.New(), role, "test-slug")
	assert.NoError(t, err)
	return signed, userID
}

func TestJWT_ValidTokenAttachesIdentity(t *testing.T) {
	e := newProtectedEcho("jwt-test-secret")
	token, userID := issueTestToken(t, "jwt-test-secret", "MANAGER")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.String())
}

func TestJWT_MissingTokenRejected(t *testing.T) {
	e := newProtectedEcho("jwt-test-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWT_WrongSecretRejected(t *testing.T) {
	e := newProtectedEcho("jwt-test-secret")
	token, _ := issueTestToken(t, "some-other-secret", "MANAGER")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWT_PublicPathSkipsAuth(t *testing.T) {
	e := newProtectedEcho("jwt-test-secret")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_StaffForbiddenFromManagerEndpoint(t *testing.T) {
	e := newProtectedEcho("jwt-test-secret")
	token, _ := issueTestToken(t, "jwt-test-secret", "STAFF")

	req := httptest.NewRequest(http.MethodGet, "/api/tenant", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_ManagerAllowed(t *testing.T) {
	e := newProtectedEcho("jwt-test-secret")
	token, _ := issueTestToken(t, "jwt-test-secret", "MANAGER")

	req := httptest.NewRequest(http.MethodGet, "/api/tenant", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRevocationTTL(t *testing.T) {
	claims := &services.AccessClaims{}
	assert.Equal(t, time.Duration(0), RevocationTTL(claims))
}
