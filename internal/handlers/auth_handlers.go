package handlers

import (
	"errors"
	"net/http"
	"strings"

	"dinehub/internal/caching"
	"dinehub/internal/common"
	"dinehub/internal/middleware"
	"dinehub/internal/repositories"
	"dinehub/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService services.AuthService
	tokenSvc    services.TokenService
	userRepo    repositories.UserRepository
	tokenRepo   repositories.TokenRepository
	cache       caching.CacheService
	logger      *zap.Logger
}

func NewAuthHandlers(
	authService services.AuthService,
	tokenSvc services.TokenService,
	userRepo repositories.UserRepository,
	tokenRepo repositories.TokenRepository,
	cache caching.CacheService,
	logger *zap.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		tokenSvc:    tokenSvc,
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		cache:       cache,
		logger:      logger,
	}
}

// RegisterRequest represents the tenant registration payload
type RegisterRequest struct {
	RestaurantName string  `json:"restaurantName"`
	Email          string  `json:"email"`
	Phone          *string `json:"phone"`
	Password       string  `json:"password"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Tier           int     `json:"tier"`
	BillingCycle   string  `json:"billingCycle"`
}

// Register handles POST /api/auth/register
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if strings.TrimSpace(req.RestaurantName) == "" {
		return common.SendValidationError(c, "restaurantName", "restaurant name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return common.SendValidationError(c, "email", "email is required")
	}
	if len(req.Password) < 8 {
		return common.SendValidationError(c, "password", "password must be at least 8 characters")
	}

	tokens, err := h.authService.Register(c.Request().Context(), services.RegisterInput{
		RestaurantName: strings.TrimSpace(req.RestaurantName),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          req.Phone,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Tier:           req.Tier,
		BillingCycle:   req.BillingCycle,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return common.SendConflictError(c, "Email already registered")
		case errors.Is(err, services.ErrSlugExhausted):
			return common.SendConflictError(c, "Could not allocate a unique slug, please retry")
		default:
			h.logger.Error("registration failed", zap.Error(err))
			return common.SendServerError(c, "Registration failed")
		}
	}

	return c.JSON(http.StatusCreated, tokens)
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Login handles POST /api/auth/login
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Identifier == "" || req.Password == "" {
		return common.SendValidationError(c, "identifier", "identifier and password are required")
	}

	tokens, err := h.authService.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("INVALID_CREDENTIALS", "Invalid credentials", nil))
		}
		h.logger.Error("login failed", zap.Error(err))
		return common.SendServerError(c, "Login failed")
	}

	return c.JSON(http.StatusOK, tokens)
}

// RefreshRequest represents the token refresh payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandlers) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.RefreshToken == "" {
		return common.SendValidationError(c, "refresh_token", "refresh token is required")
	}

	tokens, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("INVALID_REFRESH_TOKEN", "Invalid or expired refresh token", nil))
		}
		h.logger.Error("token refresh failed", zap.Error(err))
		return common.SendServerError(c, "Token refresh failed")
	}

	return c.JSON(http.StatusOK, tokens)
}

// Logout handles POST /api/auth/logout: the access token's jti is
// blacklisted until its natural expiry and all refresh tokens revoked.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	authHeader := c.Request().Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if claims, valid := h.tokenSvc.ValidateAccessToken(tokenString); valid {
		if err := h.cache.BlacklistToken(ctx, claims.ID, middleware.RevocationTTL(claims)); err != nil {
			h.logger.Warn("failed to blacklist token", zap.Error(err))
		}
	}
	if err := h.tokenRepo.RevokeUserRefreshTokens(ctx, identity.UserID); err != nil {
		h.logger.Warn("failed to revoke refresh tokens", zap.Error(err))
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// ForgotPasswordRequest represents the forgot-password payload
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is
// identical whether or not the email exists.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if strings.TrimSpace(req.Email) == "" {
		return common.SendValidationError(c, "email", "email is required")
	}

	if _, err := h.authService.ForgotPassword(c.Request().Context(), strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		// Still answer generically; the failure is logged for operators.
		h.logger.Error("forgot-password failed", zap.Error(err))
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "If that email is registered, a reset link has been sent",
	})
}

// ResetPasswordRequest represents the reset-password payload
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Token == "" {
		return common.SendValidationError(c, "token", "token is required")
	}
	if len(req.NewPassword) < 8 {
		return common.SendValidationError(c, "newPassword", "password must be at least 8 characters")
	}

	err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrResetTokenNotFound):
			return c.JSON(http.StatusBadRequest, common.CreateErrorResponse("RESET_TOKEN_NOT_FOUND", "Reset token not found", nil))
		case errors.Is(err, services.ErrResetTokenUsed):
			return c.JSON(http.StatusBadRequest, common.CreateErrorResponse("RESET_TOKEN_USED", "Reset token already used", nil))
		case errors.Is(err, services.ErrResetTokenExpired):
			return c.JSON(http.StatusBadRequest, common.CreateErrorResponse("RESET_TOKEN_EXPIRED", "Reset token expired", nil))
		default:
			h.logger.Error("password reset failed", zap.Error(err))
			return common.SendServerError(c, "Password reset failed")
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Password updated"})
}

// Me handles GET /api/auth/me
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	user, err := h.userRepo.GetByID(ctx, identity.TenantID, identity.UserID)
	if err != nil {
		return common.SendNotFoundError(c, "User")
	}
	return c.JSON(http.StatusOK, user)
}
