package handlers

import (
	"net/http"
	"strings"

	"dinehub/internal/common"
	"dinehub/internal/repositories"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantHandlers serves account/tenant settings. The slug is immutable;
// only the display name can change.
type TenantHandlers struct {
	tenantRepo repositories.TenantRepository
	logger     *zap.Logger
}

func NewTenantHandlers(tenantRepo repositories.TenantRepository, logger *zap.Logger) *TenantHandlers {
	return &TenantHandlers{tenantRepo: tenantRepo, logger: logger}
}

// GetTenant handles GET /api/tenant
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tenant, err := h.tenantRepo.GetByID(ctx, identity.TenantID)
	if err != nil {
		return common.SendNotFoundError(c, "Tenant")
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenantRequest represents the tenant settings payload
type UpdateTenantRequest struct {
	Name string `json:"name"`
}

// UpdateTenant handles PUT /api/tenant
func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req UpdateTenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if strings.TrimSpace(req.Name) == "" {
		return common.SendValidationError(c, "name", "name is required")
	}

	if err := h.tenantRepo.UpdateName(ctx, identity.TenantID, strings.TrimSpace(req.Name)); err != nil {
		h.logger.Error("failed to update tenant", zap.Error(err))
		return common.SendServerError(c, "Failed to update tenant")
	}

	tenant, err := h.tenantRepo.GetByID(ctx, identity.TenantID)
	if err != nil {
		return common.SendNotFoundError(c, "Tenant")
	}
	return c.JSON(http.StatusOK, tenant)
}
