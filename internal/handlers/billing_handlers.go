package handlers

import (
	"errors"
	"net/http"

	"dinehub/internal/common"
	"dinehub/internal/models"
	"dinehub/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// BillingHandlers handles tenant-scoped billing requests.
type BillingHandlers struct {
	billingService services.BillingService
	logger         *zap.Logger
}

func NewBillingHandlers(billingService services.BillingService, logger *zap.Logger) *BillingHandlers {
	return &BillingHandlers{billingService: billingService, logger: logger}
}

// GetSubscription handles GET /api/billing/subscription
func (h *BillingHandlers) GetSubscription(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	sub, err := h.billingService.GetSubscription(ctx, identity.TenantID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		h.logger.Error("failed to load subscription", zap.Error(err))
		return common.SendServerError(c, "Failed to load subscription")
	}
	return c.JSON(http.StatusOK, sub)
}

// ChangePlanRequest represents the plan change payload
type ChangePlanRequest struct {
	Tier         int    `json:"tier"`
	BillingCycle string `json:"billingCycle"`
}

// ChangePlan handles PUT /api/billing/plan
func (h *BillingHandlers) ChangePlan(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req ChangePlanRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.BillingCycle != models.BillingCycleMonthly && req.BillingCycle != models.BillingCycleYearly {
		return common.SendValidationError(c, "billingCycle", "billing cycle must be monthly or yearly")
	}

	sub, err := h.billingService.ChangePlan(ctx, identity.TenantID, req.Tier, req.BillingCycle)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownPlan):
			return common.SendClientError(c, "Unknown tier/billing cycle combination")
		case errors.Is(err, services.ErrNotFound):
			return common.SendNotFoundError(c, "Subscription")
		case errors.Is(err, services.ErrProviderUnavailable):
			h.logger.Error("plan change provider failure", zap.String("tenant_id", identity.TenantID.String()), zap.Error(err))
			return common.SendGatewayError(c, "Payment provider is unavailable, please retry")
		default:
			h.logger.Error("plan change failed", zap.Error(err))
			return common.SendServerError(c, "Plan change failed")
		}
	}
	return c.JSON(http.StatusOK, sub)
}

// Cancel handles POST /api/billing/cancel
func (h *BillingHandlers) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.billingService.Cancel(ctx, identity.TenantID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		h.logger.Error("cancellation failed", zap.Error(err))
		return common.SendServerError(c, "Cancellation failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Subscription cancelled"})
}

// ListInvoices handles GET /api/billing/invoices
func (h *BillingHandlers) ListInvoices(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoices, err := h.billingService.ListInvoices(ctx, identity.TenantID, intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		return common.SendServerError(c, "Failed to list invoices")
	}
	return c.JSON(http.StatusOK, invoices)
}

// AddPaymentMethodRequest represents the add-payment-method payload
type AddPaymentMethodRequest struct {
	MethodType      string  `json:"methodType"`
	LastFour        string  `json:"lastFour"`
	Label           *string `json:"label"`
	ProviderTokenID *string `json:"providerTokenId"`
}

// AddPaymentMethod handles POST /api/billing/payment-methods
func (h *BillingHandlers) AddPaymentMethod(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req AddPaymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.MethodType == "" {
		return common.SendValidationError(c, "methodType", "method type is required")
	}
	if len(req.LastFour) != 4 {
		return common.SendValidationError(c, "lastFour", "last four digits are required")
	}

	method, err := h.billingService.AddPaymentMethod(ctx, identity.TenantID, services.PaymentMethodInput{
		MethodType:      req.MethodType,
		LastFour:        req.LastFour,
		Label:           req.Label,
		ProviderTokenID: req.ProviderTokenID,
	})
	if err != nil {
		h.logger.Error("failed to add payment method", zap.Error(err))
		return common.SendServerError(c, "Failed to add payment method")
	}
	return c.JSON(http.StatusCreated, method)
}

// ListPaymentMethods handles GET /api/billing/payment-methods
func (h *BillingHandlers) ListPaymentMethods(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	methods, err := h.billingService.ListPaymentMethods(ctx, identity.TenantID)
	if err != nil {
		h.logger.Error("failed to list payment methods", zap.Error(err))
		return common.SendServerError(c, "Failed to list payment methods")
	}
	return c.JSON(http.StatusOK, methods)
}

// RemovePaymentMethod handles DELETE /api/billing/payment-methods/:id
func (h *BillingHandlers) RemovePaymentMethod(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	methodID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendValidationError(c, "id", "invalid payment method id")
	}

	if err := h.billingService.RemovePaymentMethod(ctx, identity.TenantID, methodID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return common.SendNotFoundError(c, "Payment method")
		}
		h.logger.Error("failed to remove payment method", zap.Error(err))
		return common.SendServerError(c, "Failed to remove payment method")
	}
	return c.NoContent(http.StatusNoContent)
}
