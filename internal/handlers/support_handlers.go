package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"dinehub/internal/common"
	"dinehub/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func intQuery(c echo.Context, name string, fallback int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// SupportHandlers serves support tickets and the public contact form.
type SupportHandlers struct {
	supportService services.SupportService
	logger         *zap.Logger
}

func NewSupportHandlers(supportService services.SupportService, logger *zap.Logger) *SupportHandlers {
	return &SupportHandlers{supportService: supportService, logger: logger}
}

// CreateTicketRequest represents the ticket creation payload
type CreateTicketRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// CreateTicket handles POST /api/support/tickets
func (h *SupportHandlers) CreateTicket(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CreateTicketRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return common.SendValidationError(c, "subject", "subject is required")
	}
	if strings.TrimSpace(req.Body) == "" {
		return common.SendValidationError(c, "body", "body is required")
	}

	ticket, err := h.supportService.CreateTicket(ctx, identity.TenantID, identity.UserID, req.Subject, req.Body)
	if err != nil {
		h.logger.Error("failed to create ticket", zap.Error(err))
		return common.SendServerError(c, "Failed to create ticket")
	}
	return c.JSON(http.StatusCreated, ticket)
}

// ListTickets handles GET /api/support/tickets
func (h *SupportHandlers) ListTickets(c echo.Context) error {
	ctx := c.Request().Context()
	identity, ok := common.IdentityFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tickets, err := h.supportService.ListTickets(ctx, identity.TenantID, intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		h.logger.Error("failed to list tickets", zap.Error(err))
		return common.SendServerError(c, "Failed to list tickets")
	}
	return c.JSON(http.StatusOK, tickets)
}

// ContactRequest represents the public contact form payload
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Contact handles POST /api/contact
func (h *SupportHandlers) Contact(c echo.Context) error {
	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if strings.TrimSpace(req.Email) == "" {
		return common.SendValidationError(c, "email", "email is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return common.SendValidationError(c, "message", "message is required")
	}

	if err := h.supportService.SubmitContactMessage(c.Request().Context(), req.Name, req.Email, req.Message); err != nil {
		h.logger.Error("failed to store contact message", zap.Error(err))
		return common.SendServerError(c, "Failed to submit message")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Thanks, we will be in touch"})
}
