package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"dinehub/internal/common"
	"dinehub/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WebhookHandlers receives billing callbacks from the payment provider.
// The endpoint is unauthenticated by design; the HMAC signature over the
// raw body is the sole trust boundary.
type WebhookHandlers struct {
	reducer       services.WebhookReducer
	webhookSecret string
	logger        *zap.Logger
}

func NewWebhookHandlers(reducer services.WebhookReducer, webhookSecret string, logger *zap.Logger) *WebhookHandlers {
	return &WebhookHandlers{
		reducer:       reducer,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// verifySignature computes HMAC-SHA256 over the verbatim body bytes and
// compares hex digests in constant time. Any failure along the way is a
// verification failure, never a propagated error.
func (h *WebhookHandlers) verifySignature(signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	if _, err := mac.Write(body); err != nil {
		return false
	}
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Receive handles POST /api/billing/webhook. Verification runs before the
// event is parsed; a bad signature produces a 400 with zero side effects.
func (h *WebhookHandlers) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return common.SendClientError(c, "Failed to read request body")
	}

	signature := c.Request().Header.Get("X-Razorpay-Signature")
	if !h.verifySignature(signature, body) {
		h.logger.Warn("webhook signature verification failed", zap.Int("body_bytes", len(body)))
		return common.SendClientError(c, "Invalid webhook signature")
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return common.SendClientError(c, "Malformed webhook payload")
	}

	if err := h.reducer.Process(c.Request().Context(), &event); err != nil {
		h.logger.Error("webhook processing failed", zap.String("event", event.Event), zap.Error(err))
		return common.SendServerError(c, "Webhook processing failed")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "success",
		"event":  event.Event,
	})
}
