package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	razorpayBaseURL = "https://api.razorpay.com/v1"
	providerTimeout = 10 * time.Second
)

// RazorpayService is the outbound client for the payment provider. All
// calls carry a bounded timeout so a slow provider never blocks request
// handling indefinitely.
type RazorpayService interface {
	CreateSubscription(ctx context.Context, planID, customerEmail string) (*ProviderSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}

// ProviderSubscription is the subset of the provider's subscription entity
// the orchestrator consumes.
type ProviderSubscription struct {
	ID           string `json:"id"`
	PlanID       string `json:"plan_id"`
	Status       string `json:"status"`
	CurrentStart int64  `json:"current_start"`
	CurrentEnd   int64  `json:"current_end"`
}

type createSubscriptionRequest struct {
	PlanID         string            `json:"plan_id"`
	TotalCount     int               `json:"total_count"`
	CustomerNotify int               `json:"customer_notify"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type razorpayService struct {
	client *resty.Client
	logger *zap.Logger
}

func NewRazorpayService(keyID, keySecret string, logger *zap.Logger) RazorpayService {
	client := resty.New().
		SetBaseURL(razorpayBaseURL).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(providerTimeout).
		SetHeader("Content-Type", "application/json")

	return &razorpayService{client: client, logger: logger}
}

func (s *razorpayService) CreateSubscription(ctx context.Context, planID, customerEmail string) (*ProviderSubscription, error) {
	body := createSubscriptionRequest{
		PlanID:         planID,
		TotalCount:     12,
		CustomerNotify: 1,
		Notes:          map[string]string{"billing_email": customerEmail},
	}

	var sub ProviderSubscription
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&sub).
		Post("/subscriptions")
	if err != nil {
		s.logger.Error("provider create subscription failed", zap.String("plan_id", planID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		s.logger.Error("provider create subscription rejected",
			zap.String("plan_id", planID),
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()))
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode())
	}
	return &sub, nil
}

func (s *razorpayService) CancelSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	var sub ProviderSubscription
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"cancel_at_cycle_end": 0}).
		SetResult(&sub).
		Post(fmt.Sprintf("/subscriptions/%s/cancel", subscriptionID))
	if err != nil {
		s.logger.Error("provider cancel subscription failed", zap.String("subscription_id", subscriptionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		s.logger.Error("provider cancel subscription rejected",
			zap.String("subscription_id", subscriptionID),
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()))
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode())
	}
	return &sub, nil
}
