package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dinehub/internal/caching"
	"dinehub/internal/models"
	"dinehub/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Provider webhook event names consumed by the reducer.
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCharged   = "subscription.charged"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventPaymentCaptured       = "payment.captured"
)

const eventDedupTTL = 24 * time.Hour

// WebhookEvent is the provider's event envelope. The raw body is verified
// before this is ever parsed.
type WebhookEvent struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Subscription struct {
			Entity ProviderSubscription `json:"entity"`
		} `json:"subscription"`
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Status   string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type transitionKey struct {
	status string
	event  string
}

// subscriptionTransitions is the explicit state machine for verified
// webhook events. Pairs absent from the table are rejected and logged,
// never silently applied.
var subscriptionTransitions = map[transitionKey]string{
	{models.SubscriptionStatusCreated, EventSubscriptionActivated}: models.SubscriptionStatusActive,
	{models.SubscriptionStatusActive, EventSubscriptionCharged}:    models.SubscriptionStatusActive,
	// charged before activated is treated as an implicit activation;
	// the reducer logs it since the provider normally orders these.
	{models.SubscriptionStatusCreated, EventSubscriptionCharged}:     models.SubscriptionStatusActive,
	{models.SubscriptionStatusCreated, EventSubscriptionCancelled}:   models.SubscriptionStatusCancelled,
	{models.SubscriptionStatusActive, EventSubscriptionCancelled}:    models.SubscriptionStatusCancelled,
	{models.SubscriptionStatusCancelled, EventSubscriptionCancelled}: models.SubscriptionStatusCancelled,
}

// WebhookReducer folds verified provider events into local subscription
// and invoice state. It is the sole authority for ACTIVE transitions.
type WebhookReducer interface {
	Process(ctx context.Context, event *WebhookEvent) error
}

type webhookReducer struct {
	db               repositories.TxStarter
	subscriptionRepo repositories.SubscriptionRepository
	cache            caching.CacheService
	logger           *zap.Logger
}

func NewWebhookReducer(
	db repositories.TxStarter,
	subscriptionRepo repositories.SubscriptionRepository,
	cache caching.CacheService,
	logger *zap.Logger,
) WebhookReducer {
	return &webhookReducer{
		db:               db,
		subscriptionRepo: subscriptionRepo,
		cache:            cache,
		logger:           logger,
	}
}

// Process reduces one event. Unknown subscription ids and out-of-table
// transitions are logged and dropped with success, since the provider is
// the source of truth and stale or foreign events are expected.
func (r *webhookReducer) Process(ctx context.Context, event *WebhookEvent) error {
	claimed := false
	if event.ID != "" {
		first, err := r.cache.MarkEventProcessed(ctx, event.ID, eventDedupTTL)
		if err != nil {
			// Redis being down must not drop billing events; fall through
			// and rely on the conditional updates for idempotency.
			r.logger.Warn("webhook dedup unavailable", zap.String("event_id", event.ID), zap.Error(err))
		} else if !first {
			r.logger.Info("duplicate webhook event skipped", zap.String("event_id", event.ID), zap.String("event", event.Event))
			return nil
		} else {
			claimed = true
		}
	}

	if err := r.reduce(ctx, event); err != nil {
		// The reduction never committed, so the provider's retry must
		// not be mistaken for a duplicate. Release the dedup claim; if
		// that also fails the event sits unprocessed until the TTL
		// lapses, which the error log makes visible.
		if claimed {
			if unmarkErr := r.cache.UnmarkEvent(ctx, event.ID); unmarkErr != nil {
				r.logger.Error("failed to release webhook dedup claim",
					zap.String("event_id", event.ID), zap.Error(unmarkErr))
			}
		}
		return err
	}
	return nil
}

func (r *webhookReducer) reduce(ctx context.Context, event *WebhookEvent) error {
	switch event.Event {
	case EventSubscriptionActivated, EventSubscriptionCharged, EventSubscriptionCancelled:
		return r.reduceSubscription(ctx, event)
	case EventPaymentCaptured:
		return r.reducePaymentCaptured(ctx, event)
	default:
		r.logger.Info("unhandled webhook event", zap.String("event", event.Event), zap.String("event_id", event.ID))
		return nil
	}
}

func (r *webhookReducer) reduceSubscription(ctx context.Context, event *WebhookEvent) error {
	entity := event.Payload.Subscription.Entity
	if entity.ID == "" {
		r.logger.Warn("webhook event missing subscription id", zap.String("event", event.Event))
		return nil
	}

	sub, err := r.subscriptionRepo.GetByProviderID(ctx, entity.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("webhook for unknown provider subscription ignored",
				zap.String("provider_subscription_id", entity.ID),
				zap.String("event", event.Event))
			return nil
		}
		return fmt.Errorf("failed to resolve subscription: %w", err)
	}

	next, ok := subscriptionTransitions[transitionKey{sub.Status, event.Event}]
	if !ok {
		r.logger.Warn("rejected impossible subscription transition",
			zap.String("tenant_id", sub.TenantID.String()),
			zap.String("current_status", sub.Status),
			zap.String("event", event.Event))
		return nil
	}

	if event.Event == EventSubscriptionCharged && sub.Status == models.SubscriptionStatusCreated {
		r.logger.Warn("charged event received before activation, treating as activation",
			zap.String("provider_subscription_id", entity.ID))
	}

	sub.Status = next
	sub.CurrentPeriodStart, sub.CurrentPeriodEnd = periodFromUnix(entity.CurrentStart, entity.CurrentEnd)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := repositories.NewSubscriptionRepo(tx).Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}

	if event.Event == EventSubscriptionCharged {
		payment := event.Payload.Payment.Entity
		invoice := &models.Invoice{
			ID:          uuid.New(),
			TenantID:    sub.TenantID,
			AmountMinor: payment.Amount,
			Currency:    payment.Currency,
			Status:      models.InvoiceStatusPending,
		}
		if payment.ID != "" {
			invoice.ProviderPaymentID = &payment.ID
		}
		if payment.Currency == "" {
			invoice.Currency = "INR"
		}
		if err := repositories.NewInvoiceRepo(tx).Create(ctx, invoice); err != nil {
			return fmt.Errorf("failed to record invoice: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit webhook reduction: %w", err)
	}

	r.logger.Info("webhook reduced",
		zap.String("event", event.Event),
		zap.String("tenant_id", sub.TenantID.String()),
		zap.String("status", sub.Status))
	return nil
}

func (r *webhookReducer) reducePaymentCaptured(ctx context.Context, event *WebhookEvent) error {
	payment := event.Payload.Payment.Entity
	if payment.ID == "" {
		r.logger.Warn("payment.captured event missing payment id")
		return nil
	}

	updated, err := repositories.NewInvoiceRepo(r.db).MarkPaidByProviderPaymentID(ctx, payment.ID)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if !updated {
		r.logger.Warn("capture event matched no pending invoice", zap.String("provider_payment_id", payment.ID))
	}
	return nil
}
