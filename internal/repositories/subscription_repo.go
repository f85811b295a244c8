package repositories

import (
	"context"

	"dinehub/internal/models"

	"github.com/google/uuid"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)
	GetByProviderID(ctx context.Context, providerSubscriptionID string) (*models.Subscription, error)
	Update(ctx context.Context, subscription *models.Subscription) error
}

type subscriptionRepo struct {
	db Database
}

func NewSubscriptionRepo(db Database) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, tenant_id, provider_subscription_id, provider_plan_id, status, current_period_start, current_period_end, created_at, updated_at`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(&sub.ID, &sub.TenantID, &sub.ProviderSubscriptionID, &sub.ProviderPlanID, &sub.Status, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, tenant_id, provider_subscription_id, provider_plan_id, status, current_period_start, current_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, subscription.ID, subscription.TenantID, subscription.ProviderSubscriptionID, subscription.ProviderPlanID, subscription.Status, subscription.CurrentPeriodStart, subscription.CurrentPeriodEnd)
	return err
}

func (r *subscriptionRepo) GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE tenant_id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, tenantID))
}

// GetByProviderID resolves a webhook event's external subscription id to
// the local record. Lookup is global: webhook payloads carry no tenant.
func (r *subscriptionRepo) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE provider_subscription_id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, providerSubscriptionID))
}

func (r *subscriptionRepo) Update(ctx context.Context, subscription *models.Subscription) error {
	query := `
		UPDATE subscriptions
		SET provider_subscription_id = $1, provider_plan_id = $2, status = $3, current_period_start = $4, current_period_end = $5, updated_at = NOW()
		WHERE tenant_id = $6 AND id = $7
	`
	_, err := r.db.Exec(ctx, query, subscription.ProviderSubscriptionID, subscription.ProviderPlanID, subscription.Status, subscription.CurrentPeriodStart, subscription.CurrentPeriodEnd, subscription.TenantID, subscription.ID)
	return err
}
