package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription status values. Transitions are driven only by explicit local
// actions (create/cancel) or verified webhook events, never inferred.
const (
	SubscriptionStatusCreated   = "CREATED"
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusCancelled = "CANCELLED"
)

type Subscription struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	TenantID               uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	ProviderSubscriptionID *string    `json:"provider_subscription_id" db:"provider_subscription_id"`
	ProviderPlanID         *string    `json:"provider_plan_id" db:"provider_plan_id"`
	Status                 string     `json:"status" db:"status"`
	CurrentPeriodStart     *time.Time `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end" db:"current_period_end"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}
