package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TenantStatusActive    = "ACTIVE"
	TenantStatusCancelled = "CANCELLED"
)

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)

// Tenant is a registered restaurant business, the unit of billing and
// data isolation. Slug is immutable once assigned.
type Tenant struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Slug         string    `json:"slug" db:"slug"`
	Tier         int       `json:"tier" db:"tier"`
	BillingCycle string    `json:"billing_cycle" db:"billing_cycle"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
