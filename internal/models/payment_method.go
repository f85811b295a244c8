package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is tenant-owned metadata about a payment instrument. At
// most one method per tenant has IsDefault set.
type PaymentMethod struct {
	ID              uuid.UUID `json:"id" db:"id"`
	TenantID        uuid.UUID `json:"tenant_id" db:"tenant_id"`
	MethodType      string    `json:"method_type" db:"method_type"`
	LastFour        string    `json:"last_four" db:"last_four"`
	Label           *string   `json:"label" db:"label"`
	ProviderTokenID *string   `json:"provider_token_id" db:"provider_token_id"`
	IsDefault       bool      `json:"is_default" db:"is_default"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
