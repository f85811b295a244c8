package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvoiceStatusPending = "PENDING"
	InvoiceStatusPaid    = "PAID"
)

// Invoice is an append-mostly record of a billing charge. AmountMinor is
// in minor currency units (paise for INR).
type Invoice struct {
	ID                uuid.UUID `json:"id" db:"id"`
	TenantID          uuid.UUID `json:"tenant_id" db:"tenant_id"`
	AmountMinor       int64     `json:"amount_minor" db:"amount_minor"`
	Currency          string    `json:"currency" db:"currency"`
	Status            string    `json:"status" db:"status"`
	ProviderPaymentID *string   `json:"provider_payment_id" db:"provider_payment_id"`
	ProviderInvoiceID *string   `json:"provider_invoice_id" db:"provider_invoice_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
