package repositories

import (
	"context"

	"dinehub/internal/models"

	"github.com/google/uuid"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
	MarkPaidByProviderPaymentID(ctx context.Context, providerPaymentID string) (bool, error)
}

type invoiceRepo struct {
	db Database
}

func NewInvoiceRepo(db Database) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, tenant_id, amount_minor, currency, status, provider_payment_id, provider_invoice_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.db.Exec(ctx, query, invoice.ID, invoice.TenantID, invoice.AmountMinor, invoice.Currency, invoice.Status, invoice.ProviderPaymentID, invoice.ProviderInvoiceID)
	return err
}

func (r *invoiceRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT id, tenant_id, amount_minor, currency, status, provider_payment_id, provider_invoice_id, created_at
		FROM invoices
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice := &models.Invoice{}
		if err := rows.Scan(&invoice.ID, &invoice.TenantID, &invoice.AmountMinor, &invoice.Currency, &invoice.Status, &invoice.ProviderPaymentID, &invoice.ProviderInvoiceID, &invoice.CreatedAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

// MarkPaidByProviderPaymentID flips a PENDING invoice to PAID when a
// capture event confirms it. Returns false when no pending invoice matched.
func (r *invoiceRepo) MarkPaidByProviderPaymentID(ctx context.Context, providerPaymentID string) (bool, error) {
	query := `
		UPDATE invoices
		SET status = $1
		WHERE provider_payment_id = $2 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, models.InvoiceStatusPaid, providerPaymentID, models.InvoiceStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
