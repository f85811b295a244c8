package repositories

import (
	"context"

	"dinehub/internal/models"

	"github.com/google/uuid"
)

type PaymentMethodRepository interface {
	Create(ctx context.Context, method *models.PaymentMethod) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.PaymentMethod, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.PaymentMethod, error)
	Count(ctx context.Context, tenantID uuid.UUID) (int, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	SetDefault(ctx context.Context, tenantID, id uuid.UUID) error
}

type paymentMethodRepo struct {
	db Database
}

func NewPaymentMethodRepo(db Database) PaymentMethodRepository {
	return &paymentMethodRepo{db: db}
}

const paymentMethodColumns = `id, tenant_id, method_type, last_four, label, provider_token_id, is_default, created_at`

func (r *paymentMethodRepo) Create(ctx context.Context, method *models.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (id, tenant_id, method_type, last_four, label, provider_token_id, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.db.Exec(ctx, query, method.ID, method.TenantID, method.MethodType, method.LastFour, method.Label, method.ProviderTokenID, method.IsDefault)
	return err
}

func (r *paymentMethodRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.PaymentMethod, error) {
	method := &models.PaymentMethod{}
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE tenant_id = $1 AND id = $2`
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&method.ID, &method.TenantID, &method.MethodType, &method.LastFour, &method.Label, &method.ProviderTokenID, &method.IsDefault, &method.CreatedAt)
	if err != nil {
		return nil, err
	}
	return method, nil
}

// List returns methods in creation order. Promotion after deleting the
// default picks the first entry of this listing.
func (r *paymentMethodRepo) List(ctx context.Context, tenantID uuid.UUID) ([]*models.PaymentMethod, error) {
	query := `
		SELECT ` + paymentMethodColumns + `
		FROM payment_methods
		WHERE tenant_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []*models.PaymentMethod
	for rows.Next() {
		method := &models.PaymentMethod{}
		if err := rows.Scan(&method.ID, &method.TenantID, &method.MethodType, &method.LastFour, &method.Label, &method.ProviderTokenID, &method.IsDefault, &method.CreatedAt); err != nil {
			return nil, err
		}
		methods = append(methods, method)
	}
	return methods, rows.Err()
}

func (r *paymentMethodRepo) Count(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM payment_methods WHERE tenant_id = $1`
	if err := r.db.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *paymentMethodRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `DELETE FROM payment_methods WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.Exec(ctx, query, tenantID, id)
	return err
}

// SetDefault clears any existing default before setting the new one, so
// the at-most-one-default invariant holds within the enclosing transaction.
func (r *paymentMethodRepo) SetDefault(ctx context.Context, tenantID, id uuid.UUID) error {
	clear := `UPDATE payment_methods SET is_default = FALSE WHERE tenant_id = $1 AND is_default = TRUE`
	if _, err := r.db.Exec(ctx, clear, tenantID); err != nil {
		return err
	}
	set := `UPDATE payment_methods SET is_default = TRUE WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.Exec(ctx, set, tenantID, id)
	return err
}
