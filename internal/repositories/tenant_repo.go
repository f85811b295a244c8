package repositories

import (
	"context"

	"dinehub/internal/models"

	"github.com/google/uuid"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	UpdatePlan(ctx context.Context, id uuid.UUID, tier int, billingCycle string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type tenantRepo struct {
	db Database
}

func NewTenantRepo(db Database) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, slug, tier, billing_cycle, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, tenant.ID, tenant.Name, tenant.Slug, tenant.Tier, tenant.BillingCycle, tenant.Status)
	return err
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT id, name, slug, tier, billing_cycle, status, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.Tier, &tenant.BillingCycle, &tenant.Status, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT id, name, slug, tier, billing_cycle, status, created_at, updated_at
		FROM tenants
		WHERE slug = $1
	`
	err := r.db.QueryRow(ctx, query, slug).Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.Tier, &tenant.BillingCycle, &tenant.Status, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// LockForUpdate takes a row lock on the tenant that is held until the
// enclosing transaction ends. Writers that must agree on tenant-scoped
// state (such as the single default payment method) serialize on it.
func (r *tenantRepo) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	query := `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`
	return r.db.QueryRow(ctx, query, id).Scan(&locked)
}

func (r *tenantRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM tenants WHERE slug = $1`
	if err := r.db.QueryRow(ctx, query, slug).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *tenantRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	query := `UPDATE tenants SET name = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, name, id)
	return err
}

func (r *tenantRepo) UpdatePlan(ctx context.Context, id uuid.UUID, tier int, billingCycle string) error {
	query := `UPDATE tenants SET tier = $1, billing_cycle = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.Exec(ctx, query, tier, billingCycle, id)
	return err
}

func (r *tenantRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE tenants SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, status, id)
	return err
}
