package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dinehub/internal/config"
	"dinehub/internal/models"
	"dinehub/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PaymentMethodInput is the payload for adding a payment method.
type PaymentMethodInput struct {
	MethodType      string
	LastFour        string
	Label           *string
	ProviderTokenID *string
}

// BillingService orchestrates subscription lifecycle against the payment
// provider and owns payment-method bookkeeping. Local state is optimistic
// between an action and its webhook confirmation; the webhook reducer is
// the sole source of truth for ACTIVE transitions.
type BillingService interface {
	GetSubscription(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)
	ChangePlan(ctx context.Context, tenantID uuid.UUID, tier int, billingCycle string) (*models.Subscription, error)
	Cancel(ctx context.Context, tenantID uuid.UUID) error
	ListInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error)

	AddPaymentMethod(ctx context.Context, tenantID uuid.UUID, input PaymentMethodInput) (*models.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, tenantID uuid.UUID) ([]*models.PaymentMethod, error)
	RemovePaymentMethod(ctx context.Context, tenantID, methodID uuid.UUID) error
}

type billingService struct {
	db               repositories.TxStarter
	subscriptionRepo repositories.SubscriptionRepository
	tenantRepo       repositories.TenantRepository
	userRepo         repositories.UserRepository
	invoiceRepo      repositories.InvoiceRepository
	methodRepo       repositories.PaymentMethodRepository
	razorpaySvc      RazorpayService
	plans            *config.PlanCatalog
	logger           *zap.Logger
}

func NewBillingService(
	db repositories.TxStarter,
	subscriptionRepo repositories.SubscriptionRepository,
	tenantRepo repositories.TenantRepository,
	userRepo repositories.UserRepository,
	invoiceRepo repositories.InvoiceRepository,
	methodRepo repositories.PaymentMethodRepository,
	razorpaySvc RazorpayService,
	plans *config.PlanCatalog,
	logger *zap.Logger,
) BillingService {
	return &billingService{
		db:               db,
		subscriptionRepo: subscriptionRepo,
		tenantRepo:       tenantRepo,
		userRepo:         userRepo,
		invoiceRepo:      invoiceRepo,
		methodRepo:       methodRepo,
		razorpaySvc:      razorpaySvc,
		plans:            plans,
		logger:           logger,
	}
}

func (s *billingService) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByTenantID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

// ChangePlan cancels any existing provider subscription, creates a new one
// under the resolved plan and updates local state optimistically. A
// provider failure after the old subscription is cancelled but before the
// new one exists is surfaced to the caller, not rolled back; reconciliation
// is manual.
func (s *billingService) ChangePlan(ctx context.Context, tenantID uuid.UUID, tier int, billingCycle string) (*models.Subscription, error) {
	plan, ok := s.plans.Resolve(tier, billingCycle)
	if !ok {
		return nil, ErrUnknownPlan
	}

	sub, err := s.GetSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if sub.ProviderSubscriptionID != nil && sub.Status != models.SubscriptionStatusCancelled {
		if _, err := s.razorpaySvc.CancelSubscription(ctx, *sub.ProviderSubscriptionID); err != nil {
			return nil, err
		}
	}

	owner, err := s.userRepo.GetTenantOwner(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve billing contact: %w", err)
	}

	created, err := s.razorpaySvc.CreateSubscription(ctx, plan.ProviderPlanID, owner.Email)
	if err != nil {
		return nil, err
	}

	sub.ProviderSubscriptionID = &created.ID
	sub.ProviderPlanID = &plan.ProviderPlanID
	sub.Status = models.SubscriptionStatusCreated
	sub.CurrentPeriodStart = nil
	sub.CurrentPeriodEnd = nil

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := repositories.NewSubscriptionRepo(tx).Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist subscription: %w", err)
	}
	if err := repositories.NewTenantRepo(tx).UpdatePlan(ctx, tenantID, tier, billingCycle); err != nil {
		return nil, fmt.Errorf("failed to update tenant plan: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit plan change: %w", err)
	}

	s.logger.Info("plan changed",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("tier", tier),
		zap.String("billing_cycle", billingCycle),
		zap.String("provider_subscription_id", created.ID))

	return sub, nil
}

// Cancel marks the local subscription and tenant CANCELLED, then cancels
// upstream best-effort: a provider failure is logged, not returned, since
// local intent is already recorded.
func (s *billingService) Cancel(ctx context.Context, tenantID uuid.UUID) error {
	sub, err := s.GetSubscription(ctx, tenantID)
	if err != nil {
		return err
	}

	sub.Status = models.SubscriptionStatusCancelled

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := repositories.NewSubscriptionRepo(tx).Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist cancellation: %w", err)
	}
	if err := repositories.NewTenantRepo(tx).UpdateStatus(ctx, tenantID, models.TenantStatusCancelled); err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	if sub.ProviderSubscriptionID != nil {
		if _, err := s.razorpaySvc.CancelSubscription(ctx, *sub.ProviderSubscriptionID); err != nil {
			s.logger.Warn("upstream cancel failed after local cancellation",
				zap.String("tenant_id", tenantID.String()),
				zap.String("provider_subscription_id", *sub.ProviderSubscriptionID),
				zap.Error(err))
		}
	}

	s.logger.Info("subscription cancelled", zap.String("tenant_id", tenantID.String()))
	return nil
}

func (s *billingService) ListInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.invoiceRepo.List(ctx, tenantID, limit, offset)
}

// AddPaymentMethod makes the first method for a tenant the default.
// The tenant row is locked for the transaction so concurrent adds
// cannot both observe an empty table and commit two defaults.
func (s *billingService) AddPaymentMethod(ctx context.Context, tenantID uuid.UUID, input PaymentMethodInput) (*models.PaymentMethod, error) {
	method := &models.PaymentMethod{
		ID:              uuid.New(),
		TenantID:        tenantID,
		MethodType:      input.MethodType,
		LastFour:        input.LastFour,
		Label:           input.Label,
		ProviderTokenID: input.ProviderTokenID,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := repositories.NewTenantRepo(tx).LockForUpdate(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("failed to lock tenant: %w", err)
	}

	txMethods := repositories.NewPaymentMethodRepo(tx)
	count, err := txMethods.Count(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count payment methods: %w", err)
	}
	method.IsDefault = count == 0

	if err := txMethods.Create(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to create payment method: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment method: %w", err)
	}
	return method, nil
}

func (s *billingService) ListPaymentMethods(ctx context.Context, tenantID uuid.UUID) ([]*models.PaymentMethod, error) {
	return s.methodRepo.List(ctx, tenantID)
}

// RemovePaymentMethod deletes a method; when the default is removed and
// others remain, the first in listing order is promoted. Promotion takes
// the same tenant lock as AddPaymentMethod.
func (s *billingService) RemovePaymentMethod(ctx context.Context, tenantID, methodID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := repositories.NewTenantRepo(tx).LockForUpdate(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to lock tenant: %w", err)
	}

	txMethods := repositories.NewPaymentMethodRepo(tx)
	method, err := txMethods.GetByID(ctx, tenantID, methodID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load payment method: %w", err)
	}

	if err := txMethods.Delete(ctx, tenantID, methodID); err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}

	if method.IsDefault {
		remaining, err := txMethods.List(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to list payment methods: %w", err)
		}
		if len(remaining) > 0 {
			if err := txMethods.SetDefault(ctx, tenantID, remaining[0].ID); err != nil {
				return fmt.Errorf("failed to promote default payment method: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

// periodFromUnix converts provider epoch seconds into period bounds,
// tolerating the zero values the provider sends before first charge.
func periodFromUnix(start, end int64) (*time.Time, *time.Time) {
	var s, e *time.Time
	if start > 0 {
		t := time.Unix(start, 0).UTC()
		s = &t
	}
	if end > 0 {
		t := time.Unix(end, 0).UTC()
		e = &t
	}
	return s, e
}
