package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"dinehub/internal/models"
	"dinehub/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	slugSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	slugSuffixLength   = 4
	slugMaxRetries     = 10

	resetTokenTTL = time.Hour

	minTier = 1
	maxTier = 2
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// RegisterInput is the validated payload for tenant registration.
type RegisterInput struct {
	RestaurantName string
	Email          string
	Phone          *string
	Password       string
	FirstName      string
	LastName       string
	Tier           int
	BillingCycle   string
}

// AuthService implements registration, login, token refresh and the
// password reset flow.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.TokenResponse, error)
	Login(ctx context.Context, identifier, password string) (*models.TokenResponse, error)
	Refresh(ctx context.Context, rawRefreshToken string) (*models.TokenResponse, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
}

type authService struct {
	db        repositories.TxStarter
	userRepo  repositories.UserRepository
	tokenRepo repositories.TokenRepository
	tokenSvc  TokenService
	logger    *zap.Logger
}

func NewAuthService(
	db repositories.TxStarter,
	userRepo repositories.UserRepository,
	tokenRepo repositories.TokenRepository,
	tokenSvc TokenService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		db:        db,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		tokenSvc:  tokenSvc,
		logger:    logger,
	}
}

// Register creates a tenant, its owning MANAGER user and a placeholder
// subscription in one transaction. A duplicate-email race lost to the
// unique constraint maps to ErrEmailTaken, never a server fault.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.TokenResponse, error) {
	taken, err := s.userRepo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	slug, err := s.allocateSlug(ctx, input.RestaurantName)
	if err != nil {
		return nil, err
	}

	tier := input.Tier
	if tier < minTier {
		tier = minTier
	}
	if tier > maxTier {
		tier = maxTier
	}
	billingCycle := input.BillingCycle
	if billingCycle != models.BillingCycleYearly {
		billingCycle = models.BillingCycleMonthly
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tenant := &models.Tenant{
		ID:           uuid.New(),
		Name:         input.RestaurantName,
		Slug:         slug,
		Tier:         tier,
		BillingCycle: billingCycle,
		Status:       models.TenantStatusActive,
	}
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: string(passwordHash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         models.RoleManager,
	}
	subscription := &models.Subscription{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		Status:   models.SubscriptionStatusCreated,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := repositories.NewTenantRepo(tx).Create(ctx, tenant); err != nil {
		return nil, mapUniqueViolation(err)
	}
	if err := repositories.NewUserRepo(tx).Create(ctx, user); err != nil {
		return nil, mapUniqueViolation(err)
	}
	if err := repositories.NewSubscriptionRepo(tx).Create(ctx, subscription); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapUniqueViolation(err)
	}

	s.logger.Info("tenant registered",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug),
		zap.Int("tier", tenant.Tier))

	return s.issueTokens(ctx, user, tenant)
}

// Login authenticates by email-or-phone identifier. Unknown identifier
// and wrong password produce the same error to prevent enumeration.
func (s *authService) Login(ctx context.Context, identifier, password string) (*models.TokenResponse, error) {
	user, err := s.userRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tenant, err := repositories.NewTenantRepo(s.db).GetByID(ctx, user.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant: %w", err)
	}

	return s.issueTokens(ctx, user, tenant)
}

// Refresh rotates an opaque refresh token: the presented token is revoked
// and a fresh pair issued. Concurrent reuse loses the conditional revoke
// and is rejected.
func (s *authService) Refresh(ctx context.Context, rawRefreshToken string) (*models.TokenResponse, error) {
	stored, err := s.tokenRepo.GetRefreshTokenByHash(ctx, s.tokenSvc.HashToken(rawRefreshToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if stored.Revoked || time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidRefreshToken
	}

	revoked, err := s.tokenRepo.RevokeRefreshToken(ctx, stored.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if !revoked {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByUserID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	tenant, err := repositories.NewTenantRepo(s.db).GetByID(ctx, user.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant: %w", err)
	}

	return s.issueTokens(ctx, user, tenant)
}

// ForgotPassword issues a reset token when the email matches a user. The
// raw token is handed to the delivery layer; callers always respond with
// the same generic message whether or not the email exists.
func (s *authService) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	raw := s.tokenSvc.NewOpaqueToken()
	token := &models.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: s.tokenSvc.HashToken(raw),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.tokenRepo.CreatePasswordResetToken(ctx, token); err != nil {
		return "", fmt.Errorf("failed to create reset token: %w", err)
	}

	s.logger.Info("password reset token issued", zap.String("user_id", user.ID.String()))
	return raw, nil
}

// ResetPassword consumes a reset token exactly once. On success every
// other outstanding reset token and refresh token for the user is
// invalidated.
func (s *authService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	token, err := s.tokenRepo.GetPasswordResetTokenByHash(ctx, s.tokenSvc.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if token.Used {
		return ErrResetTokenUsed
	}
	if time.Now().After(token.ExpiresAt) {
		return ErrResetTokenExpired
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txTokens := repositories.NewTokenRepo(tx)
	consumed, err := txTokens.ConsumePasswordResetToken(ctx, token.ID)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if !consumed {
		// A concurrent reset won the conditional update.
		return ErrResetTokenUsed
	}

	if err := repositories.NewUserRepo(tx).UpdatePasswordHash(ctx, token.UserID, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := txTokens.InvalidateUserResetTokens(ctx, token.UserID); err != nil {
		return fmt.Errorf("failed to invalidate reset tokens: %w", err)
	}
	if err := txTokens.RevokeUserRefreshTokens(ctx, token.UserID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit password reset: %w", err)
	}

	s.logger.Info("password reset completed", zap.String("user_id", token.UserID.String()))
	return nil
}

// issueTokens mints an access token and a persisted refresh token for an
// authenticated user.
func (s *authService) issueTokens(ctx context.Context, user *models.User, tenant *models.Tenant) (*models.TokenResponse, error) {
	accessToken, claims, err := s.tokenSvc.IssueAccessToken(user.ID, tenant.ID, user.Role, tenant.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	rawRefresh := s.tokenSvc.NewOpaqueToken()
	refresh := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: s.tokenSvc.HashToken(rawRefresh),
		ExpiresAt: time.Now().Add(s.tokenSvc.RefreshTTL()),
	}
	if err := s.tokenRepo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenSvc.AccessTTL().Seconds()),
		RefreshToken: rawRefresh,
		UserID:       user.ID.String(),
		TenantID:     tenant.ID.String(),
		TenantSlug:   tenant.Slug,
		Role:         user.Role,
		IssuedAt:     claims.IssuedAt.Time,
	}, nil
}

// allocateSlug derives a URL-safe slug from the business name and appends
// a random suffix, retrying the suffix a bounded number of times before
// falling back to a longer one.
func (s *authService) allocateSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	tenants := repositories.NewTenantRepo(s.db)

	for i := 0; i < slugMaxRetries; i++ {
		candidate := base + "-" + randomSuffix(slugSuffixLength)
		exists, err := tenants.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}

	// Extremely unlikely with a 36^4 space; widen the suffix once rather
	// than looping forever.
	candidate := base + "-" + randomSuffix(2*slugSuffixLength)
	exists, err := tenants.SlugExists(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		return "", ErrSlugExhausted
	}
	return candidate, nil
}

// Slugify lowercases the name and collapses non-alphanumeric runs to
// single hyphens.
func Slugify(name string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

func randomSuffix(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Sprintf("entropy source unavailable: %v", err))
	}
	out := make([]byte, length)
	for i, b := range bytes {
		out[i] = slugSuffixAlphabet[int(b)%len(slugSuffixAlphabet)]
	}
	return string(out)
}

// mapUniqueViolation converts a Postgres unique-constraint failure into
// the matching conflict error; anything else passes through wrapped.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "slug") {
			return ErrSlugExhausted
		}
		return ErrEmailTaken
	}
	return fmt.Errorf("registration failed: %w", err)
}
