package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"dinehub/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceTestSuite struct {
	suite.Suite
	db        pgxmock.PgxPoolIface
	userRepo  *MockUserRepository
	tokenRepo *MockTokenRepository
	tokenSvc  TokenService
	svc       AuthService
	ctx       context.Context
}

func (suite *AuthServiceTestSuite) SetupTest() {
	db, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.db = db

	suite.userRepo = new(MockUserRepository)
	suite.tokenRepo = new(MockTokenRepository)

	tokenSvc, err := NewTokenService("test-signing-secret", 15*time.Minute, 30*24*time.Hour)
	assert.NoError(suite.T(), err)
	suite.tokenSvc = tokenSvc

	suite.svc = NewAuthService(db, suite.userRepo, suite.tokenRepo, tokenSvc, zap.NewNop())
	suite.ctx = context.Background()
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	suite.db.Close()
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (suite *AuthServiceTestSuite) registerInput() RegisterInput {
	return RegisterInput{
		RestaurantName: "The Golden Spoon",
		Email:          "owner@goldenspoon.example",
		Password:       "s3cret-pass",
		FirstName:      "Asha",
		LastName:       "Rao",
		Tier:           1,
		BillingCycle:   models.BillingCycleMonthly,
	}
}

func (suite *AuthServiceTestSuite) TestRegister_Success() {
	input := suite.registerInput()

	suite.userRepo.On("EmailExists", mock.Anything, input.Email).Return(false, nil)

	suite.db.ExpectQuery(`SELECT COUNT\(\*\) FROM tenants WHERE slug = \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	suite.db.ExpectBegin()
	suite.db.ExpectExec(`INSERT INTO tenants`).
		WithArgs(pgxmock.AnyArg(), input.RestaurantName, pgxmock.AnyArg(), 1, models.BillingCycleMonthly, models.TenantStatusActive).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.db.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), input.Email, pgxmock.AnyArg(), pgxmock.AnyArg(), input.FirstName, input.LastName, models.RoleManager, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.db.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), models.SubscriptionStatusCreated, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.db.ExpectCommit()

	suite.tokenRepo.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	resp, err := suite.svc.Register(suite.ctx, input)
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), resp.AccessToken)
	assert.NotEmpty(suite.T(), resp.RefreshToken)
	assert.Equal(suite.T(), models.RoleManager, resp.Role)
	assert.Regexp(suite.T(), regexp.MustCompile(`^the-golden-spoon-[a-z0-9]{4}$`), resp.TenantSlug)

	assert.NoError(suite.T(), suite.db.ExpectationsWereMet())
	suite.userRepo.AssertExpectations(suite.T())
	suite.tokenRepo.AssertExpectations(suite.T())
}

func (suite *AuthServiceTestSuite) TestRegister_DuplicateEmail_NoWrites() {
	input := suite.registerInput()
	suite.userRepo.On("EmailExists", mock.Anything, input.Email).Return(true, nil)

	_, err := suite.svc.Register(suite.ctx, input)
	assert.ErrorIs(suite.T(), err, ErrEmailTaken)

	// Nothing reached the database.
	assert.NoError(suite.T(), suite.db.ExpectationsWereMet())
	suite.tokenRepo.AssertNotCalled(suite.T(), "CreateRefreshToken", mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestRegister_ClampsTierAndCycle() {
	input := suite.registerInput()
	input.Tier = 99
	input.BillingCycle = "weekly"

	suite.userRepo.On("EmailExists", mock.Anything, input.Email).Return(false, nil)

	suite.db.ExpectQuery(`SELECT COUNT\(\*\) FROM tenants WHERE slug = \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	suite.db.ExpectBegin()
	suite.db.ExpectExec(`INSERT INTO tenants`).
		WithArgs(pgxmock.AnyArg(), input.RestaurantName, pgxmock.AnyArg(), 2, models.BillingCycleMonthly, models.TenantStatusActive).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.db.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), input.Email, pgxmock.AnyArg(), pgxmock.AnyArg(), input.FirstName, input.LastName, models.RoleManager, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.db.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), models.SubscriptionStatusCreated, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.db.ExpectCommit()

	suite.tokenRepo.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	_, err := suite.svc.Register(suite.ctx, input)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.db.ExpectationsWereMet())
}

func (suite *AuthServiceTestSuite) TestLogin_UnknownIdentifier() {
	suite.userRepo.On("GetByIdentifier", mock.Anything, "nobody@example.com").Return(nil, pgx.ErrNoRows)

	_, err := suite.svc.Login(suite.ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLogin_WrongPassword_SameError() {
	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	assert.NoError(suite.T(), err)

	user := &models.User{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Email:        "owner@goldenspoon.example",
		PasswordHash: string(hash),
		Role:         models.RoleManager,
	}
	suite.userRepo.On("GetByIdentifier", mock.Anything, user.Email).Return(user, nil)

	_, err = suite.svc.Login(suite.ctx, user.Email, "wrong-password")
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	// No tenant lookup and no token issuance on failure.
	assert.NoError(suite.T(), suite.db.ExpectationsWereMet())
	suite.tokenRepo.AssertNotCalled(suite.T(), "CreateRefreshToken", mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestLogin_Success() {
	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	assert.NoError(suite.T(), err)

	tenantID := uuid.New()
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        "owner@goldenspoon.example",
		PasswordHash: string(hash),
		Role:         models.RoleManager,
	}
	suite.userRepo.On("GetByIdentifier", mock.Anything, user.Email).Return(user, nil)

	now := time.Now()
	suite.db.ExpectQuery(`SELECT id, name, slug, tier, billing_cycle, status, created_at, updated_at\s+FROM tenants\s+WHERE id = \$1`).
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug", "tier", "billing_cycle", "status", "created_at", "updated_at"}).
			AddRow(tenantID, "The Golden Spoon", "the-golden-spoon-a1b2", 1, models.BillingCycleMonthly, models.TenantStatusActive, now, now))

	suite.tokenRepo.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	resp, err := suite.svc.Login(suite.ctx, user.Email, "right-password")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "the-golden-spoon-a1b2", resp.TenantSlug)
	assert.Equal(suite.T(), user.ID.String(), resp.UserID)
	assert.NoError(suite.T(), suite.db.ExpectationsWereMet())
}

func (suite *AuthServiceTestSuite) TestRefresh_RevokedTokenRejected() {
	raw := suite.tokenSvc.NewOpaqueToken()
	stored := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TokenHash: suite.tokenSvc.HashToken(raw),
		ExpiresAt: time.Now().Add(time.Hour),
		Revoked:   true,
	}
	suite.tokenRepo.On("GetRefreshTokenByHash", mock.Anything, stored.TokenHash).Return(stored, nil)

	_, err := suite.svc.Refresh(suite.ctx, raw)
	assert.ErrorIs(suite.T(), err, ErrInvalidRefreshToken)
}

func (suite *AuthServiceTestSuite) TestRefresh_ConcurrentReuseLosesRace() {
	raw := suite.tokenSvc.NewOpaqueToken()
	stored := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TokenHash: suite.tokenSvc.HashToken(raw),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	suite.tokenRepo.On("GetRefreshTokenByHash", mock.Anything, stored.TokenHash).Return(stored, nil)
	// Another request already consumed the token.
	suite.tokenRepo.On("RevokeRefreshToken", mock.Anything, stored.ID).Return(false, nil)

	_, err := suite.svc.Refresh(suite.ctx, raw)
	assert.ErrorIs(suite.T(), err, ErrInvalidRefreshToken)
	suite.userRepo.AssertNotCalled(suite.T(), "GetByUserID", mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestRefresh_UnknownTokenRejected() {
	raw := suite.tokenSvc.NewOpaqueToken()
	suite.tokenRepo.On("GetRefreshTokenByHash", mock.Anything, suite.tokenSvc.HashToken(raw)).Return(nil, pgx.ErrNoRows)

	_, err := suite.svc.Refresh(suite.ctx, raw)
	assert.ErrorIs(suite.T(), err, ErrInvalidRefreshToken)
}

func (suite *AuthServiceTestSuite) TestForgotPassword_UnknownEmailSilent() {
	suite.userRepo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, pgx.ErrNoRows)

	raw, err := suite.svc.ForgotPassword(suite.ctx, "nobody@example.com")
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), raw)
	suite.tokenRepo.AssertNotCalled(suite.T(), "CreatePasswordResetToken", mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestForgotPassword_IssuesHashedToken() {
	user := &models.User{ID: uuid.New(), Email: "owner@goldenspoon.example"}
	suite.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	var created *models.PasswordResetToken
	suite.tokenRepo.On("CreatePasswordResetToken", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*models.PasswordResetToken)
		}).
		Return(nil)

	raw, err := suite.svc.ForgotPassword(suite.ctx, user.Email)
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), raw)
	assert.Equal(suite.T(), suite.tokenSvc.HashToken(raw), created.TokenHash)
	assert.NotEqual(suite.T(), raw, created.TokenHash)
}

func (suite *AuthServiceTestSuite) TestResetPassword_UsedToken() {
	raw := suite.tokenSvc.NewOpaqueToken()
	token := &models.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TokenHash: suite.tokenSvc.HashToken(raw),
		ExpiresAt: time.Now().Add(time.Hour),
		Used:      true,
	}
	suite.tokenRepo.On("GetPasswordResetTokenByHash", mock.Anything, token.TokenHash).Return(token, nil)

	err := suite.svc.ResetPassword(suite.ctx, raw, "new-password")
	assert.ErrorIs(suite.T(), err, ErrResetTokenUsed)
}

func (suite *AuthServiceTestSuite) TestResetPassword_ExpiredToken() {
	raw := suite.tokenSvc.NewOpaqueToken()
	token := &models.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TokenHash: suite.tokenSvc.HashToken(raw),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	suite.tokenRepo.On("GetPasswordResetTokenByHash", mock.Anything, token.TokenHash).Return(token, nil)

	err := suite.svc.ResetPassword(suite.ctx, raw, "new-password")
	assert.ErrorIs(suite.T(), err, ErrResetTokenExpired)
}

func (suite *AuthServiceTestSuite) TestResetPassword_UnknownToken() {
	raw := suite.tokenSvc.NewOpaqueToken()
	suite.tokenRepo.On("GetPasswordResetTokenByHash", mock.Anything, suite.tokenSvc.HashToken(raw)).Return(nil, pgx.ErrNoRows)

	err := suite.svc.ResetPassword(suite.ctx, raw, "new-password")
	assert.ErrorIs(suite.T(), err, ErrResetTokenNotFound)
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		name     string
		expected string
	}{
		{"The Golden Spoon", "the-golden-spoon"},
		{"Café  Déjà!!", "caf-d-j"},
		{"  --Tandoor & Tikka--  ", "tandoor-tikka"},
		{"UPPER case", "upper-case"},
		{"already-slugged", "already-slugged"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, Slugify(tc.name), "input: %q", tc.name)
	}
}
