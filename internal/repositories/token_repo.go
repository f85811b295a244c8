package repositories

import (
	"context"

	"dinehub/internal/models"

	"github.com/google/uuid"
)

type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error)
	RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error

	CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error
	GetPasswordResetTokenByHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	ConsumePasswordResetToken(ctx context.Context, id uuid.UUID) (bool, error)
	InvalidateUserResetTokens(ctx context.Context, userID uuid.UUID) error

	DeleteExpired(ctx context.Context) (int64, error)
}

type tokenRepo struct {
	db Database
}

func NewTokenRepo(db Database) TokenRepository {
	return &tokenRepo{db: db}
}

func (r *tokenRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
	`
	_, err := r.db.Exec(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt)
	return err
}

func (r *tokenRepo) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.Revoked, &token.CreatedAt)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// RevokeRefreshToken marks a token revoked. The conditional update makes
// rotation single-use under concurrent refresh attempts: exactly one
// caller sees true.
func (r *tokenRepo) RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1 AND revoked = FALSE`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *tokenRepo) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *tokenRepo) CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
	`
	_, err := r.db.Exec(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt)
	return err
}

func (r *tokenRepo) GetPasswordResetTokenByHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	token := &models.PasswordResetToken{}
	query := `
		SELECT id, user_id, token_hash, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.Used, &token.CreatedAt)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// ConsumePasswordResetToken atomically marks a token used. Concurrent
// resets with the same token produce exactly one true.
func (r *tokenRepo) ConsumePasswordResetToken(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE password_reset_tokens
		SET used = TRUE
		WHERE id = $1 AND used = FALSE AND expires_at > NOW()
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *tokenRepo) InvalidateUserResetTokens(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE password_reset_tokens SET used = TRUE WHERE user_id = $1 AND used = FALSE`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// DeleteExpired removes refresh and reset tokens that are past expiry and
// already unusable. Run from the background cleanup job.
func (r *tokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	deleted := tag.RowsAffected()

	tag, err = r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return deleted, err
	}
	return deleted + tag.RowsAffected(), nil
}
