package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"dinehub/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "dinehub-auth"
	TokenAudience = "dinehub-api"

	accessTokenType = "access"
)

// AccessClaims are the signed facts embedded in an access token. Tenant
// and role travel with the token so authorization needs no database
// round-trip per request.
type AccessClaims struct {
	TenantID   string `json:"tenant_id"`
	Role       string `json:"role"`
	TenantSlug string `json:"tenant_slug"`
	TokenType  string `json:"typ"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt library after signature and time checks.
// It rejects tokens minted for another purpose (e.g. refresh) as well as
// tokens from a different issuer or audience.
func (c *AccessClaims) Validate() error {
	if c.TokenType != accessTokenType {
		return fmt.Errorf("token type %q is not an access token", c.TokenType)
	}
	if c.Issuer != TokenIssuer {
		return fmt.Errorf("unexpected issuer %q", c.Issuer)
	}
	for _, aud := range c.Audience {
		if aud == TokenAudience {
			return nil
		}
	}
	return fmt.Errorf("audience does not include %q", TokenAudience)
}

// TokenService issues and verifies signed access tokens and mints opaque
// refresh tokens for database-backed validation.
type TokenService interface {
	IssueAccessToken(userID, tenantID uuid.UUID, role, tenantSlug string) (string, *AccessClaims, error)
	ValidateAccessToken(token string) (*AccessClaims, bool)
	NewOpaqueToken() string
	HashToken(raw string) string
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

type tokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService fails when the signing secret is unset or still the
// placeholder value. Callers treat that as fatal at process start.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (TokenService, error) {
	if secret == "" || secret == config.PlaceholderSecret {
		return nil, fmt.Errorf("token signing secret is unset or a placeholder")
	}
	return &tokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (s *tokenService) IssueAccessToken(userID, tenantID uuid.UUID, role, tenantSlug string) (string, *AccessClaims, error) {
	now := time.Now()
	claims := &AccessClaims{
		TenantID:   tenantID.String(),
		Role:       role,
		TenantSlug: tenantSlug,
		TokenType:  accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, claims, nil
}

// ValidateAccessToken returns the claims and true for a well-signed,
// unexpired access token. It never returns an error to the caller; any
// structural or cryptographic failure is simply false.
func (s *tokenService) ValidateAccessToken(token string) (*AccessClaims, bool) {
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok {
		return nil, false
	}
	return claims, true
}

// NewOpaqueToken returns a cryptographically random token with no
// embedded structure, valid only by database lookup.
func (s *tokenService) NewOpaqueToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// A failed entropy read must never yield a predictable token.
		panic(fmt.Sprintf("entropy source unavailable: %v", err))
	}
	return base64.URLEncoding.EncodeToString(bytes)
}

// HashToken produces the stable digest under which opaque tokens are
// persisted. Raw token values never reach the database.
func (s *tokenService) HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *tokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *tokenService) RefreshTTL() time.Duration { return s.refreshTTL }
