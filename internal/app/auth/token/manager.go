package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	customErrors "github.com/welliohq/wellio-backend/internal/domain/auth/errors"
	domain "github.com/welliohq/wellio-backend/internal/domain/auth/token"
	"github.com/welliohq/wellio-backend/internal/infra/config"
)

// ManagerImpl issues and verifies HS256-signed tokens. The algorithm is fixed
// server-side: verification passes an explicit allow-list to the parser, so a
// token's own header can never downgrade to "none" or switch to an asymmetric
// scheme.
type ManagerImpl struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	issuer     string
	audience   string
}

func NewManager(cfg *config.Config) (*ManagerImpl, error) {
	if cfg.JWTSecret == "" {
		return nil, customErrors.NewInvalidArgument("empty signing secret")
	}
	return &ManagerImpl{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		resetTTL:   cfg.ResetTokenTTL,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
	}, nil
}

func (m *ManagerImpl) IssueAccess(userID uuid.UUID, email, role string) (string, time.Time, error) {
	if userID == uuid.Nil || email == "" || role == "" {
		return "", time.Time{}, customErrors.NewInvalidArgument("access token requires id, email and role")
	}
	now := time.Now()

	claims := domain.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			ID:        uuid.NewString(),
		},
		Email: email,
		Role:  role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign access token")
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (m *ManagerImpl) IssueRefresh(userID uuid.UUID) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, customErrors.NewInvalidArgument("refresh token requires id")
	}
	now := time.Now()

	claims := domain.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign refresh token")
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (m *ManagerImpl) IssueReset(userID uuid.UUID) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, customErrors.NewInvalidArgument("reset token requires id")
	}
	now := time.Now()

	claims := domain.ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.resetTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign reset token")
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (m *ManagerImpl) VerifyAccess(raw string) (domain.AccessClaims, error) {
	var claims domain.AccessClaims
	if err := m.verify(raw, &claims, true); err != nil {
		return domain.AccessClaims{}, err
	}
	return claims, nil
}

func (m *ManagerImpl) VerifyRefresh(raw string) (domain.RefreshClaims, error) {
	var claims domain.RefreshClaims
	if err := m.verify(raw, &claims, false); err != nil {
		return domain.RefreshClaims{}, err
	}
	return claims, nil
}

func (m *ManagerImpl) VerifyReset(raw string) (domain.ResetClaims, error) {
	var claims domain.ResetClaims
	if err := m.verify(raw, &claims, false); err != nil {
		return domain.ResetClaims{}, err
	}
	return claims, nil
}

func (m *ManagerImpl) verify(raw string, claims jwt.Claims, checkAudience bool) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if checkAudience && m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)

	switch {
	case err == nil && token.Valid:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return customErrors.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return customErrors.ErrTokenMalformed
	default:
		// signature, issuer, audience or algorithm mismatch
		return customErrors.ErrInvalidSignature
	}
}
