package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	apptoken "github.com/welliohq/wellio-backend/internal/app/auth/token"
	authErrors "github.com/welliohq/wellio-backend/internal/domain/auth/errors"
	"github.com/welliohq/wellio-backend/internal/infra/config"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "unit-test-secret",
		Issuer:          "wellio-auth",
		Audience:        "wellio-api",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		ResetTokenTTL:   time.Minute,
	}
}

func newManager(t *testing.T, cfg *config.Config) *apptoken.ManagerImpl {
	t.Helper()
	m, err := apptoken.NewManager(cfg)
	require.NoError(t, err)
	return m
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := newManager(t, testConfig())
	uid := uuid.New()

	raw, exp, err := m.IssueAccess(uid, "ann@example.com", "coach")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := m.VerifyAccess(raw)
	require.NoError(t, err)
	require.Equal(t, uid.String(), claims.Subject)
	require.Equal(t, "ann@example.com", claims.Email)
	require.Equal(t, "coach", claims.Role)
	require.Equal(t, "wellio-auth", claims.Issuer)
	require.Contains(t, claims.Audience, "wellio-api")
}

func TestAccessToken_EmptyInputs(t *testing.T) {
	m := newManager(t, testConfig())

	_, _, err := m.IssueAccess(uuid.Nil, "a@b.c", "coach")
	require.True(t, authErrors.IsInvalidArgument(err))

	_, _, err = m.IssueAccess(uuid.New(), "", "coach")
	require.True(t, authErrors.IsInvalidArgument(err))

	_, _, err = m.IssueAccess(uuid.New(), "a@b.c", "")
	require.True(t, authErrors.IsInvalidArgument(err))
}

func TestVerify_Expired(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute // already expired at issuance
	m := newManager(t, cfg)

	raw, _, err := m.IssueAccess(uuid.New(), "a@b.c", "client")
	require.NoError(t, err)

	_, err = m.VerifyAccess(raw)
	require.ErrorIs(t, err, authErrors.ErrTokenExpired)
}

func TestVerify_Malformed(t *testing.T) {
	m := newManager(t, testConfig())

	_, err := m.VerifyAccess("not-a-jwt")
	require.ErrorIs(t, err, authErrors.ErrTokenMalformed)
}

func TestVerify_WrongSecret(t *testing.T) {
	m := newManager(t, testConfig())

	other := testConfig()
	other.JWTSecret = "different-secret"
	raw, _, err := newManager(t, other).IssueAccess(uuid.New(), "a@b.c", "coach")
	require.NoError(t, err)

	_, err = m.VerifyAccess(raw)
	require.ErrorIs(t, err, authErrors.ErrInvalidSignature)
}

func TestVerify_AlgorithmAllowList(t *testing.T) {
	cfg := testConfig()
	m := newManager(t, cfg)

	// "none" must never be accepted even with a matching payload
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    cfg.Issuer,
		Audience:  jwt.ClaimStrings{cfg.Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.VerifyAccess(unsigned)
	require.True(t, authErrors.IsInvalidToken(err))

	// a different HMAC variant is rejected too
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).
		SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	_, err = m.VerifyAccess(hs512)
	require.True(t, authErrors.IsInvalidToken(err))
}

func TestVerify_IssuerAndAudience(t *testing.T) {
	m := newManager(t, testConfig())

	foreign := testConfig()
	foreign.Issuer = "someone-else"
	raw, _, err := newManager(t, foreign).IssueAccess(uuid.New(), "a@b.c", "coach")
	require.NoError(t, err)

	_, err = m.VerifyAccess(raw)
	require.ErrorIs(t, err, authErrors.ErrInvalidSignature)
}

func TestRefreshToken_OmitsAudience(t *testing.T) {
	m := newManager(t, testConfig())
	uid := uuid.New()

	raw, _, err := m.IssueRefresh(uid)
	require.NoError(t, err)

	claims, err := m.VerifyRefresh(raw)
	require.NoError(t, err)
	require.Equal(t, uid.String(), claims.Subject)
	require.Empty(t, claims.Audience)
}

func TestRefreshToken_NotValidAsAccess(t *testing.T) {
	m := newManager(t, testConfig())

	raw, _, err := m.IssueRefresh(uuid.New())
	require.NoError(t, err)

	// refresh tokens carry no audience, so the access check rejects them
	_, err = m.VerifyAccess(raw)
	require.True(t, authErrors.IsInvalidToken(err))
}

func TestResetToken_RoundTrip(t *testing.T) {
	m := newManager(t, testConfig())
	uid := uuid.New()

	raw, _, err := m.IssueReset(uid)
	require.NoError(t, err)

	claims, err := m.VerifyReset(raw)
	require.NoError(t, err)
	require.Equal(t, uid.String(), claims.Subject)
}
