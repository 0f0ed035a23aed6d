package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/welliohq/wellio-backend/internal/adapters/transport/http/dto"
	appsvc "github.com/welliohq/wellio-backend/internal/app/auth/service"
	apptoken "github.com/welliohq/wellio-backend/internal/app/auth/token"
	"github.com/welliohq/wellio-backend/internal/cache"
	authErrors "github.com/welliohq/wellio-backend/internal/domain/auth/errors"
	"github.com/welliohq/wellio-backend/internal/domain/auth/model"
	"github.com/welliohq/wellio-backend/internal/infra/config"
	"go.uber.org/zap"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

type userRepoStub struct{ users map[uuid.UUID]model.User }

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[uuid.UUID]model.User)}
}

func (u *userRepoStub) CreateUser(_ context.Context, m model.User) (uuid.UUID, error) {
	for _, v := range u.users {
		if strings.EqualFold(v.Email, m.Email) {
			return uuid.Nil, authErrors.ErrAlreadyExists
		}
	}
	u.users[m.ID] = m
	return m.ID, nil
}

func (u *userRepoStub) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	for _, v := range u.users {
		if strings.EqualFold(v.Email, email) {
			return v, nil
		}
	}
	return model.User{}, authErrors.ErrNotFound
}

func (u *userRepoStub) GetUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	v, ok := u.users[id]
	if !ok {
		return model.User{}, authErrors.ErrNotFound
	}
	return v, nil
}

func (u *userRepoStub) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	v, ok := u.users[id]
	if !ok {
		return authErrors.ErrNotFound
	}
	v.PasswordHash = hash
	u.users[id] = v
	return nil
}

/* ─────────────────────────────── fixture ─────────────────────────────── */

type fixture struct {
	svc   appsvc.Service
	repo  *userRepoStub
	cache cache.Cache
	cfg   *config.Config
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:       "service-test-secret",
		Issuer:          "wellio-auth",
		Audience:        "wellio-api",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		ResetTokenTTL:   time.Minute,
	}
	if mutate != nil {
		mutate(cfg)
	}

	tm, err := apptoken.NewManager(cfg)
	require.NoError(t, err)

	repo := newUserRepoStub()
	mem := cache.NewMemoryCache()
	svc := appsvc.New(repo, mem, tm, cfg, validator.New(), zap.NewNop())

	return &fixture{svc: svc, repo: repo, cache: mem, cfg: cfg}
}

func register(t *testing.T, f *fixture, email string) (model.User, model.TokenPair) {
	t.Helper()
	user, pair, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Email:    email,
		Password: "Password1",
		Name:     "Ann",
		Role:     model.RoleCoach,
	})
	require.NoError(t, err)
	return user, pair
}

/* ──────────────────────────────── tests ──────────────────────────────── */

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	registered, regPair := register(t, f, "a@x.com")
	require.NotEmpty(t, regPair.AccessToken)
	require.NotEmpty(t, regPair.RefreshToken)
	require.Equal(t, "a@x.com", registered.Email)

	user, loginPair, err := f.svc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "Password1"})
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)
	require.NotEqual(t, regPair.AccessToken, loginPair.AccessToken)
	require.NotEqual(t, regPair.RefreshToken, loginPair.RefreshToken)
}

func TestLogin_GenericErrorForUnknownAndWrongPassword(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	register(t, f, "a@x.com")

	_, _, errUnknown := f.svc.Login(ctx, dto.LoginRequest{Email: "nobody@x.com", Password: "Password1"})
	_, _, errWrongPwd := f.svc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "WrongPass1"})

	require.ErrorIs(t, errUnknown, authErrors.ErrInvalidCredentials)
	require.ErrorIs(t, errWrongPwd, authErrors.ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrongPwd.Error(), "must not distinguish the two cases")
}

func TestRegister_DuplicateEmailCaseInsensitive(t *testing.T) {
	f := newFixture(t, nil)
	register(t, f, "a@x.com")

	_, _, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "A@X.COM",
		Password: "OtherPass1",
		Name:     "Bob",
		Role:     model.RoleClient,
	})
	require.ErrorIs(t, err, authErrors.ErrAlreadyExists)
}

func TestRegister_ValidationListsAllFields(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "not-an-email",
		Password: "short",
		Role:     "admin",
	})
	require.True(t, authErrors.IsInvalidArgument(err))
	require.Contains(t, err.Error(), "Email")
	require.Contains(t, err.Error(), "Password")
	require.Contains(t, err.Error(), "Name")
	require.Contains(t, err.Error(), "Role")
}

func TestRefresh_RotationInvariant(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, pair := register(t, f, "a@x.com")

	rotated, err := f.svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// the used token is rotated away and must be rejected on second use
	_, err = f.svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.ErrorIs(t, err, authErrors.ErrInvalidRefreshToken)

	// the freshly rotated token still works
	_, err = f.svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: rotated.RefreshToken})
	require.NoError(t, err)
}

func TestRefresh_GarbageToken(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: "garbage"})
	require.ErrorIs(t, err, authErrors.ErrInvalidRefreshToken)
}

func TestRefresh_AfterLogout(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, pair := register(t, f, "a@x.com")

	require.NoError(t, f.svc.Logout(ctx, pair.AccessToken))

	_, err := f.svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.ErrorIs(t, err, authErrors.ErrInvalidRefreshToken)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, pair := register(t, f, "a@x.com")

	require.NoError(t, f.svc.Logout(ctx, pair.AccessToken))
	require.NoError(t, f.svc.Logout(ctx, pair.AccessToken))
	require.NoError(t, f.svc.Logout(ctx, "complete-garbage"))
}

func TestForgotPassword_UnknownEmailStillSucceeds(t *testing.T) {
	f := newFixture(t, nil)

	tokenStr, err := f.svc.ForgotPassword(context.Background(), dto.ForgotPasswordRequest{Email: "nobody@x.com"})
	require.NoError(t, err)
	require.Empty(t, tokenStr)
}

func TestResetPassword_SingleUse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	register(t, f, "a@x.com")

	resetToken, err := f.svc.ForgotPassword(ctx, dto.ForgotPasswordRequest{Email: "a@x.com"})
	require.NoError(t, err)
	require.NotEmpty(t, resetToken)

	err = f.svc.ResetPassword(ctx, dto.ResetPasswordRequest{Token: resetToken, NewPassword: "NewPassword1"})
	require.NoError(t, err)

	// new password now works, old one does not
	_, _, err = f.svc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "NewPassword1"})
	require.NoError(t, err)
	_, _, err = f.svc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "Password1"})
	require.ErrorIs(t, err, authErrors.ErrInvalidCredentials)

	// second attempt with the same token fails
	err = f.svc.ResetPassword(ctx, dto.ResetPasswordRequest{Token: resetToken, NewPassword: "AnotherPass1"})
	require.ErrorIs(t, err, authErrors.ErrInvalidResetToken)
}

func TestResetPassword_NeverIssuedToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user, _ := register(t, f, "a@x.com")

	// a structurally valid reset token that was never stored via ForgotPassword
	tm, err := apptoken.NewManager(f.cfg)
	require.NoError(t, err)
	forged, _, err := tm.IssueReset(user.ID)
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, dto.ResetPasswordRequest{Token: forged, NewPassword: "NewPassword1"})
	require.ErrorIs(t, err, authErrors.ErrInvalidResetToken)
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	registered, _ := register(t, f, "a@x.com")

	user, loginPair, err := f.svc.Login(ctx, dto.LoginRequest{Email: "a@x.com", Password: "Password1"})
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)

	rotated, err := f.svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: loginPair.RefreshToken})
	require.NoError(t, err)
	require.Equal(t, registered.ID, rotated.UserID)

	_, err = f.svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: loginPair.RefreshToken})
	require.ErrorIs(t, err, authErrors.ErrInvalidRefreshToken)
}

func TestDevMode_LoginWithoutStore(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.DevMode = true })
	ctx := context.Background()

	user, pair, err := f.svc.Login(ctx, dto.LoginRequest{Email: "anyone@x.com", Password: "whatever1"})
	require.NoError(t, err)
	require.Equal(t, model.RoleCoach, user.Role)
	require.NotEmpty(t, pair.AccessToken)

	// identity is stable across dev logins for the same email
	again, _, err := f.svc.Login(ctx, dto.LoginRequest{Email: "anyone@x.com", Password: "different1"})
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)
}
