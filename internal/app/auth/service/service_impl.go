package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/welliohq/wellio-backend/internal/adapters/transport/http/dto"
	"github.com/welliohq/wellio-backend/internal/cache"
	customErrors "github.com/welliohq/wellio-backend/internal/domain/auth/errors"
	"github.com/welliohq/wellio-backend/internal/domain/auth/model"
	"github.com/welliohq/wellio-backend/internal/domain/auth/repo"
	"github.com/welliohq/wellio-backend/internal/domain/auth/token"
	"github.com/welliohq/wellio-backend/internal/infra/config"
	"go.uber.org/zap"
)

var argonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Cache key namespaces. Both token kinds share one store; the prefix keeps
// them apart.
func refreshKey(id uuid.UUID) string { return "refresh_token:" + id.String() }
func resetKey(id uuid.UUID) string   { return "reset_token:" + id.String() }

type Service interface {
	Register(ctx context.Context, in dto.RegisterRequest) (model.User, model.TokenPair, error)
	Login(ctx context.Context, in dto.LoginRequest) (model.User, model.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, in dto.RefreshRequest) (model.TokenPair, error)
	ForgotPassword(ctx context.Context, in dto.ForgotPasswordRequest) (string, error)
	ResetPassword(ctx context.Context, in dto.ResetPasswordRequest) error
}

type authService struct {
	userRepo repo.UserRepo
	cache    cache.Cache
	tokens   token.Manager
	cfg      *config.Config
	v        *validator.Validate
	log      *zap.Logger
}

func New(
	ur repo.UserRepo,
	c cache.Cache,
	tm token.Manager,
	cfg *config.Config,
	v *validator.Validate,
	log *zap.Logger,
) Service {
	return &authService{
		userRepo: ur, cache: c, tokens: tm, cfg: cfg, v: v, log: log,
	}
}

func (a *authService) Register(ctx context.Context, in dto.RegisterRequest) (model.User, model.TokenPair, error) {
	if err := a.v.Struct(in); err != nil {
		return model.User{}, model.TokenPair{}, customErrors.NewInvalidArgument(validationMessage(err))
	}

	passwordHash, err := argon2id.CreateHash(in.Password, argonParams)
	if err != nil {
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}

	user := model.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(in.Email),
		PasswordHash: passwordHash,
		Name:         in.Name,
		Role:         in.Role,
		CreatedAt:    time.Now(),
	}
	if _, err = a.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, customErrors.ErrAlreadyExists) {
			return model.User{}, model.TokenPair{}, customErrors.ErrAlreadyExists
		}
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}

	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		return model.User{}, model.TokenPair{}, err
	}
	return user, pair, nil
}

func (a *authService) Login(ctx context.Context, in dto.LoginRequest) (model.User, model.TokenPair, error) {
	if err := a.v.Struct(in); err != nil {
		return model.User{}, model.TokenPair{}, customErrors.NewInvalidArgument(validationMessage(err))
	}

	if a.cfg.DevMode {
		return a.devLogin(ctx, in.Email)
	}

	user, err := a.userRepo.GetUserByEmail(ctx, strings.ToLower(in.Email))
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		// same error as a wrong password, so callers cannot enumerate emails
		return model.User{}, model.TokenPair{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}

	ok, err := argon2id.ComparePasswordAndHash(in.Password, user.PasswordHash)
	if err != nil {
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok {
		return model.User{}, model.TokenPair{}, customErrors.ErrInvalidCredentials
	}

	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		return model.User{}, model.TokenPair{}, err
	}
	return user, pair, nil
}

// Logout is best-effort and idempotent: a stale or garbage token still yields
// success, the caller must never see a visible failure here.
func (a *authService) Logout(ctx context.Context, accessToken string) error {
	claims, err := a.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil
	}
	if _, err := a.cache.Delete(ctx, refreshKey(uid)); err != nil {
		a.log.Warn("logout: failed to delete refresh token", zap.Error(err))
	}
	return nil
}

func (a *authService) Refresh(ctx context.Context, in dto.RefreshRequest) (model.TokenPair, error) {
	if err := a.v.Struct(in); err != nil {
		return model.TokenPair{}, customErrors.NewInvalidArgument(validationMessage(err))
	}

	claims, err := a.tokens.VerifyRefresh(in.RefreshToken)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	}

	// Only the most recently issued refresh token for an identity is valid.
	// A stale (rotated-away) token fails the exact-match check.
	stored, err := a.cache.Get(ctx, refreshKey(uid))
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}
	if stored != in.RefreshToken {
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	}

	user, err := a.userRepo.GetUserByID(ctx, uid)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}

	return a.issueTokens(ctx, user)
}

// ForgotPassword always reports success so responses cannot be used to probe
// which emails exist (mirrors Login's generic error). The reset token is
// returned to the caller only so dev mode can surface it.
func (a *authService) ForgotPassword(ctx context.Context, in dto.ForgotPasswordRequest) (string, error) {
	if err := a.v.Struct(in); err != nil {
		return "", customErrors.NewInvalidArgument(validationMessage(err))
	}

	user, err := a.userRepo.GetUserByEmail(ctx, strings.ToLower(in.Email))
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		a.log.Info("forgot-password for unknown email")
		return "", nil
	case err != nil:
		return "", customErrors.WrapInternal(err, "ForgotPassword")
	}

	resetToken, exp, err := a.tokens.IssueReset(user.ID)
	if err != nil {
		return "", customErrors.WrapInternal(err, "IssueReset")
	}
	if err := a.cache.Set(ctx, resetKey(user.ID), resetToken, time.Until(exp)); err != nil {
		return "", customErrors.WrapInternal(err, "StoreReset")
	}

	// TODO: send the reset link by email once the notifications service
	// exposes a mail endpoint.
	return resetToken, nil
}

func (a *authService) ResetPassword(ctx context.Context, in dto.ResetPasswordRequest) error {
	if err := a.v.Struct(in); err != nil {
		return customErrors.NewInvalidArgument(validationMessage(err))
	}

	claims, err := a.tokens.VerifyReset(in.Token)
	if err != nil {
		return customErrors.ErrInvalidResetToken
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return customErrors.ErrInvalidResetToken
	}

	stored, err := a.cache.Get(ctx, resetKey(uid))
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		return customErrors.ErrInvalidResetToken
	case err != nil:
		return customErrors.WrapInternal(err, "ResetPassword")
	}
	if stored != in.Token {
		return customErrors.ErrInvalidResetToken
	}

	passwordHash, err := argon2id.CreateHash(in.NewPassword, argonParams)
	if err != nil {
		return customErrors.WrapInternal(err, "ResetPassword")
	}
	if err := a.userRepo.UpdatePassword(ctx, uid, passwordHash); err != nil {
		return customErrors.WrapInternal(err, "UpdatePassword")
	}

	// single use: the token dies with the cache entry
	if _, err := a.cache.Delete(ctx, resetKey(uid)); err != nil {
		return customErrors.WrapInternal(err, "DeleteReset")
	}
	return nil
}

// issueTokens builds a fresh pair and stores the refresh token under the
// identity's key, overwriting any previous session (single active session).
func (a *authService) issueTokens(ctx context.Context, user model.User) (model.TokenPair, error) {
	at, atExp, err := a.tokens.IssueAccess(user.ID, user.Email, user.Role)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "IssueAccess")
	}
	rt, rtExp, err := a.tokens.IssueRefresh(user.ID)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "IssueRefresh")
	}

	if err = a.cache.Set(ctx, refreshKey(user.ID), rt, time.Until(rtExp)); err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "StoreRefresh")
	}

	now := time.Now()
	return model.TokenPair{
		AccessToken:  at,
		RefreshToken: rt,
		AccessTTL:    atExp.Sub(now),
		RefreshTTL:   rtExp.Sub(now),
		UserID:       user.ID,
	}, nil
}

// devLogin synthesizes a coach identity for any email without touching the
// credential store. Demo fixture behind DEV_MODE only.
func (a *authService) devLogin(ctx context.Context, email string) (model.User, model.TokenPair, error) {
	a.log.Warn("dev mode login", zap.String("email", email))

	user := model.User{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("dev:"+strings.ToLower(email))),
		Email:     strings.ToLower(email),
		Name:      "Dev User",
		Role:      model.RoleCoach,
		CreatedAt: time.Now(),
	}
	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		return model.User{}, model.TokenPair{}, err
	}
	return user, pair, nil
}

// validationMessage flattens validator errors into one message naming every
// offending field, not just the first.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
