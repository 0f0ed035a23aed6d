package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/welliohq/wellio-backend/internal/domain/auth/model"
)

// UserRepo is the credential-store contract. Identities are mutated only
// through registration and password reset; this subsystem never deletes them.
type UserRepo interface {
	CreateUser(ctx context.Context, user model.User) (uuid.UUID, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
