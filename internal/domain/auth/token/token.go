package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the payload of a short-lived access token. It is
// self-contained: resource services authorize from the claims alone.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RefreshClaims carries only the subject. Refresh tokens are never presented
// to resource endpoints, so they omit the audience.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// ResetClaims authorizes a single password change.
type ResetClaims struct {
	jwt.RegisteredClaims
}

type Manager interface {
	IssueAccess(userID uuid.UUID, email, role string) (token string, exp time.Time, err error)
	IssueRefresh(userID uuid.UUID) (token string, exp time.Time, err error)
	IssueReset(userID uuid.UUID) (token string, exp time.Time, err error)

	VerifyAccess(raw string) (AccessClaims, error)
	VerifyRefresh(raw string) (RefreshClaims, error)
	VerifyReset(raw string) (ResetClaims, error)
}
