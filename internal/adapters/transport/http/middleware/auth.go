package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/welliohq/wellio-backend/internal/domain/auth/model"
	"github.com/welliohq/wellio-backend/internal/domain/auth/token"
	"go.uber.org/zap"
)

const identityKey = "auth.identity"

// Error codes surfaced to HTTP callers. The specific verification failure
// (expiry vs signature vs issuer) stays in the logs.
const (
	CodeNoToken      = "NO_TOKEN"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeForbidden    = "FORBIDDEN"
)

// Identity is the decoded caller attached to the request context.
type Identity struct {
	ID    uuid.UUID
	Email string
	Role  string
}

// AccessVerifier is the slice of token.Manager the middleware needs.
type AccessVerifier interface {
	VerifyAccess(raw string) (token.AccessClaims, error)
}

// ErrorBody is the structured 401/403 payload shared by the HTTP middleware
// and the websocket handshake.
func ErrorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// RequireAuth extracts and verifies the bearer token, then stores the caller
// identity for downstream handlers.
func RequireAuth(verifier AccessVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const prefix = "Bearer "

		header := c.GetHeader("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody(CodeNoToken, "No token provided"))
			return
		}

		claims, err := verifier.VerifyAccess(header[len(prefix):])
		if err != nil {
			log.Warn("token verification failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody(CodeInvalidToken, "Invalid token"))
			return
		}

		uid, err := uuid.Parse(claims.Subject)
		if err != nil || claims.Email == "" {
			log.Warn("token payload incomplete", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody(CodeInvalidToken, "Invalid token"))
			return
		}

		c.Set(identityKey, Identity{ID: uid, Email: claims.Email, Role: claims.Role})
		c.Next()
	}
}

// IdentityFrom returns the caller set by RequireAuth.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func CoachOnly() gin.HandlerFunc {
	return requireRole(model.RoleCoach)
}

func ClientOnly() gin.HandlerFunc {
	return requireRole(model.RoleClient)
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok || id.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorBody(CodeForbidden, "Insufficient role"))
			return
		}
		c.Next()
	}
}
