package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/welliohq/wellio-backend/internal/adapters/transport/http/middleware"
	"go.uber.org/zap"
)

// Handshake authenticates and upgrades a websocket connection. The token
// travels out-of-band as a query parameter, not in a header; the same
// verification rules apply as for HTTP, and a bad token is rejected before
// the connection joins any room.
func Handshake(hub *Hub, verifier middleware.AccessVerifier, allowedOrigins []string, log *zap.Logger) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}

	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.ErrorBody(middleware.CodeNoToken, "No token provided"))
			return
		}

		claims, err := verifier.VerifyAccess(raw)
		if err != nil {
			log.Warn("websocket handshake rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.ErrorBody(middleware.CodeInvalidToken, "Invalid token"))
			return
		}
		uid, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.ErrorBody(middleware.CodeInvalidToken, "Invalid token"))
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the error response
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(hub, conn, middleware.Identity{
			ID:    uid,
			Email: claims.Email,
			Role:  claims.Role,
		}, log)
		go client.Run()
	}
}
