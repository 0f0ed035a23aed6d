package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/welliohq/wellio-backend/internal/adapters/transport/http/dto"
	"github.com/welliohq/wellio-backend/internal/app/auth/service"
	authErrors "github.com/welliohq/wellio-backend/internal/domain/auth/errors"
	"github.com/welliohq/wellio-backend/internal/infra/config"
	"go.uber.org/zap"
)

// Handler owns the auth service's HTTP surface.
type Handler struct {
	svc service.Service
	cfg *config.Config
	log *zap.Logger
}

func NewHandler(svc service.Service, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{svc: svc, cfg: cfg, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	auth.POST("/login", h.login)
	auth.POST("/register", h.register)
	auth.POST("/logout", h.logout)
	auth.POST("/refresh", h.refresh)
	auth.POST("/forgot-password", h.forgotPassword)
	auth.POST("/reset-password", h.resetPassword)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"service":   "Auth Service",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func (h *Handler) login(c *gin.Context) {
	var body dto.LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "malformed request body"})
		return
	}

	user, pair, err := h.svc.Login(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: dto.AuthData{
		User:         user.Public(),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}})
}

func (h *Handler) register(c *gin.Context) {
	var body dto.RegisterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "malformed request body"})
		return
	}

	user, pair, err := h.svc.Register(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Envelope{Success: true, Data: dto.AuthData{
		User:         user.Public(),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}})
}

// logout never fails visibly: whatever state the token is in, the caller ends
// up logged out.
func (h *Handler) logout(c *gin.Context) {
	raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := h.svc.Logout(c.Request.Context(), raw); err != nil {
		h.log.Warn("logout error suppressed", zap.Error(err))
	}
	c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "Logged out successfully"})
}

func (h *Handler) refresh(c *gin.Context) {
	var body dto.RefreshRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "malformed request body"})
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Envelope{Success: true, Data: dto.TokenData{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var body dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "malformed request body"})
		return
	}

	resetToken, err := h.svc.ForgotPassword(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := dto.Envelope{Success: true, Message: "If the account exists, a reset link has been sent"}
	if h.cfg.DevMode && resetToken != "" {
		// demo convenience only; mail delivery replaces this in production
		resp.Data = gin.H{"resetToken": resetToken}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) resetPassword(c *gin.Context) {
	var body dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "malformed request body"})
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), body); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: "Password reset successfully"})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case authErrors.IsInvalidArgument(err):
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: err.Error()})
	case authErrors.IsAlreadyExists(err):
		c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Error: "User already exists"})
	case authErrors.IsInvalidCredentials(err):
		c.JSON(http.StatusUnauthorized, dto.Envelope{Success: false, Error: "Invalid credentials"})
	case authErrors.IsInvalidRefreshToken(err):
		c.JSON(http.StatusUnauthorized, dto.Envelope{Success: false, Error: "Invalid refresh token"})
	case authErrors.IsInvalidResetToken(err):
		c.JSON(http.StatusUnauthorized, dto.Envelope{Success: false, Error: "Invalid or expired reset token"})
	case authErrors.IsInvalidToken(err):
		c.JSON(http.StatusUnauthorized, dto.Envelope{Success: false, Error: "Invalid token"})
	case authErrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, dto.Envelope{Success: false, Error: "Not found"})
	default:
		h.log.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.Envelope{Success: false, Error: "Internal server error"})
	}
}
