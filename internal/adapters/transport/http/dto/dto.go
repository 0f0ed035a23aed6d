package dto

import "github.com/welliohq/wellio-backend/internal/domain/auth/model"

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Role     string `json:"role"     validate:"required,oneof=coach client"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// Envelope is the uniform response body: {success, data} on the happy path,
// {success:false, error} otherwise.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type AuthData struct {
	User         model.PublicUser `json:"user"`
	Token        string           `json:"token"`
	RefreshToken string           `json:"refreshToken"`
}

type TokenData struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}
