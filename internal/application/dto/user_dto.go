package dto

import "time"

// RegisterRequest entrada para registro (solo admin): username, password, rol y farmacia.
type RegisterRequest struct {
	Username   string `json:"username" validate:"required,min=3,max=50"`
	Password   string `json:"password" validate:"required,min=6"`
	Role       string `json:"role" validate:"omitempty,oneof=admin user"`
	PharmacyID int    `json:"pharmacy_id" validate:"omitempty,min=1"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	PharmacyID int       `json:"pharmacy_id"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse salida de login: {success, user, token, message}.
type LoginResponse struct {
	Success bool          `json:"success"`
	User    *UserResponse `json:"user,omitempty"`
	Token   string        `json:"token,omitempty"`
	Message string        `json:"message"`
}

// VerifyResponse salida de verificación de token: claims decodificados.
type VerifyResponse struct {
	Success bool          `json:"success"`
	Valid   bool          `json:"valid"`
	User    *UserResponse `json:"user,omitempty"`
}
