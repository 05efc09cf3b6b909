package dto

import "time"

// RegisterRequest entrada para registro. AdminPassword solo se exige si Role es admin.
type RegisterRequest struct {
	TgID          int64  `json:"tg_id" validate:"required"`
	Username      string `json:"username" validate:"omitempty,max=200"`
	Role          string `json:"role" validate:"omitempty,oneof=admin worker"`
	AdminPassword string `json:"admin_password"`
}

// UpdateUserRequest entrada para que un admin actualice un usuario.
type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,max=200"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin worker"`
	IsActive *bool   `json:"is_active"`
}

// UserResponse salida de un usuario.
type UserResponse struct {
	ID        string     `json:"id"`
	TgID      int64      `json:"tg_id"`
	Username  string     `json:"username,omitempty"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// UserListResponse lista paginada de usuarios.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// LoginRequest entrada para login del bot con la identidad de mensajería.
type LoginRequest struct {
	TgID      int64  `json:"tg_id" validate:"required"`
	BotSecret string `json:"bot_secret"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// AdminPasswordRequest entrada para verificar la contraseña de administrador.
type AdminPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}
