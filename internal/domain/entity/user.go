package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

// User representa un usuario registrado. ExternalID es la identidad en la
// plataforma de mensajería (tg_id) con la que se autentica.
type User struct {
	ID         string
	ExternalID int64
	Username   string // opcional
	Role       string // admin, worker
	IsActive   bool
	LastLogin  *time.Time
	CreatedAt  time.Time
}

// IsAdmin indica si el usuario tiene rol administrador.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ValidRole verifica que el rol sea uno de los soportados.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleWorker
}
