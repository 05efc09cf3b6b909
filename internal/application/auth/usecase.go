package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/usecase"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
	"github.com/jhoicas/almacen-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// Config secretos de registro y login.
type Config struct {
	JWT JWTConfig
	// AdminPasswordHash hash bcrypt de la contraseña que habilita el registro como admin.
	// Vacío deshabilita el registro de administradores.
	AdminPasswordHash []byte
	// BotSecret si no está vacío, el login lo exige.
	BotSecret string
}

// AuthUseCase casos de uso de autenticación: registro, login y verificación de contraseña admin.
type AuthUseCase struct {
	userRepo repository.UserRepository
	cfg      Config
	now      func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, cfg Config) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, cfg: cfg, now: time.Now}
}

// CheckAdminPassword devuelve ErrForbidden si la contraseña no coincide.
func (uc *AuthUseCase) CheckAdminPassword(password string) error {
	if len(uc.cfg.AdminPasswordHash) == 0 || password == "" {
		return fmt.Errorf("%w: contraseña de administrador inválida", domain.ErrForbidden)
	}
	if err := bcrypt.CompareHashAndPassword(uc.cfg.AdminPasswordHash, []byte(password)); err != nil {
		return fmt.Errorf("%w: contraseña de administrador inválida", domain.ErrForbidden)
	}
	return nil
}

// Register crea un usuario activo. El rol admin exige la contraseña de administrador.
func (uc *AuthUseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	if in.TgID == 0 {
		return nil, fmt.Errorf("%w: tg_id es requerido", domain.ErrValidation)
	}
	role := in.Role
	if role == "" {
		role = entity.RoleWorker
	}
	if !entity.ValidRole(role) {
		return nil, fmt.Errorf("%w: rol inválido %q", domain.ErrValidation, role)
	}
	if role == entity.RoleAdmin {
		if err := uc.CheckAdminPassword(in.AdminPassword); err != nil {
			return nil, err
		}
	}
	existing, err := uc.userRepo.GetByExternalID(ctx, in.TgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}
	user := &entity.User{
		ID:         uuid.New().String(),
		ExternalID: in.TgID,
		Username:   in.Username,
		Role:       role,
		IsActive:   true,
		CreatedAt:  uc.now(),
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return usecase.ToUserResponse(user), nil
}

// Login valida la identidad de mensajería (y el secreto del bot si está configurado),
// genera JWT y actualiza last_login.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	if uc.cfg.BotSecret != "" &&
		subtle.ConstantTimeCompare([]byte(uc.cfg.BotSecret), []byte(in.BotSecret)) != 1 {
		return nil, fmt.Errorf("%w: secreto de bot inválido", domain.ErrUnauthorized)
	}
	user, err := uc.userRepo.GetByExternalID(ctx, in.TgID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("%w: usuario no registrado o inactivo", domain.ErrUnauthorized)
	}
	token, err := jwt.Generate(uc.cfg.JWT.Secret, user.ID, user.ExternalID, user.Role, uc.cfg.JWT.Issuer, uc.cfg.JWT.ExpMinutes)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	if err := uc.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	return &dto.LoginResponse{
		Token: token,
		User:  *usecase.ToUserResponse(user),
	}, nil
}
