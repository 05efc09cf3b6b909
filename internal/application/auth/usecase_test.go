package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/almacen-api/internal/application/auth"
	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/infrastructure/memory"
	"github.com/jhoicas/almacen-api/pkg/jwt"
)

const jwtSecret = "test-secret"

func newAuth(t *testing.T, botSecret string) (*auth.AuthUseCase, *memory.Store) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("clave-admin"), bcrypt.MinCost)
	require.NoError(t, err)
	store := memory.NewStore()
	uc := auth.NewAuthUseCase(store.Users(), auth.Config{
		JWT:               auth.JWTConfig{Secret: jwtSecret, ExpMinutes: 5, Issuer: "almacen-api"},
		AdminPasswordHash: hash,
		BotSecret:         botSecret,
	})
	return uc, store
}

func TestRegister_RolPorDefectoWorker(t *testing.T) {
	uc, _ := newAuth(t, "")
	out, err := uc.Register(context.Background(), dto.RegisterRequest{TgID: 1345214313, Username: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "worker", out.Role)
	assert.True(t, out.IsActive)
	assert.Equal(t, int64(1345214313), out.TgID)
}

func TestRegister_AdminExigeContrasena(t *testing.T) {
	uc, _ := newAuth(t, "")
	ctx := context.Background()

	_, err := uc.Register(ctx, dto.RegisterRequest{TgID: 1, Role: "admin"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Register(ctx, dto.RegisterRequest{TgID: 1, Role: "admin", AdminPassword: "mala"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	out, err := uc.Register(ctx, dto.RegisterRequest{TgID: 1, Role: "admin", AdminPassword: "clave-admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", out.Role)
}

func TestRegister_Duplicado(t *testing.T) {
	uc, _ := newAuth(t, "")
	ctx := context.Background()
	_, err := uc.Register(ctx, dto.RegisterRequest{TgID: 7})
	require.NoError(t, err)

	_, err = uc.Register(ctx, dto.RegisterRequest{TgID: 7})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_Validaciones(t *testing.T) {
	uc, _ := newAuth(t, "")
	_, err := uc.Register(context.Background(), dto.RegisterRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Register(context.Background(), dto.RegisterRequest{TgID: 9, Role: "jefe"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLogin_EmiteTokenYActualizaUltimoAcceso(t *testing.T) {
	uc, store := newAuth(t, "")
	ctx := context.Background()
	reg, err := uc.Register(ctx, dto.RegisterRequest{TgID: 42})
	require.NoError(t, err)

	out, err := uc.Login(ctx, dto.LoginRequest{TgID: 42})
	require.NoError(t, err)
	userID, ext, role, err := jwt.Parse(jwtSecret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, userID)
	assert.Equal(t, int64(42), ext)
	assert.Equal(t, "worker", role)

	u, err := store.Users().GetByExternalID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, u.LastLogin)
}

func TestLogin_UsuarioInexistenteOInactivo(t *testing.T) {
	uc, store := newAuth(t, "")
	ctx := context.Background()

	_, err := uc.Login(ctx, dto.LoginRequest{TgID: 404})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Register(ctx, dto.RegisterRequest{TgID: 5})
	require.NoError(t, err)
	u, _ := store.Users().GetByExternalID(ctx, 5)
	u.IsActive = false
	require.NoError(t, store.Users().Update(ctx, u))

	_, err = uc.Login(ctx, dto.LoginRequest{TgID: 5})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_SecretoDeBot(t *testing.T) {
	uc, _ := newAuth(t, "bot-123")
	ctx := context.Background()
	_, err := uc.Register(ctx, dto.RegisterRequest{TgID: 8})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{TgID: 8, BotSecret: "otro"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(ctx, dto.LoginRequest{TgID: 8, BotSecret: "bot-123"})
	assert.NoError(t, err)
}

func TestCheckAdminPassword(t *testing.T) {
	uc, _ := newAuth(t, "")
	assert.NoError(t, uc.CheckAdminPassword("clave-admin"))
	assert.ErrorIs(t, uc.CheckAdminPassword("x"), domain.ErrForbidden)
	assert.ErrorIs(t, uc.CheckAdminPassword(""), domain.ErrForbidden)

	sinHash := auth.NewAuthUseCase(memory.NewStore().Users(), auth.Config{})
	assert.ErrorIs(t, sinHash.CheckAdminPassword("clave-admin"), domain.ErrForbidden)
}
