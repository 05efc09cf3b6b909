package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/usecase"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
	"github.com/jhoicas/almacen-api/internal/infrastructure/memory"
)

const workerTg int64 = 1345214313

type fixture struct {
	store     *memory.Store
	items     *usecase.ItemUseCase
	locations *usecase.LocationUseCase
	users     *usecase.UserUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Locations().Create(ctx, &entity.Location{ID: "L1", Name: "Pasillo 1"}))
	require.NoError(t, store.Locations().Create(ctx, &entity.Location{ID: "L2", Name: "Pasillo 2"}))
	require.NoError(t, store.Users().Create(ctx, &entity.User{ID: "U-worker", ExternalID: workerTg, Role: entity.RoleWorker, IsActive: true}))
	return &fixture{
		store:     store,
		items:     usecase.NewItemUseCase(store.Items(), memory.NewTxRunner(store)),
		locations: usecase.NewLocationUseCase(store.Locations(), store.Items()),
		users:     usecase.NewUserUseCase(store.Users(), store.Operations(), store.Items()),
	}
}

func (f *fixture) createItem(t *testing.T, code string, qty int64) *dto.ItemResponse {
	t.Helper()
	out, err := f.items.Create(context.Background(), workerTg, dto.CreateItemRequest{
		Code:       code,
		Name:       "Caja " + code,
		Weight:     decimal.RequireFromString("1.25"),
		Quantity:   decimal.NewFromInt(qty),
		LocationID: "L1",
	})
	require.NoError(t, err)
	return out
}

// ─── Items ───────────────────────────────────────────────────────────────────

func TestItemCreate_RegistraRecepcionInicial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out := f.createItem(t, "A-1", 7)
	assert.Equal(t, int64(7), out.Quantity)
	assert.Equal(t, "L1", out.LocationID)

	ops, err := f.store.Operations().List(ctx, repository.OperationFilter{ItemID: out.ID})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, entity.OperationReceive, ops[0].Kind)
	assert.Equal(t, int64(7), ops[0].QuantityDelta)
	assert.Equal(t, int64(7), ops[0].ResultingQuantity)
	assert.Equal(t, "U-worker", ops[0].UserID)
	assert.Equal(t, "Recepción inicial al crear el ítem. Cantidad: 7", ops[0].Note)
}

func TestItemCreate_TruncaCantidadDecimal(t *testing.T) {
	f := newFixture(t)
	out, err := f.items.Create(context.Background(), workerTg, dto.CreateItemRequest{
		Code: "D-1", Name: "Rollo", Quantity: decimal.RequireFromString("3.9"), LocationID: "L1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Quantity)
}

func TestItemCreate_Errores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createItem(t, "A-1", 1)

	cases := []struct {
		name string
		ext  int64
		in   dto.CreateItemRequest
		want error
	}{
		{"código duplicado", workerTg, dto.CreateItemRequest{Code: "A-1", Name: "x", LocationID: "L1"}, domain.ErrItemCodeExists},
		{"ubicación inexistente", workerTg, dto.CreateItemRequest{Code: "B-1", Name: "x", LocationID: "L9"}, domain.ErrInvalidLocation},
		{"cantidad negativa", workerTg, dto.CreateItemRequest{Code: "B-2", Name: "x", LocationID: "L1", Quantity: decimal.NewFromInt(-1)}, domain.ErrNegativeQuantity},
		{"cantidad fuera de rango", workerTg, dto.CreateItemRequest{Code: "B-5", Name: "x", LocationID: "L1", Quantity: decimal.RequireFromString("18446744073709551621")}, domain.ErrQuantityOutOfRange},
		{"sin nombre", workerTg, dto.CreateItemRequest{Code: "B-3", LocationID: "L1"}, domain.ErrValidation},
		{"usuario desconocido", 999, dto.CreateItemRequest{Code: "B-4", Name: "x", LocationID: "L1"}, domain.ErrUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.items.Create(ctx, tc.ext, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	list, err := f.items.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list.Items, 1, "los fallos no deben dejar ítems")
}

func TestItemScan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createItem(t, "SC-1", 2)

	found, err := f.items.ScanByCode(ctx, " SC-1 ")
	require.NoError(t, err)
	assert.Equal(t, dto.ScanStatusExists, found.Status)
	require.NotNil(t, found.Item)
	assert.Equal(t, "SC-1", found.Item.Code)

	missing, err := f.items.ScanByCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Equal(t, dto.ScanStatusNotFound, missing.Status)
	assert.Equal(t, "NOPE", missing.ItemCode)
	assert.Nil(t, missing.Item)
}

func TestItemUpdate_NoTocaCantidadNiUbicacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createItem(t, "U-1", 4)
	other := f.createItem(t, "U-2", 1)

	name := "Nuevo nombre"
	out, err := f.items.Update(ctx, created.ID, dto.UpdateItemRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, out.Name)
	assert.Equal(t, int64(4), out.Quantity)
	assert.Equal(t, "L1", out.LocationID)

	dup := other.Code
	_, err = f.items.Update(ctx, created.ID, dto.UpdateItemRequest{Code: &dup})
	assert.ErrorIs(t, err, domain.ErrItemCodeExists)

	_, err = f.items.Update(ctx, "nope", dto.UpdateItemRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestItemDelete_ConOperacionesRequiereCascadaAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createItem(t, "DEL-1", 3)

	err := f.items.Delete(ctx, created.ID, false, true)
	assert.ErrorIs(t, err, domain.ErrItemHasOperations)

	err = f.items.Delete(ctx, created.ID, true, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.items.Delete(ctx, created.ID, true, true))
	_, err = f.items.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	n, err := f.store.Operations().CountByItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, f.items.Delete(ctx, created.ID, false, true), domain.ErrItemNotFound)
}

// ─── Locations ───────────────────────────────────────────────────────────────

func TestLocationCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loc, err := f.locations.Create(ctx, dto.CreateLocationRequest{Name: "  Muelle  "})
	require.NoError(t, err)
	assert.Equal(t, "Muelle", loc.Name)

	_, err = f.locations.Create(ctx, dto.CreateLocationRequest{Name: "Muelle"})
	assert.ErrorIs(t, err, domain.ErrLocationNameExists)
	_, err = f.locations.Create(ctx, dto.CreateLocationRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	desc := "Zona de carga"
	upd, err := f.locations.Update(ctx, loc.ID, dto.UpdateLocationRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, upd.Description)

	clash := "Pasillo 1"
	_, err = f.locations.Update(ctx, loc.ID, dto.UpdateLocationRequest{Name: &clash})
	assert.ErrorIs(t, err, domain.ErrLocationNameExists)

	require.NoError(t, f.locations.Delete(ctx, loc.ID))
	_, err = f.locations.GetByID(ctx, loc.ID)
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
}

func TestLocationDelete_EnUso(t *testing.T) {
	f := newFixture(t)
	f.createItem(t, "IN-1", 1)
	err := f.locations.Delete(context.Background(), "L1")
	assert.ErrorIs(t, err, domain.ErrLocationInUse)
}

// ─── Users ───────────────────────────────────────────────────────────────────

func TestUserGet_SoloPropioOAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.users.GetByExternalID(ctx, workerTg, entity.RoleWorker, workerTg)
	require.NoError(t, err)
	assert.Equal(t, "U-worker", out.ID)

	_, err = f.users.GetByExternalID(ctx, 1, entity.RoleWorker, workerTg)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.users.GetByExternalID(ctx, 1, entity.RoleAdmin, workerTg)
	assert.NoError(t, err)

	_, err = f.users.GetByExternalID(ctx, 1, entity.RoleAdmin, 404)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := false
	role := entity.RoleAdmin
	out, err := f.users.Update(ctx, workerTg, dto.UpdateUserRequest{Role: &role, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, out.Role)
	assert.False(t, out.IsActive)

	bad := "jefe"
	_, err = f.users.Update(ctx, workerTg, dto.UpdateUserRequest{Role: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUserDelete_ConOperacionesBloqueado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createItem(t, "OP-1", 1)

	assert.ErrorIs(t, f.users.Delete(ctx, workerTg), domain.ErrUserHasOperations)

	require.NoError(t, f.store.Users().Create(ctx, &entity.User{ID: "U-new", ExternalID: 77, Role: entity.RoleWorker, IsActive: true}))
	require.NoError(t, f.users.Delete(ctx, 77))
	assert.ErrorIs(t, f.users.Delete(ctx, 77), domain.ErrUserNotFound)

	list, err := f.users.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}
