package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/internal/application/auth"
	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/inventory"
	"github.com/jhoicas/almacen-api/internal/application/report"
	"github.com/jhoicas/almacen-api/internal/application/usecase"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/infrastructure/memory"
	"github.com/jhoicas/almacen-api/internal/infrastructure/xmlexport"
	apphttp "github.com/jhoicas/almacen-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/almacen-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// App completa sobre el almacén en memoria
// ──────────────────────────────────────────────────────────────────────────────

const (
	adminTg     = int64(732334353)
	workerTg    = int64(1345214313)
	testNoteMax = 512
)

type stubPDF struct{}

func (stubPDF) GenerateOperationLogPDF(_ context.Context, rep *report.LogReport) ([]byte, error) {
	return []byte("%PDF-stub"), nil
}

type apiFixture struct {
	app   *fiber.App
	store *memory.Store
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Locations().Create(ctx, &entity.Location{ID: "L1", Name: "Pasillo 1"}))
	require.NoError(t, store.Locations().Create(ctx, &entity.Location{ID: "L2", Name: "Pasillo 2"}))
	require.NoError(t, store.Users().Create(ctx, &entity.User{ID: "U-admin", ExternalID: adminTg, Username: "jefe", Role: entity.RoleAdmin, IsActive: true}))
	require.NoError(t, store.Users().Create(ctx, &entity.User{ID: "U-worker", ExternalID: workerTg, Username: "bodega", Role: entity.RoleWorker, IsActive: true}))
	require.NoError(t, store.Items().Create(ctx, &entity.Item{ID: "I1", Code: "A-001", Name: "Tornillo", Quantity: 10, LocationID: "L1"}))

	runner := memory.NewTxRunner(store)
	opLog := inventory.NewOperationLogUseCase(store.Operations())
	deps := apphttp.RouterDeps{
		AuthUC: auth.NewAuthUseCase(store.Users(), auth.Config{
			JWT: auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer},
		}),
		ProcessOp:    inventory.NewProcessOperationUseCase(runner, inventory.WithNoteMaxLength(testNoteMax)),
		OperationLog: opLog,
		ReportUC:     report.NewUseCase(opLog, store.Items(), store.Users(), store.Locations(), stubPDF{}, xmlexport.NewExporter()),
		ItemUC:       usecase.NewItemUseCase(store.Items(), runner),
		LocationUC:   usecase.NewLocationUseCase(store.Locations(), store.Items()),
		UserUC:       usecase.NewUserUseCase(store.Users(), store.Operations(), store.Items()),
		Idempotency:  memory.NewIdempotencyStore(time.Hour),
		JWTSecret:    testJWTSecret,
	}
	app := fiber.New()
	app.Use(apphttp.RequestLogger(zerolog.Nop()))
	apphttp.Router(app, deps)
	return &apiFixture{app: app, store: store}
}

func bearer(t *testing.T, userID string, tgID int64, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, userID, tgID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (f *apiFixture) call(t *testing.T, method, path, authHeader string, body any, headers ...string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *apiFixture) worker(t *testing.T) string { return bearer(t, "U-worker", workerTg, entity.RoleWorker) }
func (f *apiFixture) admin(t *testing.T) string  { return bearer(t, "U-admin", adminTg, entity.RoleAdmin) }

// ──────────────────────────────────────────────────────────────────────────────
// Auth
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_LoginDevuelveToken(t *testing.T) {
	f := newAPI(t)
	resp := f.call(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{TgID: workerTg})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[dto.LoginResponse](t, resp)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, workerTg, out.User.TgID)
	assert.NotNil(t, out.User.LastLogin)
}

func TestAPI_LoginUsuarioDesconocido401(t *testing.T) {
	f := newAPI(t)
	resp := f.call(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{TgID: 42})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_RegistroDuplicado409(t *testing.T) {
	f := newAPI(t)
	resp := f.call(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{TgID: 555, Username: "nuevo"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.UserResponse](t, resp)
	assert.Equal(t, entity.RoleWorker, created.Role)

	resp = f.call(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{TgID: 555})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_RegistroAdminSinContraseña403(t *testing.T) {
	f := newAPI(t)
	resp := f.call(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{TgID: 556, Role: entity.RoleAdmin})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_CuerpoInvalido400(t *testing.T) {
	f := newAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{no-json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	out := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", out.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Operaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_OperacionReceiveYShip(t *testing.T) {
	f := newAPI(t)

	resp := f.call(t, http.MethodPost, "/api/operations", f.worker(t), map[string]any{
		"item_id": "I1", "type": "receive", "note": "llegó camión", "quantity": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	op := decode[dto.OperationResponse](t, resp)
	assert.Equal(t, int64(5), op.QuantityDelta)
	assert.Equal(t, int64(15), op.ResultingQuantity)
	assert.Equal(t, "U-worker", op.UserID)

	resp = f.call(t, http.MethodPost, "/api/operations", f.worker(t), map[string]any{
		"item_id": "I1", "type": "ship", "note": "pedido 7", "quantity": 20,
	})
	out := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", out.Code)

	it, err := f.store.Items().GetByID(context.Background(), "I1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), it.Quantity)
}

func TestAPI_OperacionErroresDeValidacion(t *testing.T) {
	f := newAPI(t)
	cases := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"tipo desconocido", map[string]any{"item_id": "I1", "type": "steal", "note": "x", "quantity": 1}, http.StatusBadRequest},
		{"nota vacía", map[string]any{"item_id": "I1", "type": "receive", "note": "  ", "quantity": 1}, http.StatusBadRequest},
		{"sin cantidad", map[string]any{"item_id": "I1", "type": "ship", "note": "x"}, http.StatusBadRequest},
		{"ítem inexistente", map[string]any{"item_id": "nope", "type": "receive", "note": "x", "quantity": 1}, http.StatusNotFound},
		{"destino inexistente", map[string]any{"item_id": "I1", "type": "move", "note": "x", "to_location_id": "L9"}, http.StatusNotFound},
		{"en nombre de sin ser admin", map[string]any{"item_id": "I1", "type": "receive", "note": "x", "quantity": 1, "on_behalf_of_tg_id": adminTg}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.call(t, http.MethodPost, "/api/operations", f.worker(t), tc.body)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}

	n, err := f.store.Operations().CountByItem(context.Background(), "I1")
	require.NoError(t, err)
	assert.Zero(t, n, "ninguna operación rechazada deja registro")
}

func TestAPI_OperacionCantidadFueraDeRango400(t *testing.T) {
	f := newAPI(t)
	cases := []struct {
		typ      string
		quantity json.Number
	}{
		{"receive", "9223372036854775807"},
		{"inventory", "18446744073709551621"},
	}
	for _, tc := range cases {
		resp := f.call(t, http.MethodPost, "/api/operations", f.worker(t), map[string]any{
			"item_id": "I1", "type": tc.typ, "note": "conteo", "quantity": tc.quantity,
		})
		out := decode[dto.ErrorResponse](t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.typ)
		assert.Equal(t, "VALIDATION", out.Code)
	}

	it, err := f.store.Items().GetByID(context.Background(), "I1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), it.Quantity)
}

func TestAPI_NotaRespetaLongitudConfigurada(t *testing.T) {
	f := newAPI(t)

	resp := f.call(t, http.MethodPost, "/api/operations", f.worker(t), map[string]any{
		"item_id": "I1", "type": "receive", "note": strings.Repeat("ñ", 300), "quantity": 1,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.call(t, http.MethodPost, "/api/operations", f.worker(t), map[string]any{
		"item_id": "I1", "type": "receive", "note": strings.Repeat("ñ", testNoteMax+1), "quantity": 1,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_OperacionSinTokenEs401(t *testing.T) {
	f := newAPI(t)
	resp := f.call(t, http.MethodPost, "/api/operations", "", map[string]any{"item_id": "I1", "type": "receive", "note": "x", "quantity": 1})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_IdempotencyKeyRepetida409(t *testing.T) {
	f := newAPI(t)
	body := map[string]any{"item_id": "I1", "type": "receive", "note": "x", "quantity": 1}

	resp := f.call(t, http.MethodPost, "/api/operations", f.worker(t), body, apphttp.HeaderIdempotencyKey, "k-1")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.call(t, http.MethodPost, "/api/operations", f.worker(t), body, apphttp.HeaderIdempotencyKey, "k-1")
	out := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_REQUEST", out.Code)

	it, _ := f.store.Items().GetByID(context.Background(), "I1")
	assert.Equal(t, int64(11), it.Quantity, "el duplicado no llega al procesador")
}

func TestAPI_IdempotencyKeySeLiberaSiFalla(t *testing.T) {
	f := newAPI(t)
	bad := map[string]any{"item_id": "I1", "type": "ship", "note": "x", "quantity": 99}
	good := map[string]any{"item_id": "I1", "type": "ship", "note": "x", "quantity": 1}

	resp := f.call(t, http.MethodPost, "/api/operations", f.worker(t), bad, apphttp.HeaderIdempotencyKey, "k-2")
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.call(t, http.MethodPost, "/api/operations", f.worker(t), good, apphttp.HeaderIdempotencyKey, "k-2")
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPI_LogSoloAdmin(t *testing.T) {
	f := newAPI(t)
	for _, q := range []float64{1, 2, 3} {
		resp := f.call(t, http.MethodPost, "/api/operations", f.worker(t), map[string]any{"item_id": "I1", "type": "receive", "note": "x", "quantity": q})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := f.call(t, http.MethodGet, "/api/operations/log", f.worker(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.call(t, http.MethodGet, "/api/operations/log?item_id=I1&limit=2", f.admin(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[dto.OperationLogResponse](t, resp)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Page.Limit)
	assert.Equal(t, int64(3), page.Items[0].QuantityDelta, "más reciente primero")
}

func TestAPI_LogXMLConDigest(t *testing.T) {
	f := newAPI(t)
	resp := f.call(t, http.MethodPost, "/api/operations", f.worker(t), map[string]any{"item_id": "I1", "type": "move", "note": "reubicar", "to_location_id": "L2"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.call(t, http.MethodGet, "/api/operations/log.xml", f.admin(t), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/xml")
	assert.True(t, strings.HasPrefix(resp.Header.Get("X-Content-Digest"), "sha-256="))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xml")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<operationLog")
	assert.Contains(t, string(body), "A-001")
	assert.Contains(t, string(body), "Pasillo 2")
}

func TestAPI_LogPDF(t *testing.T) {
	f := newAPI(t)
	resp := f.call(t, http.MethodGet, "/api/operations/log.pdf", f.admin(t), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
}

// ──────────────────────────────────────────────────────────────────────────────
// Ítems, ubicaciones y usuarios
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_ScanExisteYNoExiste(t *testing.T) {
	f := newAPI(t)

	resp := f.call(t, http.MethodGet, "/api/items/scan/A-001", f.worker(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decode[dto.ScanResponse](t, resp)
	assert.Equal(t, dto.ScanStatusExists, found.Status)
	require.NotNil(t, found.Item)
	assert.Equal(t, "I1", found.Item.ID)

	resp = f.call(t, http.MethodGet, "/api/items/scan/Z-999", f.worker(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	missing := decode[dto.ScanResponse](t, resp)
	assert.Equal(t, dto.ScanStatusNotFound, missing.Status)
	assert.Equal(t, "Z-999", missing.ItemCode)
}

func TestAPI_CrearItemYEliminarConCascada(t *testing.T) {
	f := newAPI(t)

	resp := f.call(t, http.MethodPost, "/api/items", f.worker(t), map[string]any{
		"code": "B-1", "name": "Tuerca", "quantity": 4, "location_id": "L2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[dto.ItemResponse](t, resp)
	assert.Equal(t, int64(4), item.Quantity)

	resp = f.call(t, http.MethodDelete, "/api/items/"+item.ID, f.worker(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "tiene la recepción inicial")

	resp = f.call(t, http.MethodDelete, "/api/items/"+item.ID+"?cascade=true", f.worker(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.call(t, http.MethodDelete, "/api/items/"+item.ID+"?cascade=true", f.admin(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.call(t, http.MethodGet, "/api/items/"+item.ID, f.worker(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_UbicacionEnUsoNoSeElimina(t *testing.T) {
	f := newAPI(t)
	resp := f.call(t, http.MethodDelete, "/api/locations/L1", f.worker(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.call(t, http.MethodDelete, "/api/locations/L2", f.worker(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_UsuariosPermisos(t *testing.T) {
	f := newAPI(t)

	resp := f.call(t, http.MethodGet, "/api/users", f.worker(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.call(t, http.MethodGet, "/api/users/me", f.worker(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[dto.UserResponse](t, resp)
	assert.Equal(t, workerTg, me.TgID)

	resp = f.call(t, http.MethodGet, "/api/users/732334353", f.worker(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.call(t, http.MethodGet, "/api/users/abc", f.admin(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	inactive := false
	resp = f.call(t, http.MethodPut, "/api/users/1345214313", f.admin(t), dto.UpdateUserRequest{IsActive: &inactive})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[dto.UserResponse](t, resp)
	assert.False(t, updated.IsActive)

	// un usuario inactivo no puede operar aunque su token siga vigente
	resp = f.call(t, http.MethodPost, "/api/operations", f.worker(t), map[string]any{"item_id": "I1", "type": "receive", "note": "x", "quantity": 1})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ItemsOperadosPorUsuario(t *testing.T) {
	f := newAPI(t)
	require.NoError(t, f.store.Items().Create(context.Background(), &entity.Item{ID: "I2", Code: "B-002", Name: "Tuerca", Quantity: 3, LocationID: "L2"}))

	resp := f.call(t, http.MethodGet, "/api/users/1345214313/items", f.worker(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[dto.ItemListResponse](t, resp).Items)

	for _, body := range []map[string]any{
		{"item_id": "I1", "type": "receive", "note": "camión", "quantity": 2},
		{"item_id": "I2", "type": "ship", "note": "pedido", "quantity": 1},
		{"item_id": "I1", "type": "ship", "note": "pedido", "quantity": 1},
	} {
		resp = f.call(t, http.MethodPost, "/api/operations", f.worker(t), body)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp = f.call(t, http.MethodGet, "/api/users/1345214313/items", f.worker(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.ItemListResponse](t, resp)
	require.Len(t, list.Items, 2, "cada ítem aparece una sola vez")
	codes := []string{list.Items[0].Code, list.Items[1].Code}
	assert.ElementsMatch(t, []string{"A-001", "B-002"}, codes)

	resp = f.call(t, http.MethodGet, "/api/users/1345214313/items?limit=1", f.admin(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[dto.ItemListResponse](t, resp).Items, 1)

	resp = f.call(t, http.MethodGet, "/api/users/732334353/items", f.worker(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.call(t, http.MethodGet, "/api/users/404/items", f.admin(t), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_RequestIDSeRespeta(t *testing.T) {
	f := newAPI(t)
	resp := f.call(t, http.MethodGet, "/api/items", f.worker(t), nil, apphttp.HeaderRequestID, "req-123")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-123", resp.Header.Get(apphttp.HeaderRequestID))
}
