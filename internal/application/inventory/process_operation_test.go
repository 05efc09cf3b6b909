package inventory_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/inventory"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
	"github.com/jhoicas/almacen-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

const (
	workerTg   int64 = 1345214313
	adminTg    int64 = 732334353
	inactiveTg int64 = 555
)

type fixture struct {
	store *memory.Store
	uc    *inventory.ProcessOperationUseCase
	pub   *recordingPublisher
	item  *entity.Item
}

type recordingPublisher struct {
	mu   sync.Mutex
	recs []*entity.OperationRecord
	err  error
}

func (p *recordingPublisher) PublishOperationRecorded(_ context.Context, rec *entity.OperationRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, rec)
	return p.err
}

// newFixture: ítem X en L1 con cantidad 10, usuarios worker, admin e inactivo.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()
	for _, l := range []*entity.Location{{ID: "L1", Name: "Pasillo 1"}, {ID: "L2", Name: "Pasillo 2"}} {
		require.NoError(t, s.Locations().Create(ctx, l))
	}
	for _, u := range []*entity.User{
		{ID: "U-worker", ExternalID: workerTg, Role: entity.RoleWorker, IsActive: true},
		{ID: "U-admin", ExternalID: adminTg, Role: entity.RoleAdmin, IsActive: true},
		{ID: "U-off", ExternalID: inactiveTg, Role: entity.RoleWorker, IsActive: false},
	} {
		require.NoError(t, s.Users().Create(ctx, u))
	}
	item := &entity.Item{ID: "X", Code: "X-1", Name: "Caja", Quantity: 10, LocationID: "L1"}
	require.NoError(t, s.Items().Create(ctx, item))

	pub := &recordingPublisher{}
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	uc := inventory.NewProcessOperationUseCase(memory.NewTxRunner(s),
		inventory.WithPublisher(pub),
		inventory.WithNoteMaxLength(256),
		inventory.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	return &fixture{store: s, uc: uc, pub: pub, item: item}
}

func (f *fixture) current(t *testing.T) *entity.Item {
	t.Helper()
	it, err := f.store.Items().GetByID(context.Background(), f.item.ID)
	require.NoError(t, err)
	require.NotNil(t, it)
	return it
}

func (f *fixture) records(t *testing.T) int {
	t.Helper()
	n, err := f.store.Operations().CountByItem(context.Background(), f.item.ID)
	require.NoError(t, err)
	return n
}

func q(n int64) *int64 { return &n }

func op(kind string, quantity *int64) inventory.OperationInput {
	return inventory.OperationInput{ItemID: "X", Kind: kind, Note: "nota", Quantity: quantity}
}

func moveTo(to string) inventory.OperationInput {
	return inventory.OperationInput{ItemID: "X", Kind: "move", Note: "traslado", ToLocationID: to}
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades
// ──────────────────────────────────────────────────────────────────────────────

func TestProcess_ReceiveSuma(t *testing.T) {
	f := newFixture(t)
	rec, err := f.uc.Process(context.Background(), workerTg, op("receive", q(5)))
	require.NoError(t, err)

	assert.Equal(t, int64(15), f.current(t).Quantity)
	assert.Equal(t, entity.OperationReceive, rec.Kind)
	assert.Equal(t, int64(5), rec.QuantityDelta)
	assert.Equal(t, int64(15), rec.ResultingQuantity)
	assert.Equal(t, "U-worker", rec.UserID)
	assert.Nil(t, rec.OnBehalfOfID)
	assert.Equal(t, 1, f.records(t))
}

func TestProcess_InventoryEsIdempotente(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 2; i++ {
		_, err := f.uc.Process(context.Background(), workerTg, op("inventory", q(3)))
		require.NoError(t, err)
		assert.Equal(t, int64(3), f.current(t).Quantity)
	}
	assert.Equal(t, 2, f.records(t))
}

// Escenario: X en L1 con 10 unidades.
func TestProcess_EscenarioCompleto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.uc.Process(ctx, workerTg, op("ship", q(3)))
	require.NoError(t, err)
	assert.Equal(t, entity.OperationShip, rec.Kind)
	assert.Equal(t, int64(7), f.current(t).Quantity)
	assert.Equal(t, 1, f.records(t))

	_, err = f.uc.Process(ctx, workerTg, op("ship", q(100)))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(7), f.current(t).Quantity)
	assert.Equal(t, 1, f.records(t), "un fallo no crea registro")

	rec, err = f.uc.Process(ctx, workerTg, moveTo("L2"))
	require.NoError(t, err)
	assert.Equal(t, entity.OperationMove, rec.Kind)
	assert.Equal(t, "L1", rec.FromLocationID)
	assert.Equal(t, "L2", rec.ResultingLocationID)
	assert.Equal(t, "L2", f.current(t).LocationID)
	assert.Equal(t, 2, f.records(t))

	_, err = f.uc.Process(ctx, workerTg, moveTo("L2"))
	assert.ErrorIs(t, err, domain.ErrAlreadyAtDestination)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "L2", f.current(t).LocationID)
	assert.Equal(t, 2, f.records(t))

	// log más reciente primero
	logUC := inventory.NewOperationLogUseCase(f.store.Operations())
	page, err := logUC.List(ctx, dto.OperationLogRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "move", page.Items[0].Type)
	assert.Equal(t, "ship", page.Items[1].Type)
}

func TestProcess_MoveConOrigenDistintoFalla(t *testing.T) {
	f := newFixture(t)
	in := moveTo("L2")
	in.FromLocationID = "L2"

	_, err := f.uc.Process(context.Background(), workerTg, in)
	assert.ErrorIs(t, err, domain.ErrSourceMismatch)
	assert.Equal(t, "L1", f.current(t).LocationID)
	assert.Zero(t, f.records(t))
}

func TestProcess_MoveDestinoInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Process(context.Background(), workerTg, moveTo("L404"))
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.records(t))
}

func TestProcess_ItemDesconocido(t *testing.T) {
	f := newFixture(t)
	for _, kind := range []string{"receive", "ship", "inventory", "move"} {
		in := op(kind, q(1))
		in.ItemID = "no-existe"
		in.ToLocationID = "L2"
		_, err := f.uc.Process(context.Background(), workerTg, in)
		assert.ErrorIs(t, err, domain.ErrItemNotFound, kind)
	}
	assert.Equal(t, int64(10), f.current(t).Quantity)
	assert.Zero(t, f.records(t))
	assert.Empty(t, f.pub.recs)
}

func TestProcess_UsuarioDesconocidoOInactivo(t *testing.T) {
	f := newFixture(t)
	for _, tg := range []int64{999, inactiveTg} {
		_, err := f.uc.Process(context.Background(), tg, op("receive", q(1)))
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	}
	assert.Equal(t, int64(10), f.current(t).Quantity)
}

func TestProcess_ValidacionesPrevias(t *testing.T) {
	f := newFixture(t)
	long := make([]rune, 257)
	for i := range long {
		long[i] = 'a'
	}
	tests := []struct {
		name string
		in   inventory.OperationInput
		want error
	}{
		{"tipo desconocido", op("transfer", q(1)), domain.ErrUnknownKind},
		{"nota vacía", inventory.OperationInput{ItemID: "X", Kind: "receive", Note: "  ", Quantity: q(1)}, domain.ErrNoteRequired},
		{"nota larga", inventory.OperationInput{ItemID: "X", Kind: "receive", Note: string(long), Quantity: q(1)}, domain.ErrNoteTooLong},
		{"sin cantidad", op("ship", nil), domain.ErrQuantityRequired},
		{"cantidad negativa", op("receive", q(-2)), domain.ErrNegativeQuantity},
		{"move sin destino", moveTo(""), domain.ErrDestinationRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Process(context.Background(), workerTg, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Zero(t, f.records(t))
}

func TestProcess_EnNombreDe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := op("receive", q(1))
	in.OnBehalfOfExternalID = q(workerTg)
	rec, err := f.uc.Process(ctx, adminTg, in)
	require.NoError(t, err)
	assert.Equal(t, "U-admin", rec.UserID)
	require.NotNil(t, rec.OnBehalfOfID)
	assert.Equal(t, "U-worker", *rec.OnBehalfOfID)

	in.OnBehalfOfExternalID = q(adminTg)
	_, err = f.uc.Process(ctx, workerTg, in)
	assert.ErrorIs(t, err, domain.ErrForbidden, "solo un admin actúa en nombre de otro")

	in.OnBehalfOfExternalID = q(inactiveTg)
	_, err = f.uc.Process(ctx, adminTg, in)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Equal(t, 1, f.records(t))
}

func TestProcess_FalloDePublicacionNoRevierte(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker caído")

	rec, err := f.uc.Process(context.Background(), workerTg, op("receive", q(2)))
	require.NoError(t, err)
	assert.Equal(t, int64(12), f.current(t).Quantity)
	require.Len(t, f.pub.recs, 1)
	assert.Equal(t, rec.ID, f.pub.recs[0].ID)
}

// blockingPublisher espera hasta que venza el contexto, como un broker que no responde.
type blockingPublisher struct {
	hadDeadline bool
}

func (p *blockingPublisher) PublishOperationRecorded(ctx context.Context, _ *entity.OperationRecord) error {
	_, p.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func TestProcess_PublicacionLentaNoBloqueaLaRespuesta(t *testing.T) {
	f := newFixture(t)
	pub := &blockingPublisher{}
	uc := inventory.NewProcessOperationUseCase(memory.NewTxRunner(f.store),
		inventory.WithPublisher(pub),
		inventory.WithPublishTimeout(20*time.Millisecond),
	)

	done := make(chan error, 1)
	go func() {
		_, err := uc.Process(context.Background(), workerTg, op("receive", q(1)))
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Process quedó bloqueado esperando al publicador")
	}
	assert.True(t, pub.hadDeadline)
	assert.Equal(t, int64(11), f.current(t).Quantity)
	assert.Equal(t, 1, f.records(t))
}

func TestProcess_CadaExitoAgregaExactamenteUnRegistro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inputs := []inventory.OperationInput{
		op("receive", q(4)), op("ship", q(2)), op("inventory", q(8)), moveTo("L2"), op("ship", q(50)), moveTo("L1"),
	}
	before := f.records(t)
	for _, in := range inputs {
		_, err := f.uc.Process(ctx, workerTg, in)
		after := f.records(t)
		if err != nil {
			assert.Equal(t, before, after)
		} else {
			assert.Equal(t, before+1, after)
		}
		before = after
	}
	assert.Equal(t, 5, before)
}

// Envíos concurrentes sobre el mismo ítem no pierden actualizaciones ni dejan stock negativo.
func TestProcess_ConcurrenciaMismoItem(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.uc.Process(context.Background(), workerTg, op("ship", q(1))); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, ok)
	assert.Equal(t, int64(0), f.current(t).Quantity)
	assert.Equal(t, 10, f.records(t))
}

// ──────────────────────────────────────────────────────────────────────────────
// Adaptador desde request
// ──────────────────────────────────────────────────────────────────────────────

func TestProcessFromRequest_TruncaCantidadDecimal(t *testing.T) {
	f := newFixture(t)
	qty := decimal.RequireFromString("2.9")
	to := "L2"
	out, err := f.uc.ProcessFromRequest(context.Background(), workerTg, dto.CreateOperationRequest{
		ItemID: "X", Type: "receive", Note: "palet", Quantity: &qty, ToLocationID: &to,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.QuantityDelta)
	assert.Equal(t, int64(12), out.ResultingQuantity)
	assert.Equal(t, "L1", out.ResultingLocationID, "receive ignora la ubicación destino")
}

func TestProcessFromRequest_CantidadFueraDeRango(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	send := func(kind, quantity string) error {
		qty := decimal.RequireFromString(quantity)
		_, err := f.uc.ProcessFromRequest(ctx, workerTg, dto.CreateOperationRequest{
			ItemID: "X", Type: kind, Note: "conteo", Quantity: &qty,
		})
		return err
	}

	err := send("receive", decimal.NewFromInt(math.MaxInt64).String())
	assert.ErrorIs(t, err, domain.ErrQuantityOutOfRange)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = send("inventory", "18446744073709551621")
	assert.ErrorIs(t, err, domain.ErrQuantityOutOfRange)

	err = send("ship", "-18446744073709551621")
	assert.ErrorIs(t, err, domain.ErrNegativeQuantity)

	assert.Equal(t, int64(10), f.current(t).Quantity)
	assert.Equal(t, 0, f.records(t))
	assert.Empty(t, f.pub.recs)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transacción explícita
// ──────────────────────────────────────────────────────────────────────────────

// failingAppendRunner envuelve el runner real y hace fallar Append después de Update.
type failingAppendRunner struct {
	inner inventory.TxRunner
}

type failingOps struct{ repository.OperationRepository }

func (failingOps) Append(context.Context, *entity.OperationRecord) error {
	return errors.New("disco lleno")
}

func (r failingAppendRunner) Run(ctx context.Context, fn func(repository.ItemRepository, repository.LocationRepository, repository.UserRepository, repository.OperationRepository) error) error {
	return r.inner.Run(ctx, func(i repository.ItemRepository, l repository.LocationRepository, u repository.UserRepository, o repository.OperationRepository) error {
		return fn(i, l, u, failingOps{o})
	})
}

func TestProcess_FalloAlAgregarRevierteMutacion(t *testing.T) {
	f := newFixture(t)
	uc := inventory.NewProcessOperationUseCase(failingAppendRunner{inner: memory.NewTxRunner(f.store)})

	_, err := uc.Process(context.Background(), workerTg, op("receive", q(5)))
	require.Error(t, err)
	assert.Equal(t, int64(10), f.current(t).Quantity, "el ítem no debe quedar modificado")
	assert.Zero(t, f.records(t))
}
