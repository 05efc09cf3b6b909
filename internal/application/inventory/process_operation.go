package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/almacen-api/internal/application/ports"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/inventory"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

const tracerName = "almacen-api/inventory"

// DefaultNoteMaxLength longitud máxima de la nota si no se configura otra.
const DefaultNoteMaxLength = 256

// DefaultPublishTimeout plazo para publicar el evento después del commit.
const DefaultPublishTimeout = 2 * time.Second

// ProcessOperationUseCase valida y aplica una operación sobre un ítem y agrega
// exactamente un registro al log, todo dentro de una única transacción.
type ProcessOperationUseCase struct {
	txRunner      TxRunner
	publisher     ports.OperationEventPublisher
	noteMaxLength int
	pubTimeout    time.Duration
	now           func() time.Time
	tracer        trace.Tracer
}

// Option configura el caso de uso.
type Option func(*ProcessOperationUseCase)

// WithPublisher publica OperationRecorded después de cada commit.
func WithPublisher(p ports.OperationEventPublisher) Option {
	return func(uc *ProcessOperationUseCase) {
		if p != nil {
			uc.publisher = p
		}
	}
}

// WithNoteMaxLength fija la longitud máxima de la nota (en runas).
func WithNoteMaxLength(n int) Option {
	return func(uc *ProcessOperationUseCase) {
		if n > 0 {
			uc.noteMaxLength = n
		}
	}
}

// WithPublishTimeout acota la espera del publicador; la respuesta no depende del broker.
func WithPublishTimeout(d time.Duration) Option {
	return func(uc *ProcessOperationUseCase) {
		if d > 0 {
			uc.pubTimeout = d
		}
	}
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(uc *ProcessOperationUseCase) { uc.now = now }
}

// NewProcessOperationUseCase construye el caso de uso.
func NewProcessOperationUseCase(txRunner TxRunner, opts ...Option) *ProcessOperationUseCase {
	uc := &ProcessOperationUseCase{
		txRunner:      txRunner,
		publisher:     ports.NoopPublisher{},
		noteMaxLength: DefaultNoteMaxLength,
		pubTimeout:    DefaultPublishTimeout,
		now:           time.Now,
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// OperationInput solicitud ya adaptada desde la capa de transporte.
// Quantity es nil cuando no se envió; las ubicaciones vacías significan "no indicado".
type OperationInput struct {
	ItemID               string
	Kind                 string
	Note                 string
	Quantity             *int64
	FromLocationID       string
	ToLocationID         string
	OnBehalfOfExternalID *int64
}

// Process aplica la operación en nombre del usuario con identidad externa actingExternalID.
// Ante cualquier error no se muta el ítem ni se crea registro.
func (uc *ProcessOperationUseCase) Process(ctx context.Context, actingExternalID int64, in OperationInput) (*entity.OperationRecord, error) {
	ctx, span := uc.tracer.Start(ctx, "inventory.ProcessOperation")
	defer span.End()
	span.SetAttributes(
		attribute.String("operation.kind", in.Kind),
		attribute.String("item.id", in.ItemID),
		attribute.Int64("user.external_id", actingExternalID),
	)

	rec, err := uc.process(ctx, actingExternalID, in)
	log := zerolog.Ctx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).
			Str("kind", in.Kind).
			Str("item_id", in.ItemID).
			Int64("user_external_id", actingExternalID).
			Msg("operación rechazada")
		return nil, err
	}
	span.SetAttributes(attribute.String("operation.id", rec.ID))
	span.SetStatus(codes.Ok, "operación registrada")

	log.Info().
		Str("operation_id", rec.ID).
		Str("kind", string(rec.Kind)).
		Str("item_id", rec.ItemID).
		Str("user_id", rec.UserID).
		Int64("delta", rec.QuantityDelta).
		Int64("resulting_quantity", rec.ResultingQuantity).
		Msg("operación registrada")

	uc.publish(ctx, rec)
	return rec, nil
}

// publish entrega el evento con un plazo propio; un fallo solo se registra.
func (uc *ProcessOperationUseCase) publish(ctx context.Context, rec *entity.OperationRecord) {
	pubCtx, cancel := context.WithTimeout(ctx, uc.pubTimeout)
	defer cancel()
	if err := uc.publisher.PublishOperationRecorded(pubCtx, rec); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("operation_id", rec.ID).Msg("no se pudo publicar el evento de operación")
	}
}

func (uc *ProcessOperationUseCase) process(ctx context.Context, actingExternalID int64, in OperationInput) (*entity.OperationRecord, error) {
	kind, err := inventory.ParseKind(in.Kind)
	if err != nil {
		return nil, err
	}
	transition, err := inventory.TransitionFor(kind)
	if err != nil {
		return nil, err
	}
	note, err := inventory.ValidateNote(in.Note, uc.noteMaxLength)
	if err != nil {
		return nil, err
	}
	if err := inventory.ValidateQuantity(kind, in.Quantity); err != nil {
		return nil, err
	}

	var rec *entity.OperationRecord
	err = uc.txRunner.Run(ctx, func(
		itemRepo repository.ItemRepository,
		locationRepo repository.LocationRepository,
		userRepo repository.UserRepository,
		opRepo repository.OperationRepository,
	) error {
		user, err := activeUser(ctx, userRepo, actingExternalID)
		if err != nil {
			return err
		}
		var onBehalfOf *string
		if in.OnBehalfOfExternalID != nil {
			if !user.IsAdmin() {
				return domain.ErrForbidden
			}
			other, err := activeUser(ctx, userRepo, *in.OnBehalfOfExternalID)
			if err != nil {
				return err
			}
			onBehalfOf = &other.ID
		}

		item, err := itemRepo.GetForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}

		before := inventory.State{Quantity: item.Quantity, LocationID: item.LocationID}
		res, err := transition.Apply(ctx, before, inventory.Request{
			Quantity:       in.Quantity,
			FromLocationID: in.FromLocationID,
			ToLocationID:   in.ToLocationID,
		}, locationChecker{repo: locationRepo})
		if err != nil {
			return err
		}

		item.Quantity = res.State.Quantity
		item.LocationID = res.State.LocationID
		if err := itemRepo.Update(ctx, item); err != nil {
			return err
		}

		rec = &entity.OperationRecord{
			ID:                  uuid.New().String(),
			ItemID:              item.ID,
			UserID:              user.ID,
			OnBehalfOfID:        onBehalfOf,
			Kind:                kind,
			Note:                note,
			QuantityDelta:       res.Delta,
			ResultingQuantity:   res.State.Quantity,
			FromLocationID:      before.LocationID,
			ResultingLocationID: res.State.LocationID,
			CreatedAt:           uc.now(),
		}
		return opRepo.Append(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func activeUser(ctx context.Context, repo repository.UserRepository, externalID int64) (*entity.User, error) {
	user, err := repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// locationChecker adapta LocationRepository a inventory.LocationChecker.
type locationChecker struct {
	repo repository.LocationRepository
}

func (c locationChecker) LocationExists(ctx context.Context, id string) (bool, error) {
	loc, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return loc != nil, nil
}
