package ports

import (
	"context"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// OperationEventPublisher puerto de salida para notificar operaciones ya confirmadas.
// Se invoca después del commit; un fallo no revierte la operación.
type OperationEventPublisher interface {
	PublishOperationRecorded(ctx context.Context, rec *entity.OperationRecord) error
}

// NoopPublisher descarta los eventos (mensajería deshabilitada).
type NoopPublisher struct{}

// PublishOperationRecorded no hace nada.
func (NoopPublisher) PublishOperationRecorded(context.Context, *entity.OperationRecord) error {
	return nil
}
