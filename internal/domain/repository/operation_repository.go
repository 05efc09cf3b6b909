package repository

import (
	"context"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// OperationFilter filtros del listado del registro de operaciones.
type OperationFilter struct {
	ItemID string // vacío = todos
	Limit  int
	Offset int
}

// OperationRepository registro de operaciones de solo inserción.
// List ordena por fecha de creación descendente.
type OperationRepository interface {
	Append(ctx context.Context, rec *entity.OperationRecord) error
	List(ctx context.Context, filter OperationFilter) ([]*entity.OperationRecord, error)
	CountByItem(ctx context.Context, itemID string) (int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// ItemIDsByUser ítems distintos operados por el usuario, del uso más reciente al más antiguo.
	ItemIDsByUser(ctx context.Context, userID string, limit, offset int) ([]string, error)
	// DeleteByItem solo se usa en el borrado administrativo en cascada de un ítem.
	DeleteByItem(ctx context.Context, itemID string) error
}
