package inventory

import (
	"context"

	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Commit solo si fn devuelve nil; en cualquier otra salida (error, panic, ctx cancelado) hace Rollback.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.ItemRepository,
		locationRepo repository.LocationRepository,
		userRepo repository.UserRepository,
		opRepo repository.OperationRepository,
	) error) error
}
