package ports

import "context"

// IdempotencyStore reserva claves de idempotencia por un tiempo limitado.
type IdempotencyStore interface {
	// Reserve devuelve false si la clave ya estaba reservada.
	Reserve(ctx context.Context, key string) (bool, error)
	// Release libera una clave para permitir el reintento tras un fallo.
	Release(ctx context.Context, key string) error
}
