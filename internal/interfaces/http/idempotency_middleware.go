package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/ports"
)

// HeaderIdempotencyKey cabecera opcional para reintentos seguros de POST /operations.
const HeaderIdempotencyKey = "Idempotency-Key"

// RequireIdempotency reserva la Idempotency-Key (si viene) antes de ejecutar el handler.
//
// Comportamiento:
//   - sin cabecera → pasa sin reservar.
//   - 409 DUPLICATE_REQUEST → la clave ya fue usada por una petición aceptada o en curso.
//   - 503 IDEMPOTENCY_UNAVAILABLE → no se pudo consultar el almacén de claves.
//   - si el handler falla o responde >= 400, la clave se libera para permitir el reintento.
func RequireIdempotency(store ports.IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderIdempotencyKey)
		if key == "" {
			return c.Next()
		}
		// la clave se aísla por usuario
		scoped := GetUserID(c) + ":" + key
		ctx := c.UserContext()

		ok, err := store.Reserve(ctx, scoped)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("reserva de clave de idempotencia fallida")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "IDEMPOTENCY_UNAVAILABLE",
				Message: "no se pudo verificar la clave de idempotencia, intente más tarde",
			})
		}
		if !ok {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code:    "DUPLICATE_REQUEST",
				Message: "la petición con esta Idempotency-Key ya fue procesada",
			})
		}

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			if rerr := store.Release(ctx, scoped); rerr != nil {
				zerolog.Ctx(ctx).Warn().Err(rerr).Msg("no se pudo liberar la clave de idempotencia")
			}
		}
		return err
	}
}
