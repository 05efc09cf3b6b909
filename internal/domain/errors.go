package domain

import (
	"errors"
	"fmt"
)

// Tipos de error de dominio. Los errores concretos envuelven uno de estos
// para que las capas externas clasifiquen con errors.Is.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrValidation        = errors.New("datos inválidos")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
)

// No encontrados.
var (
	ErrItemNotFound     = fmt.Errorf("%w: ítem", ErrNotFound)
	ErrLocationNotFound = fmt.Errorf("%w: ubicación", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("%w: usuario inexistente o inactivo", ErrNotFound)
)

// Validación de solicitudes de operación.
var (
	ErrUnknownKind          = fmt.Errorf("%w: tipo de operación desconocido", ErrValidation)
	ErrNoteRequired         = fmt.Errorf("%w: la nota es obligatoria", ErrValidation)
	ErrNoteTooLong          = fmt.Errorf("%w: la nota excede la longitud máxima", ErrValidation)
	ErrQuantityRequired     = fmt.Errorf("%w: la cantidad es obligatoria", ErrValidation)
	ErrNegativeQuantity     = fmt.Errorf("%w: la cantidad no puede ser negativa", ErrValidation)
	ErrQuantityOutOfRange   = fmt.Errorf("%w: la cantidad excede el máximo permitido", ErrValidation)
	ErrDestinationRequired  = fmt.Errorf("%w: la ubicación destino es obligatoria", ErrValidation)
	ErrAlreadyAtDestination = fmt.Errorf("%w: el ítem ya está en la ubicación destino", ErrValidation)
	ErrSourceMismatch       = fmt.Errorf("%w: la ubicación origen no coincide con la actual", ErrValidation)
	ErrInvalidLocation      = fmt.Errorf("%w: la ubicación indicada no existe", ErrValidation)
)

// Conflictos de unicidad e integridad referencial.
var (
	ErrItemCodeExists     = fmt.Errorf("%w: ya existe un ítem con ese código", ErrConflict)
	ErrLocationNameExists = fmt.Errorf("%w: ya existe una ubicación con ese nombre", ErrConflict)
	ErrUserExists         = fmt.Errorf("%w: el usuario ya está registrado", ErrConflict)
	ErrItemHasOperations  = fmt.Errorf("%w: el ítem tiene operaciones registradas", ErrConflict)
	ErrLocationInUse      = fmt.Errorf("%w: la ubicación tiene ítems asignados", ErrConflict)
	ErrUserHasOperations  = fmt.Errorf("%w: el usuario tiene operaciones registradas", ErrConflict)
)
