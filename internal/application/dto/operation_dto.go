package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOperationRequest entrada para procesar una operación sobre un ítem.
// Quantity es obligatoria en receive/ship/inventory; las ubicaciones solo aplican a move.
// La longitud máxima de Note la fija OPERATION_NOTE_MAX_LENGTH en el procesador.
type CreateOperationRequest struct {
	ItemID         string           `json:"item_id" validate:"required,uuid"`
	Type           string           `json:"type" validate:"required,oneof=receive ship move inventory"`
	Note           string           `json:"note" validate:"required"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	FromLocationID *string          `json:"from_location_id,omitempty"`
	ToLocationID   *string          `json:"to_location_id,omitempty"`
	OnBehalfOfTgID *int64           `json:"on_behalf_of_tg_id,omitempty"`
}

// OperationResponse salida de un registro de operación.
type OperationResponse struct {
	ID                  string    `json:"id"`
	ItemID              string    `json:"item_id"`
	UserID              string    `json:"user_id"`
	OnBehalfOfID        *string   `json:"on_behalf_of_id,omitempty"`
	Type                string    `json:"type"`
	Note                string    `json:"note"`
	QuantityDelta       int64     `json:"quantity_delta"`
	ResultingQuantity   int64     `json:"resulting_quantity"`
	FromLocationID      string    `json:"from_location_id"`
	ResultingLocationID string    `json:"resulting_location_id"`
	CreatedAt           time.Time `json:"created_at"`
}

// OperationLogRequest filtros y paginación del registro de operaciones.
type OperationLogRequest struct {
	ItemID string `query:"item_id"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

// OperationLogResponse página del registro (más reciente primero).
type OperationLogResponse struct {
	Items []OperationResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}

// OperationRecordedEvent evento publicado tras confirmar una operación.
type OperationRecordedEvent struct {
	EventType  string            `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Operation  OperationResponse `json:"operation"`
}
