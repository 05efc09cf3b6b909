package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemRequest entrada para crear un ítem; registra una recepción inicial por Quantity.
type CreateItemRequest struct {
	Code        string          `json:"code" validate:"required,min=1,max=100"`
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Weight      decimal.Decimal `json:"weight"`
	Quantity    decimal.Decimal `json:"quantity"`
	LocationID  string          `json:"location_id" validate:"required,uuid"`
	Description string          `json:"description"`
}

// UpdateItemRequest entrada para actualizar un ítem (sin cantidad ni ubicación).
type UpdateItemRequest struct {
	Code        *string          `json:"code" validate:"omitempty,min=1,max=100"`
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Weight      *decimal.Decimal `json:"weight"`
	Description *string          `json:"description"`
}

// ItemResponse salida de un ítem.
type ItemResponse struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Weight      decimal.Decimal `json:"weight"`
	Quantity    int64           `json:"quantity"`
	LocationID  string          `json:"location_id"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ItemListResponse lista paginada de ítems.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// Estados de ScanResponse.
const (
	ScanStatusExists   = "exists"
	ScanStatusNotFound = "not_found"
)

// ScanResponse resultado de escanear un código.
type ScanResponse struct {
	Status   string        `json:"status"`
	Item     *ItemResponse `json:"item,omitempty"`
	ItemCode string        `json:"item_code,omitempty"`
}
