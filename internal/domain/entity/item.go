package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item representa una unidad de stock rastreable con cantidad y una única ubicación.
// Quantity y LocationID solo cambian a través de operaciones.
type Item struct {
	ID          string
	Code        string // único
	Name        string
	Weight      decimal.Decimal
	Quantity    int64
	LocationID  string
	Description string
	CreatedAt   time.Time
}
