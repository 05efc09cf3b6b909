package entity

import "time"

// OperationKind tipo de operación de inventario.
type OperationKind string

// Tipos de operación.
const (
	OperationReceive   OperationKind = "receive"   // entrada
	OperationShip      OperationKind = "ship"      // salida
	OperationMove      OperationKind = "move"      // traslado de ubicación
	OperationInventory OperationKind = "inventory" // conteo físico (valor absoluto)
)

// OperationKinds devuelve todos los tipos declarados.
func OperationKinds() []OperationKind {
	return []OperationKind{OperationReceive, OperationShip, OperationMove, OperationInventory}
}

// OperationRecord entrada inmutable del registro de operaciones.
// UserID es quien ejecuta; OnBehalfOfID, si existe, es el usuario en cuyo nombre se actuó.
type OperationRecord struct {
	ID                  string
	ItemID              string
	UserID              string
	OnBehalfOfID        *string
	Kind                OperationKind
	Note                string
	QuantityDelta       int64
	ResultingQuantity   int64
	FromLocationID      string
	ResultingLocationID string
	CreatedAt           time.Time
}
