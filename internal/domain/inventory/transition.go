package inventory

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// State es la parte del ítem que una operación puede modificar.
type State struct {
	Quantity   int64
	LocationID string
}

// Request datos de una solicitud ya normalizada (cantidad entera, nota recortada).
type Request struct {
	Quantity       *int64
	FromLocationID string // vacío = no indicado
	ToLocationID   string // vacío = no indicado
}

// Result estado resultante y delta de cantidad aplicado.
type Result struct {
	State State
	Delta int64
}

// LocationChecker confirma la existencia de una ubicación destino.
type LocationChecker interface {
	LocationExists(ctx context.Context, id string) (bool, error)
}

// Transition regla de transición para un tipo de operación.
// Apply no muta nada: valida todas las precondiciones y devuelve el estado nuevo.
type Transition interface {
	Kind() entity.OperationKind
	Apply(ctx context.Context, cur State, req Request, locs LocationChecker) (Result, error)
}

var transitions = map[entity.OperationKind]Transition{
	entity.OperationReceive:   receiveTransition{},
	entity.OperationShip:      shipTransition{},
	entity.OperationInventory: inventoryTransition{},
	entity.OperationMove:      moveTransition{},
}

// ParseKind convierte el texto recibido en un tipo de operación conocido.
func ParseKind(s string) (entity.OperationKind, error) {
	k := entity.OperationKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[k]; !ok {
		return "", domain.ErrUnknownKind
	}
	return k, nil
}

// TransitionFor devuelve la regla del tipo indicado.
func TransitionFor(kind entity.OperationKind) (Transition, error) {
	t, ok := transitions[kind]
	if !ok {
		return nil, domain.ErrUnknownKind
	}
	return t, nil
}

// ValidateNote recorta la nota y verifica que no esté vacía ni exceda maxLen runas.
func ValidateNote(note string, maxLen int) (string, error) {
	n := strings.TrimSpace(note)
	if n == "" {
		return "", domain.ErrNoteRequired
	}
	if maxLen > 0 && utf8.RuneCountInString(n) > maxLen {
		return "", domain.ErrNoteTooLong
	}
	return n, nil
}

// ValidateQuantity verifica la cantidad para los tipos que la requieren.
func ValidateQuantity(kind entity.OperationKind, q *int64) error {
	if kind == entity.OperationMove {
		return nil
	}
	if q == nil {
		return domain.ErrQuantityRequired
	}
	if *q < 0 {
		return domain.ErrNegativeQuantity
	}
	return nil
}

type receiveTransition struct{}

func (receiveTransition) Kind() entity.OperationKind { return entity.OperationReceive }

func (receiveTransition) Apply(_ context.Context, cur State, req Request, _ LocationChecker) (Result, error) {
	if err := ValidateQuantity(entity.OperationReceive, req.Quantity); err != nil {
		return Result{}, err
	}
	a := *req.Quantity
	if a > math.MaxInt64-cur.Quantity {
		return Result{}, domain.ErrQuantityOutOfRange
	}
	return Result{State: State{Quantity: cur.Quantity + a, LocationID: cur.LocationID}, Delta: a}, nil
}

type shipTransition struct{}

func (shipTransition) Kind() entity.OperationKind { return entity.OperationShip }

func (shipTransition) Apply(_ context.Context, cur State, req Request, _ LocationChecker) (Result, error) {
	if err := ValidateQuantity(entity.OperationShip, req.Quantity); err != nil {
		return Result{}, err
	}
	a := *req.Quantity
	if cur.Quantity < a {
		return Result{}, domain.ErrInsufficientStock
	}
	return Result{State: State{Quantity: cur.Quantity - a, LocationID: cur.LocationID}, Delta: -a}, nil
}

type inventoryTransition struct{}

func (inventoryTransition) Kind() entity.OperationKind { return entity.OperationInventory }

// Apply fija la cantidad absoluta contada.
func (inventoryTransition) Apply(_ context.Context, cur State, req Request, _ LocationChecker) (Result, error) {
	if err := ValidateQuantity(entity.OperationInventory, req.Quantity); err != nil {
		return Result{}, err
	}
	a := *req.Quantity
	return Result{State: State{Quantity: a, LocationID: cur.LocationID}, Delta: a - cur.Quantity}, nil
}

type moveTransition struct{}

func (moveTransition) Kind() entity.OperationKind { return entity.OperationMove }

// Apply valida destino y origen en orden y solo entonces consulta si el destino existe.
func (moveTransition) Apply(ctx context.Context, cur State, req Request, locs LocationChecker) (Result, error) {
	if req.ToLocationID == "" {
		return Result{}, domain.ErrDestinationRequired
	}
	if req.ToLocationID == cur.LocationID {
		return Result{}, domain.ErrAlreadyAtDestination
	}
	if req.FromLocationID != "" && req.FromLocationID != cur.LocationID {
		return Result{}, domain.ErrSourceMismatch
	}
	ok, err := locs.LocationExists(ctx, req.ToLocationID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, domain.ErrLocationNotFound
	}
	return Result{State: State{Quantity: cur.Quantity, LocationID: req.ToLocationID}}, nil
}
