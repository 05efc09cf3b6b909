// Package memory implementa los puertos de persistencia en memoria, con
// transacciones que trabajan sobre una copia del estado y solo la publican en Commit.
// Se usa en tests y con STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/almacen-api/internal/application/inventory"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

type state struct {
	items     map[string]entity.Item
	locations map[string]entity.Location
	users     map[string]entity.User
	ops       []entity.OperationRecord // orden de inserción
}

func newState() *state {
	return &state{
		items:     map[string]entity.Item{},
		locations: map[string]entity.Location{},
		users:     map[string]entity.User{},
	}
}

func (s *state) clone() *state {
	c := &state{
		items:     make(map[string]entity.Item, len(s.items)),
		locations: make(map[string]entity.Location, len(s.locations)),
		users:     make(map[string]entity.User, len(s.users)),
		ops:       make([]entity.OperationRecord, len(s.ops)),
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.users {
		c.users[k] = copyUser(v)
	}
	for i, op := range s.ops {
		c.ops[i] = copyRecord(op)
	}
	return c
}

// accessor da acceso al estado: directo sobre el store o sobre la copia de una tx.
type accessor interface {
	read(fn func(*state) error) error
	write(fn func(*state) error) error
}

// Store almacén en memoria. txMu serializa escritores (transacciones y escrituras sueltas);
// mu protege el puntero al estado publicado.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) read(fn func(*state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// write aplica fn sobre una copia y la publica solo si fn no falla.
func (s *Store) write(fn func(*state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()
	if err := fn(work); err != nil {
		return err
	}
	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

// txState estado privado de una transacción en curso.
type txState struct {
	st *state
}

func (t *txState) read(fn func(*state) error) error  { return fn(t.st) }
func (t *txState) write(fn func(*state) error) error { return fn(t.st) }

// Items devuelve el repositorio de ítems fuera de transacción.
func (s *Store) Items() *ItemRepo { return &ItemRepo{a: s} }

// Locations devuelve el repositorio de ubicaciones fuera de transacción.
func (s *Store) Locations() *LocationRepo { return &LocationRepo{a: s} }

// Users devuelve el repositorio de usuarios fuera de transacción.
func (s *Store) Users() *UserRepo { return &UserRepo{a: s} }

// Operations devuelve el registro de operaciones fuera de transacción.
func (s *Store) Operations() *OperationRepo { return &OperationRepo{a: s} }

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks con repositorios atados a una copia privada del estado.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run toma el bloqueo de escritura, ejecuta fn sobre una copia y la publica solo si fn
// devuelve nil y el contexto sigue vigente. Un panic deja el estado publicado intacto.
func (r *TxRunner) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	locationRepo repository.LocationRepository,
	userRepo repository.UserRepository,
	opRepo repository.OperationRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	r.store.mu.RLock()
	tx := &txState{st: r.store.st.clone()}
	r.store.mu.RUnlock()

	if err := fn(&ItemRepo{a: tx}, &LocationRepo{a: tx}, &UserRepo{a: tx}, &OperationRepo{a: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.store.mu.Lock()
	r.store.st = tx.st
	r.store.mu.Unlock()
	return nil
}

func copyUser(u entity.User) entity.User {
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return u
}

func copyRecord(r entity.OperationRecord) entity.OperationRecord {
	if r.OnBehalfOfID != nil {
		id := *r.OnBehalfOfID
		r.OnBehalfOfID = &id
	}
	return r
}
