package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

var (
	_ repository.ItemRepository      = (*ItemRepo)(nil)
	_ repository.LocationRepository  = (*LocationRepo)(nil)
	_ repository.UserRepository      = (*UserRepo)(nil)
	_ repository.OperationRepository = (*OperationRepo)(nil)
)

// ── ítems ─────────────────────────────────────────────────────────────────────

// ItemRepo implementación en memoria de ItemRepository.
type ItemRepo struct {
	a accessor
}

// Create inserta un ítem; el código es único y la ubicación debe existir.
func (r *ItemRepo) Create(_ context.Context, item *entity.Item) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.items[item.ID]; ok {
			return fmt.Errorf("insert item: id duplicado %s", item.ID)
		}
		for _, it := range s.items {
			if it.Code == item.Code {
				return domain.ErrItemCodeExists
			}
		}
		if _, ok := s.locations[item.LocationID]; !ok {
			return fmt.Errorf("insert item: %w", domain.ErrInvalidLocation)
		}
		s.items[item.ID] = *item
		return nil
	})
}

// GetByID obtiene un ítem por ID; (nil, nil) si no existe.
func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	var out *entity.Item
	err := r.a.read(func(s *state) error {
		if it, ok := s.items[id]; ok {
			out = &it
		}
		return nil
	})
	return out, err
}

// GetForUpdate equivale a GetByID: dentro de una tx el bloqueo de escritura ya es exclusivo.
func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	return r.GetByID(ctx, id)
}

// GetByCode obtiene un ítem por código.
func (r *ItemRepo) GetByCode(_ context.Context, code string) (*entity.Item, error) {
	var out *entity.Item
	err := r.a.read(func(s *state) error {
		for _, it := range s.items {
			if it.Code == code {
				it := it
				out = &it
				return nil
			}
		}
		return nil
	})
	return out, err
}

// Update reemplaza el ítem completo.
func (r *ItemRepo) Update(_ context.Context, item *entity.Item) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.items[item.ID]; !ok {
			return domain.ErrItemNotFound
		}
		for id, it := range s.items {
			if id != item.ID && it.Code == item.Code {
				return domain.ErrItemCodeExists
			}
		}
		if _, ok := s.locations[item.LocationID]; !ok {
			return fmt.Errorf("update item: %w", domain.ErrInvalidLocation)
		}
		s.items[item.ID] = *item
		return nil
	})
}

// List lista ítems ordenados por fecha de creación descendente.
func (r *ItemRepo) List(_ context.Context, limit, offset int) ([]*entity.Item, error) {
	var list []*entity.Item
	err := r.a.read(func(s *state) error {
		all := make([]entity.Item, 0, len(s.items))
		for _, it := range s.items {
			all = append(all, it)
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].ID < all[j].ID
			}
			return all[i].CreatedAt.After(all[j].CreatedAt)
		})
		for _, it := range page(all, limit, offset) {
			it := it
			list = append(list, &it)
		}
		return nil
	})
	return list, err
}

// CountByLocation cuenta los ítems asignados a una ubicación.
func (r *ItemRepo) CountByLocation(_ context.Context, locationID string) (int, error) {
	n := 0
	err := r.a.read(func(s *state) error {
		for _, it := range s.items {
			if it.LocationID == locationID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// Delete elimina el ítem y, como la FK de la base, sus operaciones.
func (r *ItemRepo) Delete(_ context.Context, id string) error {
	return r.a.write(func(s *state) error {
		delete(s.items, id)
		s.ops = filterOps(s.ops, func(op entity.OperationRecord) bool { return op.ItemID != id })
		return nil
	})
}

// ── ubicaciones ───────────────────────────────────────────────────────────────

// LocationRepo implementación en memoria de LocationRepository.
type LocationRepo struct {
	a accessor
}

// Create inserta una ubicación con nombre único.
func (r *LocationRepo) Create(_ context.Context, loc *entity.Location) error {
	return r.a.write(func(s *state) error {
		for _, l := range s.locations {
			if l.Name == loc.Name {
				return domain.ErrLocationNameExists
			}
		}
		s.locations[loc.ID] = *loc
		return nil
	})
}

// GetByID obtiene una ubicación por ID.
func (r *LocationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	var out *entity.Location
	err := r.a.read(func(s *state) error {
		if l, ok := s.locations[id]; ok {
			out = &l
		}
		return nil
	})
	return out, err
}

// GetByName obtiene una ubicación por nombre.
func (r *LocationRepo) GetByName(_ context.Context, name string) (*entity.Location, error) {
	var out *entity.Location
	err := r.a.read(func(s *state) error {
		for _, l := range s.locations {
			if l.Name == name {
				l := l
				out = &l
				return nil
			}
		}
		return nil
	})
	return out, err
}

// Update reemplaza la ubicación.
func (r *LocationRepo) Update(_ context.Context, loc *entity.Location) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.locations[loc.ID]; !ok {
			return domain.ErrLocationNotFound
		}
		for id, l := range s.locations {
			if id != loc.ID && l.Name == loc.Name {
				return domain.ErrLocationNameExists
			}
		}
		s.locations[loc.ID] = *loc
		return nil
	})
}

// List lista ubicaciones por nombre.
func (r *LocationRepo) List(_ context.Context, limit, offset int) ([]*entity.Location, error) {
	var list []*entity.Location
	err := r.a.read(func(s *state) error {
		all := make([]entity.Location, 0, len(s.locations))
		for _, l := range s.locations {
			all = append(all, l)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
		for _, l := range page(all, limit, offset) {
			l := l
			list = append(list, &l)
		}
		return nil
	})
	return list, err
}

// Delete elimina la ubicación; falla si algún ítem la referencia (FK RESTRICT).
func (r *LocationRepo) Delete(_ context.Context, id string) error {
	return r.a.write(func(s *state) error {
		for _, it := range s.items {
			if it.LocationID == id {
				return domain.ErrLocationInUse
			}
		}
		delete(s.locations, id)
		return nil
	})
}

// ── usuarios ──────────────────────────────────────────────────────────────────

// UserRepo implementación en memoria de UserRepository.
type UserRepo struct {
	a accessor
}

// Create inserta un usuario con identidad externa única.
func (r *UserRepo) Create(_ context.Context, user *entity.User) error {
	return r.a.write(func(s *state) error {
		for _, u := range s.users {
			if u.ExternalID == user.ExternalID {
				return domain.ErrUserExists
			}
		}
		s.users[user.ID] = copyUser(*user)
		return nil
	})
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.a.read(func(s *state) error {
		if u, ok := s.users[id]; ok {
			u = copyUser(u)
			out = &u
		}
		return nil
	})
	return out, err
}

// GetByExternalID obtiene un usuario por su identidad externa.
func (r *UserRepo) GetByExternalID(_ context.Context, externalID int64) (*entity.User, error) {
	var out *entity.User
	err := r.a.read(func(s *state) error {
		for _, u := range s.users {
			if u.ExternalID == externalID {
				u = copyUser(u)
				out = &u
				return nil
			}
		}
		return nil
	})
	return out, err
}

// Update reemplaza el usuario.
func (r *UserRepo) Update(_ context.Context, user *entity.User) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.users[user.ID]; !ok {
			return domain.ErrUserNotFound
		}
		s.users[user.ID] = copyUser(*user)
		return nil
	})
}

// TouchLastLogin actualiza la fecha de último acceso.
func (r *UserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	return r.a.write(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		u.LastLogin = &at
		s.users[id] = u
		return nil
	})
}

// List lista usuarios por fecha de creación descendente.
func (r *UserRepo) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	var list []*entity.User
	err := r.a.read(func(s *state) error {
		all := make([]entity.User, 0, len(s.users))
		for _, u := range s.users {
			all = append(all, copyUser(u))
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].ExternalID < all[j].ExternalID
			}
			return all[i].CreatedAt.After(all[j].CreatedAt)
		})
		for _, u := range page(all, limit, offset) {
			u := u
			list = append(list, &u)
		}
		return nil
	})
	return list, err
}

// Delete elimina el usuario y sus operaciones (FK en cascada).
func (r *UserRepo) Delete(_ context.Context, id string) error {
	return r.a.write(func(s *state) error {
		delete(s.users, id)
		s.ops = filterOps(s.ops, func(op entity.OperationRecord) bool { return op.UserID != id })
		return nil
	})
}

// ── registro de operaciones ───────────────────────────────────────────────────

// OperationRepo implementación en memoria de OperationRepository.
type OperationRepo struct {
	a accessor
}

// Append agrega un registro; ítem y usuario deben existir.
func (r *OperationRepo) Append(_ context.Context, rec *entity.OperationRecord) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.items[rec.ItemID]; !ok {
			return fmt.Errorf("insert operation: %w", domain.ErrItemNotFound)
		}
		if _, ok := s.users[rec.UserID]; !ok {
			return fmt.Errorf("insert operation: %w", domain.ErrUserNotFound)
		}
		s.ops = append(s.ops, copyRecord(*rec))
		return nil
	})
}

// List devuelve registros del más reciente al más antiguo; a igual fecha, el último insertado primero.
func (r *OperationRepo) List(_ context.Context, filter repository.OperationFilter) ([]*entity.OperationRecord, error) {
	var list []*entity.OperationRecord
	err := r.a.read(func(s *state) error {
		sel := make([]entity.OperationRecord, 0, len(s.ops))
		for i := len(s.ops) - 1; i >= 0; i-- {
			if filter.ItemID == "" || s.ops[i].ItemID == filter.ItemID {
				sel = append(sel, copyRecord(s.ops[i]))
			}
		}
		sort.SliceStable(sel, func(i, j int) bool { return sel[i].CreatedAt.After(sel[j].CreatedAt) })
		for _, op := range page(sel, filter.Limit, filter.Offset) {
			op := op
			list = append(list, &op)
		}
		return nil
	})
	return list, err
}

// CountByItem cuenta los registros de un ítem.
func (r *OperationRepo) CountByItem(_ context.Context, itemID string) (int, error) {
	n := 0
	err := r.a.read(func(s *state) error {
		for _, op := range s.ops {
			if op.ItemID == itemID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// CountByUser cuenta los registros ejecutados por un usuario.
func (r *OperationRepo) CountByUser(_ context.Context, userID string) (int, error) {
	n := 0
	err := r.a.read(func(s *state) error {
		for _, op := range s.ops {
			if op.UserID == userID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ItemIDsByUser ítems distintos operados por el usuario, del uso más reciente al más antiguo.
func (r *OperationRepo) ItemIDsByUser(ctx context.Context, userID string, limit, offset int) ([]string, error) {
	all, err := r.List(ctx, repository.OperationFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, op := range all {
		if op.UserID != userID || seen[op.ItemID] {
			continue
		}
		seen[op.ItemID] = true
		ids = append(ids, op.ItemID)
	}
	return page(ids, limit, offset), nil
}

// DeleteByItem elimina los registros de un ítem.
func (r *OperationRepo) DeleteByItem(_ context.Context, itemID string) error {
	return r.a.write(func(s *state) error {
		s.ops = filterOps(s.ops, func(op entity.OperationRecord) bool { return op.ItemID != itemID })
		return nil
	})
}

// ── helpers ───────────────────────────────────────────────────────────────────

func filterOps(ops []entity.OperationRecord, keep func(entity.OperationRecord) bool) []entity.OperationRecord {
	out := ops[:0:0]
	for _, op := range ops {
		if keep(op) {
			out = append(out, op)
		}
	}
	return out
}

// page aplica limit/offset; limit <= 0 devuelve todo desde offset.
func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	if offset < 0 {
		offset = 0
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
