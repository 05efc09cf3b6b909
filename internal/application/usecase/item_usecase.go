package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/inventory"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-api/internal/domain/inventory"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// ItemUseCase casos de uso CRUD para ítems. Cantidad y ubicación solo cambian vía operaciones;
// la creación registra una recepción inicial en la misma transacción.
type ItemUseCase struct {
	repo     repository.ItemRepository
	txRunner inventory.TxRunner
	now      func() time.Time
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(repo repository.ItemRepository, txRunner inventory.TxRunner) *ItemUseCase {
	return &ItemUseCase{repo: repo, txRunner: txRunner, now: time.Now}
}

// Create crea el ítem y su registro de recepción inicial a nombre de actingExternalID.
func (uc *ItemUseCase) Create(ctx context.Context, actingExternalID int64, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" || in.LocationID == "" {
		return nil, fmt.Errorf("%w: code, name y location_id son requeridos", domain.ErrValidation)
	}
	qty, err := domaininv.QuantityFromDecimal(in.Quantity)
	if err != nil {
		return nil, err
	}
	if qty < 0 {
		return nil, domain.ErrNegativeQuantity
	}

	var created *entity.Item
	err = uc.txRunner.Run(ctx, func(
		itemRepo repository.ItemRepository,
		locationRepo repository.LocationRepository,
		userRepo repository.UserRepository,
		opRepo repository.OperationRepository,
	) error {
		user, err := userRepo.GetByExternalID(ctx, actingExternalID)
		if err != nil {
			return err
		}
		if user == nil || !user.IsActive {
			return domain.ErrUserNotFound
		}
		loc, err := locationRepo.GetByID(ctx, in.LocationID)
		if err != nil {
			return err
		}
		if loc == nil {
			return domain.ErrInvalidLocation
		}
		existing, err := itemRepo.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrItemCodeExists
		}

		now := uc.now()
		item := &entity.Item{
			ID:          uuid.New().String(),
			Code:        code,
			Name:        name,
			Weight:      in.Weight,
			Quantity:    qty,
			LocationID:  loc.ID,
			Description: in.Description,
			CreatedAt:   now,
		}
		if err := itemRepo.Create(ctx, item); err != nil {
			return err
		}
		created = item
		return opRepo.Append(ctx, &entity.OperationRecord{
			ID:                  uuid.New().String(),
			ItemID:              item.ID,
			UserID:              user.ID,
			Kind:                entity.OperationReceive,
			Note:                fmt.Sprintf("Recepción inicial al crear el ítem. Cantidad: %d", qty),
			QuantityDelta:       qty,
			ResultingQuantity:   qty,
			FromLocationID:      loc.ID,
			ResultingLocationID: loc.ID,
			CreatedAt:           now,
		})
	})
	if err != nil {
		return nil, err
	}
	return toItemResponse(created), nil
}

// GetByID obtiene un ítem por ID.
func (uc *ItemUseCase) GetByID(ctx context.Context, id string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return toItemResponse(item), nil
}

// ScanByCode informa si existe un ítem con el código escaneado.
func (uc *ItemUseCase) ScanByCode(ctx context.Context, code string) (*dto.ScanResponse, error) {
	code = strings.TrimSpace(code)
	item, err := uc.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return &dto.ScanResponse{Status: dto.ScanStatusNotFound, ItemCode: code}, nil
	}
	return &dto.ScanResponse{Status: dto.ScanStatusExists, Item: toItemResponse(item)}, nil
}

// Update actualiza datos descriptivos. No modifica cantidad ni ubicación.
func (uc *ItemUseCase) Update(ctx context.Context, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	if in.Code != nil {
		code := strings.TrimSpace(*in.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: code vacío", domain.ErrValidation)
		}
		if code != item.Code {
			other, err := uc.repo.GetByCode(ctx, code)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, domain.ErrItemCodeExists
			}
		}
		item.Code = code
	}
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Weight != nil {
		item.Weight = *in.Weight
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if err := uc.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// List lista ítems con paginación.
func (uc *ItemUseCase) List(ctx context.Context, limit, offset int) (*dto.ItemListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, it := range list {
		items = append(items, *toItemResponse(it))
	}
	return &dto.ItemListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Delete elimina un ítem sin operaciones. Con cascade (solo admin) elimina también su registro.
func (uc *ItemUseCase) Delete(ctx context.Context, id string, cascade, isAdmin bool) error {
	if cascade && !isAdmin {
		return domain.ErrForbidden
	}
	return uc.txRunner.Run(ctx, func(
		itemRepo repository.ItemRepository,
		_ repository.LocationRepository,
		_ repository.UserRepository,
		opRepo repository.OperationRepository,
	) error {
		item, err := itemRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		n, err := opRepo.CountByItem(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			if !cascade {
				return domain.ErrItemHasOperations
			}
			if err := opRepo.DeleteByItem(ctx, id); err != nil {
				return err
			}
		}
		return itemRepo.Delete(ctx, id)
	})
}

func toItemResponse(it *entity.Item) *dto.ItemResponse {
	if it == nil {
		return nil
	}
	return &dto.ItemResponse{
		ID:          it.ID,
		Code:        it.Code,
		Name:        it.Name,
		Weight:      it.Weight,
		Quantity:    it.Quantity,
		LocationID:  it.LocationID,
		Description: it.Description,
		CreatedAt:   it.CreatedAt,
	}
}
