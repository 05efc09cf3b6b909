package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// UserUseCase aplica reglas de negocio para usuarios (consulta y administración).
type UserUseCase struct {
	repo     repository.UserRepository
	opRepo   repository.OperationRepository
	itemRepo repository.ItemRepository
}

// NewUserUseCase construye el caso de uso con los puertos de persistencia.
func NewUserUseCase(repo repository.UserRepository, opRepo repository.OperationRepository, itemRepo repository.ItemRepository) *UserUseCase {
	return &UserUseCase{repo: repo, opRepo: opRepo, itemRepo: itemRepo}
}

// GetByExternalID obtiene un usuario por su identidad de mensajería.
// Un usuario no admin solo puede consultarse a sí mismo.
func (uc *UserUseCase) GetByExternalID(ctx context.Context, requesterExternalID int64, requesterRole string, externalID int64) (*dto.UserResponse, error) {
	if requesterRole != entity.RoleAdmin && requesterExternalID != externalID {
		return nil, domain.ErrForbidden
	}
	user, err := uc.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return ToUserResponse(user), nil
}

// Items lista los ítems sobre los que el usuario registró operaciones.
// Un usuario no admin solo puede consultar los propios.
func (uc *UserUseCase) Items(ctx context.Context, requesterExternalID int64, requesterRole string, externalID int64, limit, offset int) (*dto.ItemListResponse, error) {
	if requesterRole != entity.RoleAdmin && requesterExternalID != externalID {
		return nil, domain.ErrForbidden
	}
	user, err := uc.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	ids, err := uc.opRepo.ItemIDsByUser(ctx, user.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(ids))
	for _, id := range ids {
		it, err := uc.itemRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if it != nil {
			items = append(items, *toItemResponse(it))
		}
	}
	return &dto.ItemListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// List lista usuarios con paginación.
func (uc *UserUseCase) List(ctx context.Context, limit, offset int) (*dto.UserListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.UserResponse, 0, len(list))
	for _, u := range list {
		items = append(items, *ToUserResponse(u))
	}
	return &dto.UserListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Update actualiza nombre, rol o estado de un usuario.
func (uc *UserUseCase) Update(ctx context.Context, externalID int64, in dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := uc.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if in.Role != nil {
		if !entity.ValidRole(*in.Role) {
			return nil, fmt.Errorf("%w: rol inválido %q", domain.ErrValidation, *in.Role)
		}
		user.Role = *in.Role
	}
	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return ToUserResponse(user), nil
}

// Delete elimina un usuario sin operaciones registradas.
func (uc *UserUseCase) Delete(ctx context.Context, externalID int64) error {
	user, err := uc.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	n, err := uc.opRepo.CountByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrUserHasOperations
	}
	return uc.repo.Delete(ctx, user.ID)
}

// ToUserResponse mapea la entidad al DTO de salida.
func ToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		TgID:      u.ExternalID,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}
