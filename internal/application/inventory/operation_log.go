package inventory

import (
	"context"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// Límites de paginación del registro de operaciones.
const (
	DefaultLogLimit = 50
	MaxLogLimit     = 500
)

// OperationLogUseCase lectura privilegiada del registro de operaciones (sin mutación).
type OperationLogUseCase struct {
	repo repository.OperationRepository
}

// NewOperationLogUseCase construye el caso de uso.
func NewOperationLogUseCase(repo repository.OperationRepository) *OperationLogUseCase {
	return &OperationLogUseCase{repo: repo}
}

// Records devuelve los registros de dominio, más reciente primero.
func (uc *OperationLogUseCase) Records(ctx context.Context, in dto.OperationLogRequest) ([]*entity.OperationRecord, int, int, error) {
	limit, offset := dto.NormalizePage(in.Limit, in.Offset, DefaultLogLimit, MaxLogLimit)
	list, err := uc.repo.List(ctx, repository.OperationFilter{ItemID: in.ItemID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, 0, err
	}
	return list, limit, offset, nil
}

// List devuelve una página del registro, más reciente primero.
func (uc *OperationLogUseCase) List(ctx context.Context, in dto.OperationLogRequest) (*dto.OperationLogResponse, error) {
	list, limit, offset, err := uc.Records(ctx, in)
	if err != nil {
		return nil, err
	}
	items := make([]dto.OperationResponse, 0, len(list))
	for _, r := range list {
		items = append(items, *ToOperationResponse(r))
	}
	return &dto.OperationLogResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}
