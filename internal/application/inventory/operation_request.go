package inventory

import (
	"context"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/inventory"
)

// ProcessFromRequest adapta el request HTTP al caso de uso Process(ctx, externalID, OperationInput).
// La cantidad decimal se trunca hacia cero al tipo entero del inventario; fuera de rango es error de validación.
func (uc *ProcessOperationUseCase) ProcessFromRequest(ctx context.Context, actingExternalID int64, in dto.CreateOperationRequest) (*dto.OperationResponse, error) {
	input := OperationInput{
		ItemID:               in.ItemID,
		Kind:                 in.Type,
		Note:                 in.Note,
		OnBehalfOfExternalID: in.OnBehalfOfTgID,
	}
	if in.Quantity != nil {
		q, err := inventory.QuantityFromDecimal(*in.Quantity)
		if err != nil {
			return nil, err
		}
		input.Quantity = &q
	}
	if in.FromLocationID != nil {
		input.FromLocationID = *in.FromLocationID
	}
	if in.ToLocationID != nil {
		input.ToLocationID = *in.ToLocationID
	}
	rec, err := uc.Process(ctx, actingExternalID, input)
	if err != nil {
		return nil, err
	}
	return ToOperationResponse(rec), nil
}

// ToOperationResponse convierte un registro de dominio a su DTO.
func ToOperationResponse(r *entity.OperationRecord) *dto.OperationResponse {
	if r == nil {
		return nil
	}
	return &dto.OperationResponse{
		ID:                  r.ID,
		ItemID:              r.ItemID,
		UserID:              r.UserID,
		OnBehalfOfID:        r.OnBehalfOfID,
		Type:                string(r.Kind),
		Note:                r.Note,
		QuantityDelta:       r.QuantityDelta,
		ResultingQuantity:   r.ResultingQuantity,
		FromLocationID:      r.FromLocationID,
		ResultingLocationID: r.ResultingLocationID,
		CreatedAt:           r.CreatedAt,
	}
}
