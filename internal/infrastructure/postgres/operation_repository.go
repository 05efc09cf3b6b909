package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

var _ repository.OperationRepository = (*OperationRepo)(nil)

const operationColumns = `id, item_id, user_id, on_behalf_of_id, kind, note, quantity_delta, resulting_quantity,
	from_location_id, resulting_location_id, created_at`

// OperationRepo registro de operaciones (solo inserción) sobre PostgreSQL.
type OperationRepo struct {
	q Querier
}

// NewOperationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOperationRepository(q Querier) *OperationRepo {
	return &OperationRepo{q: q}
}

// Append inserta un registro. Nunca actualiza registros existentes.
func (r *OperationRepo) Append(ctx context.Context, rec *entity.OperationRecord) error {
	query := `
		INSERT INTO operations (` + operationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.ItemID, rec.UserID, rec.OnBehalfOfID, string(rec.Kind), rec.Note,
		rec.QuantityDelta, rec.ResultingQuantity, rec.FromLocationID, rec.ResultingLocationID, rec.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("insert operation: %w", domain.ErrNotFound)
		}
		if isCheckViolation(err) {
			return domain.ErrUnknownKind
		}
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// List devuelve registros del más reciente al más antiguo, opcionalmente filtrados por ítem.
func (r *OperationRepo) List(ctx context.Context, filter repository.OperationFilter) ([]*entity.OperationRecord, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + operationColumns + ` FROM operations`)
	if filter.ItemID != "" {
		args = append(args, filter.ItemID)
		fmt.Fprintf(&sb, ` WHERE item_id = $%d`, len(args))
	}
	args = append(args, limitOrAll(filter.Limit), max(filter.Offset, 0))
	fmt.Fprintf(&sb, ` ORDER BY created_at DESC, seq DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()
	var list []*entity.OperationRecord
	for rows.Next() {
		rec, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// CountByItem cuenta los registros de un ítem.
func (r *OperationRepo) CountByItem(ctx context.Context, itemID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM operations WHERE item_id = $1`, itemID)
}

// CountByUser cuenta los registros ejecutados por un usuario.
func (r *OperationRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM operations WHERE user_id = $1`, userID)
}

func (r *OperationRepo) count(ctx context.Context, query, arg string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, query, arg).Scan(&n); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return n, nil
}

// ItemIDsByUser ítems distintos operados por el usuario, del uso más reciente al más antiguo.
func (r *OperationRepo) ItemIDsByUser(ctx context.Context, userID string, limit, offset int) ([]string, error) {
	query := `
		SELECT item_id FROM operations
		WHERE user_id = $1
		GROUP BY item_id
		ORDER BY MAX(created_at) DESC, MAX(seq) DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, userID, limitOrAll(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list item ids by user: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteByItem elimina el historial de un ítem (solo para el borrado en cascada del ítem).
func (r *OperationRepo) DeleteByItem(ctx context.Context, itemID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM operations WHERE item_id = $1`, itemID); err != nil {
		return fmt.Errorf("delete operations: %w", err)
	}
	return nil
}

func scanOperation(row pgx.Row) (*entity.OperationRecord, error) {
	var (
		rec  entity.OperationRecord
		kind string
	)
	if err := row.Scan(
		&rec.ID, &rec.ItemID, &rec.UserID, &rec.OnBehalfOfID, &kind, &rec.Note,
		&rec.QuantityDelta, &rec.ResultingQuantity, &rec.FromLocationID, &rec.ResultingLocationID, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Kind = entity.OperationKind(kind)
	return &rec, nil
}
