package inventory

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-api/internal/domain"
)

var (
	maxQuantity = decimal.NewFromInt(math.MaxInt64)
	minQuantity = decimal.NewFromInt(math.MinInt64)
)

// QuantityFromDecimal trunca hacia cero al entero del inventario.
// Fuera del rango de int64 devuelve ErrQuantityOutOfRange o ErrNegativeQuantity.
func QuantityFromDecimal(d decimal.Decimal) (int64, error) {
	t := d.Truncate(0)
	if t.GreaterThan(maxQuantity) {
		return 0, domain.ErrQuantityOutOfRange
	}
	if t.LessThan(minQuantity) {
		return 0, domain.ErrNegativeQuantity
	}
	return t.IntPart(), nil
}
