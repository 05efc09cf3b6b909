package report

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// LogRow un registro de operación enriquecido con los nombres que muestra el reporte.
type LogRow struct {
	entity.OperationRecord
	ItemCode              string
	ItemName              string
	Username              string
	UserTgID              int64
	OnBehalfOfUsername    string
	ResultingLocationName string
}

// LogReport página del registro de operaciones lista para exportar.
type LogReport struct {
	GeneratedAt time.Time
	ItemID      string // filtro aplicado; vacío = todos
	Limit       int
	Offset      int
	Rows        []LogRow
}

// LogPDFGenerator puerto de salida para la representación PDF del registro.
type LogPDFGenerator interface {
	GenerateOperationLogPDF(ctx context.Context, rep *LogReport) ([]byte, error)
}

// LogXMLExporter puerto de salida para el XML del registro. Devuelve también el digest
// (base64 SHA-256 de la forma canónica) para verificar integridad.
type LogXMLExporter interface {
	ExportOperationLogXML(ctx context.Context, rep *LogReport) (body []byte, digest string, err error)
}
