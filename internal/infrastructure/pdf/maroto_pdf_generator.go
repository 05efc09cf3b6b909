// Package pdf implementa la representación PDF del registro de operaciones.
//
// Layout de la página A4 horizontal:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + filtro      │  Fecha de generación          │
//	│  ──────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Tipo | Ítem | Usuario | Dif. | Cant. | Nota   │
//	│  ──────────────────────────────────────────────────────────  │
//	│  FOOTER: N° de registros + paginación                         │
//	└──────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/almacen-api/internal/application/report"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorStripe  = &props.Color{Red: 240, Green: 244, Blue: 248}
	colorRed     = &props.Color{Red: 160, Green: 20, Blue: 20}
)

const noteMaxChars = 60

var kindLabels = map[entity.OperationKind]string{
	entity.OperationReceive:   "Recepción",
	entity.OperationShip:      "Despacho",
	entity.OperationMove:      "Traslado",
	entity.OperationInventory: "Inventario",
}

// ── Generator ─────────────────────────────────────────────────────────────────

var _ report.LogPDFGenerator = (*MarotoPDFGenerator)(nil)

// MarotoPDFGenerator implementa report.LogPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateOperationLogPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateOperationLogPDF(_ context.Context, rep *report.LogReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("Registro de operaciones", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(rep))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	if len(rep.Rows) == 0 {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("Sin operaciones para los filtros indicados.", props.Text{
				Size: 9, Align: align.Center, Top: 3, Color: colorGray,
			}),
		)))
	}
	m.AddRows(tableDetailRows(rep.Rows)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(footerRow(rep))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título y filtro (izq), fecha de generación (der).
func headerRow(rep *report.LogReport) core.Row {
	filter := "Todos los ítems"
	if rep.ItemID != "" {
		filter = "Ítem: " + rep.ItemID
	}
	return row.New(16).Add(
		col.New(8).Add(
			text.New("REGISTRO DE OPERACIONES", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(filter, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("Generado", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(rep.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 9, Align: align.Right, Top: 7,
			}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla con fondo azul.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Tipo", 1, align.Left),
		h("Ítem", 2, align.Left),
		h("Usuario", 2, align.Left),
		h("Dif.", 1, align.Right),
		h("Cant.", 1, align.Right),
		h("Ubicación", 1, align.Left),
		h("Nota", 2, align.Left),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por registro, con bandas alternas.
func tableDetailRows(rows []report.LogRow) []core.Row {
	result := make([]core.Row, 0, len(rows))
	for i, r := range rows {
		cell := func(s string, size int, a align.Type, c *props.Color) core.Col {
			return col.New(size).Add(text.New(s, props.Text{
				Size: 7.5, Align: a, Top: 1.5, Left: 1, Right: 1, Color: c,
			}))
		}
		var deltaColor *props.Color
		if r.QuantityDelta < 0 {
			deltaColor = colorRed
		}
		rw := row.New(7).Add(
			cell(r.CreatedAt.Format("02/01/2006 15:04"), 2, align.Left, nil),
			cell(kindLabel(r.Kind), 1, align.Left, nil),
			cell(itemLabel(r), 2, align.Left, nil),
			cell(userLabel(r), 2, align.Left, nil),
			cell(signed(r.QuantityDelta), 1, align.Right, deltaColor),
			cell(strconv.FormatInt(r.ResultingQuantity, 10), 1, align.Right, nil),
			cell(r.ResultingLocationName, 1, align.Left, nil),
			cell(truncate(r.Note, noteMaxChars), 2, align.Left, colorGray),
		)
		if i%2 == 1 {
			rw = rw.WithStyle(&props.Cell{BackgroundColor: colorStripe})
		}
		result = append(result, rw)
	}
	return result
}

// footerRow: total de registros y ventana de paginación.
func footerRow(rep *report.LogReport) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(fmt.Sprintf("%d registro(s)   |   limit %d   |   offset %d", len(rep.Rows), rep.Limit, rep.Offset),
			props.Text{Size: 7, Color: colorGray, Top: 2, Align: align.Right},
		),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func kindLabel(k entity.OperationKind) string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

func itemLabel(r report.LogRow) string {
	if r.ItemName == "" {
		return r.ItemCode
	}
	return r.ItemCode + " · " + r.ItemName
}

func userLabel(r report.LogRow) string {
	name := nonEmpty(r.Username, strconv.FormatInt(r.UserTgID, 10))
	if r.OnBehalfOfID != nil {
		return name + " (por " + nonEmpty(r.OnBehalfOfUsername, *r.OnBehalfOfID) + ")"
	}
	return name
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// signed antepone "+" a los deltas positivos. Ej: 5 → "+5", -3 → "-3", 0 → "0".
func signed(n int64) string {
	if n > 0 {
		return "+" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// truncate corta s a max runas, con "…" al final si se cortó.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
