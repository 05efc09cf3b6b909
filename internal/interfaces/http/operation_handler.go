package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/inventory"
	"github.com/jhoicas/almacen-api/internal/application/report"
)

// OperationHandler maneja operaciones de inventario y el registro (protegido).
type OperationHandler struct {
	process *inventory.ProcessOperationUseCase
	log     *inventory.OperationLogUseCase
	reports *report.UseCase
}

// NewOperationHandler construye el handler.
func NewOperationHandler(process *inventory.ProcessOperationUseCase, log *inventory.OperationLogUseCase, reports *report.UseCase) *OperationHandler {
	return &OperationHandler{process: process, log: log, reports: reports}
}

// Create godoc
// @Summary      Registrar operación de inventario
// @Description  Aplica receive, ship, move o inventory sobre un ítem y agrega un registro al log.
// @Tags         operations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                        false  "clave para reintentos seguros"
// @Param        body             body    dto.CreateOperationRequest    true   "item_id, type, note, quantity o to_location_id"
// @Success      201  {object}  dto.OperationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/operations [post]
func (h *OperationHandler) Create(c *fiber.Ctx) error {
	tgID := GetTgID(c)
	if tgID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateOperationRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.process.ProcessFromRequest(c.UserContext(), tgID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Log godoc
// @Summary      Registro de operaciones
// @Description  Más reciente primero. limit por defecto 50, máximo 500.
// @Tags         operations
// @Security     Bearer
// @Produce      json
// @Param        item_id  query  string  false  "filtrar por ítem"
// @Param        limit    query  int     false  "tamaño de página"
// @Param        offset   query  int     false  "desplazamiento"
// @Success      200  {object}  dto.OperationLogResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/operations/log [get]
func (h *OperationHandler) Log(c *fiber.Ctx) error {
	out, err := h.log.List(c.UserContext(), logRequest(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// LogPDF godoc
// @Summary      Registro de operaciones en PDF
// @Tags         operations
// @Security     Bearer
// @Produce      application/pdf
// @Param        item_id  query  string  false  "filtrar por ítem"
// @Param        limit    query  int     false  "tamaño de página"
// @Param        offset   query  int     false  "desplazamiento"
// @Success      200  {file}    binary
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/operations/log.pdf [get]
func (h *OperationHandler) LogPDF(c *fiber.Ctx) error {
	body, filename, err := h.reports.DownloadPDF(c.UserContext(), logRequest(c))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(body)
}

// LogXML godoc
// @Summary      Registro de operaciones en XML
// @Description  X-Content-Digest lleva el base64 del SHA-256 de la forma canónica (C14N).
// @Tags         operations
// @Security     Bearer
// @Produce      application/xml
// @Param        item_id  query  string  false  "filtrar por ítem"
// @Param        limit    query  int     false  "tamaño de página"
// @Param        offset   query  int     false  "desplazamiento"
// @Success      200  {file}    binary
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/operations/log.xml [get]
func (h *OperationHandler) LogXML(c *fiber.Ctx) error {
	body, digest, filename, err := h.reports.DownloadXML(c.UserContext(), logRequest(c))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Set("X-Content-Digest", "sha-256="+digest)
	return c.Send(body)
}

func logRequest(c *fiber.Ctx) dto.OperationLogRequest {
	return dto.OperationLogRequest{
		ItemID: c.Query("item_id"),
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
}
