package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/usecase"
)

// UserHandler consulta y administración de usuarios (protegido).
type UserHandler struct {
	uc *usecase.UserUseCase
}

// NewUserHandler construye el handler.
func NewUserHandler(uc *usecase.UserUseCase) *UserHandler {
	return &UserHandler{uc: uc}
}

// Me godoc
// @Summary      Usuario autenticado
// @Tags         users
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.UserResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	out, err := h.uc.GetByExternalID(c.UserContext(), GetTgID(c), GetRole(c), GetTgID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener usuario por tg_id
// @Description  Un worker solo puede consultarse a sí mismo.
// @Tags         users
// @Security     Bearer
// @Produce      json
// @Param        tg_id  path  int  true  "identidad de mensajería"
// @Success      200  {object}  dto.UserResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{tg_id} [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	tgID, ok := tgIDParam(c)
	if !ok {
		return invalidParam(c, "tg_id")
	}
	out, err := h.uc.GetByExternalID(c.UserContext(), GetTgID(c), GetRole(c), tgID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Items godoc
// @Summary      Ítems operados por un usuario
// @Description  Ítems con al menos una operación registrada por el usuario, del uso más reciente al más antiguo. Un worker solo puede consultar los propios.
// @Tags         users
// @Security     Bearer
// @Produce      json
// @Param        tg_id   path   int  true   "identidad de mensajería"
// @Param        limit   query  int  false  "tamaño de página"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {object}  dto.ItemListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{tg_id}/items [get]
func (h *UserHandler) Items(c *fiber.Ctx) error {
	tgID, ok := tgIDParam(c)
	if !ok {
		return invalidParam(c, "tg_id")
	}
	page := pageRequest(c)
	out, err := h.uc.Items(c.UserContext(), GetTgID(c), GetRole(c), tgID, page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar usuarios
// @Tags         users
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "tamaño de página"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {object}  dto.UserListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	page := pageRequest(c)
	out, err := h.uc.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar usuario
// @Tags         users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        tg_id  path  int                    true  "identidad de mensajería"
// @Param        body   body  dto.UpdateUserRequest  true  "username, role, is_active"
// @Success      200  {object}  dto.UserResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{tg_id} [put]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	tgID, ok := tgIDParam(c)
	if !ok {
		return invalidParam(c, "tg_id")
	}
	var in dto.UpdateUserRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Update(c.UserContext(), tgID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar usuario
// @Description  Falla con 409 si el usuario tiene operaciones registradas; desactivarlo en su lugar.
// @Tags         users
// @Security     Bearer
// @Param        tg_id  path  int  true  "identidad de mensajería"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/users/{tg_id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	tgID, ok := tgIDParam(c)
	if !ok {
		return invalidParam(c, "tg_id")
	}
	if err := h.uc.Delete(c.UserContext(), tgID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func tgIDParam(c *fiber.Ctx) (int64, bool) {
	n, err := strconv.ParseInt(c.Params("tg_id"), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
