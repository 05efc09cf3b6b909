package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-api/internal/application/auth"
	"github.com/jhoicas/almacen-api/internal/application/inventory"
	"github.com/jhoicas/almacen-api/internal/application/ports"
	"github.com/jhoicas/almacen-api/internal/application/report"
	"github.com/jhoicas/almacen-api/internal/application/usecase"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC       *auth.AuthUseCase
	ProcessOp    *inventory.ProcessOperationUseCase
	OperationLog *inventory.OperationLogUseCase
	ReportUC     *report.UseCase
	ItemUC       *usecase.ItemUseCase
	LocationUC   *usecase.LocationUseCase
	UserUC       *usecase.UserUseCase
	Idempotency  ports.IdempotencyStore
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/check-admin-password", authHandler.CheckAdminPassword)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(entity.RoleAdmin)

	// Operations
	ops := protected.Group("/operations")
	opHandler := NewOperationHandler(deps.ProcessOp, deps.OperationLog, deps.ReportUC)
	if deps.Idempotency != nil {
		ops.Post("/", RequireIdempotency(deps.Idempotency), opHandler.Create)
	} else {
		ops.Post("/", opHandler.Create)
	}
	ops.Get("/log", adminOnly, opHandler.Log)
	ops.Get("/log.pdf", adminOnly, opHandler.LogPDF)
	ops.Get("/log.xml", adminOnly, opHandler.LogXML)

	// Items
	items := protected.Group("/items")
	itemHandler := NewItemHandler(deps.ItemUC)
	items.Get("/", itemHandler.List)
	items.Post("/", itemHandler.Create)
	items.Get("/scan/:code", itemHandler.Scan)
	items.Get("/:id", itemHandler.GetByID)
	items.Put("/:id", itemHandler.Update)
	items.Delete("/:id", itemHandler.Delete)

	// Locations
	locations := protected.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC)
	locations.Get("/", locationHandler.List)
	locations.Post("/", locationHandler.Create)
	locations.Get("/:id", locationHandler.GetByID)
	locations.Put("/:id", locationHandler.Update)
	locations.Delete("/:id", locationHandler.Delete)

	// Users
	users := protected.Group("/users")
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", adminOnly, userHandler.List)
	users.Get("/me", userHandler.Me)
	users.Get("/:tg_id", userHandler.Get)
	users.Get("/:tg_id/items", userHandler.Items)
	users.Put("/:tg_id", adminOnly, userHandler.Update)
	users.Delete("/:tg_id", adminOnly, userHandler.Delete)
}
