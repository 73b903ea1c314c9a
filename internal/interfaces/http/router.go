package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-api/internal/application/auth"
	"github.com/jhoicas/farmacia-api/internal/application/reports"
	"github.com/jhoicas/farmacia-api/internal/application/usecase"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MedicationUC *usecase.MedicationUseCase
	MovementUC   *usecase.MovementUseCase
	AuthUC       *auth.AuthUseCase
	Reports      *reports.Service
	SalesPDF     salesPDFGenerator
	PharmacyName string
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	requireAuth := AuthMiddleware(deps.JWTSecret)

	// Usuarios: login y verify son públicos; el registro lo hace un admin.
	authHandler := NewAuthHandler(deps.AuthUC)
	users := api.Group("/users")
	users.Post("/login", authHandler.Login)
	users.Post("/verify", authHandler.Verify)
	users.Post("/register", requireAuth, RequireRole(entity.RoleAdmin), authHandler.Register)

	medHandler := NewMedicationHandler(deps.MedicationUC)
	meds := api.Group("/medications", requireAuth)
	meds.Get("/", medHandler.List)
	meds.Post("/", medHandler.Create)
	meds.Get("/:id", medHandler.GetByID)
	meds.Put("/:id", medHandler.Update)
	meds.Delete("/:id", medHandler.Delete)

	// Movimientos: sin rutas de actualización ni borrado.
	movHandler := NewMovementHandler(deps.MovementUC)
	movs := api.Group("/movements", requireAuth)
	movs.Get("/", movHandler.List)
	movs.Post("/", movHandler.Create)

	reportHandler := NewReportHandler(deps.Reports, deps.SalesPDF, deps.PharmacyName)
	rep := api.Group("/reports", requireAuth)
	rep.Get("/sales", reportHandler.Sales)
	rep.Get("/sales.pdf", reportHandler.SalesPDF)
	rep.Get("/entries", reportHandler.Entries)
	rep.Get("/expired", reportHandler.Expired)
}
