package routes

import (
	"geo-attendance/config"
	"geo-attendance/internal/handler"
	"geo-attendance/internal/middleware"
	"geo-attendance/internal/repository"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupZoneRoutes(app *fiber.App, db *gorm.DB, cfg config.Config) {
	repo := repository.NewZoneRepository(db)
	hdl := handler.NewZoneHandler(repo, repository.NewClockEventRepository(db))

	admin := app.Group("/api/admin/zones", middleware.Auth(cfg.JWTSecret), middleware.Role("Admin"))
	admin.Get("/", hdl.List)
	admin.Post("/", hdl.Create)
	admin.Get("/:id", hdl.Get)
	admin.Put("/:id", hdl.Update)
	admin.Delete("/:id", hdl.Delete)
	admin.Post("/:id/assign", hdl.Assign)
	admin.Delete("/:id/assign", hdl.Unassign)
	admin.Get("/:id/events", hdl.Events)
}
