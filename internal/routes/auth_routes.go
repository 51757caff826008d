package routes

import (
	"geo-attendance/config"
	"geo-attendance/internal/handler"
	"geo-attendance/internal/repository"
	"geo-attendance/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB, cfg config.Config) {
	repo := repository.NewEmployeeRepository(db)
	hdl := handler.NewAuthHandler(usecase.NewAuthUsecase(repo, cfg.JWTSecret, cfg.JWTTTL))

	app.Post("/api/login", hdl.Login)
}
