package routes

import (
	"geo-attendance/config"
	"geo-attendance/internal/audit"
	"geo-attendance/internal/clock"
	"geo-attendance/internal/consent"
	"geo-attendance/internal/handler"
	"geo-attendance/internal/location"
	"geo-attendance/internal/middleware"
	"geo-attendance/internal/notify"
	"geo-attendance/internal/repository"
	"geo-attendance/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
)

func SetupAttendanceRoutes(app *fiber.App, db *gorm.DB, cfg config.Config, logger hclog.Logger) {
	clk := clock.SystemClock{}
	gate := consent.NewGate(repository.NewConsentRepository(db), clk)
	attendanceRepo := repository.NewAttendanceRepository(db)

	deps := usecase.ClockDeps{
		Consent:  gate,
		Locator:  location.NewProvider(clk, cfg.LocationMaxAge),
		Zones:    repository.NewZoneRepository(db),
		Recorder: attendanceRepo,
		Audit:    audit.NewLog(repository.NewClockEventRepository(db)),
		Clock:    clk,
		Logger:   logger,
	}
	if cfg.MailEnabled() {
		deps.Notifier = notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, cfg.ComplianceEmail)
	}

	// Satu coordinator untuk semua request agar aksi per pegawai terserialisasi
	clockUC := usecase.NewClockUsecase(deps, usecase.ClockConfig{
		LocationTimeout:   cfg.LocationTimeout,
		ZoneLookupTimeout: cfg.ZoneLookupTimeout,
		RecordTimeout:     cfg.RecordTimeout,
	})
	hdl := handler.NewAttendanceHandler(clockUC, gate, attendanceRepo, clk, logger)

	api := app.Group("/api/attendance", middleware.Auth(cfg.JWTSecret))
	api.Get("/consent", hdl.GetConsent)
	api.Put("/consent", hdl.PutConsent)
	api.Get("/status", hdl.GetStatus)
	api.Get("/history", hdl.GetHistory)
	api.Post("/location-check", hdl.CheckLocation)
	api.Post("/:action", hdl.Perform) // clock-in, clock-out, break-start, break-end
}
