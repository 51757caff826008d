package main

import (
	"fmt"
	"os"

	"geo-attendance/config"
	"geo-attendance/internal/logging"
	"geo-attendance/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	fmt.Println("1. Memulai aplikasi... Memuat konfigurasi...")
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Konfigurasi tidak valid:", err)
		os.Exit(1)
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})

	fmt.Println("2. Mencoba koneksi ke Database...")
	if err := config.ConnectDB(cfg); err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	fmt.Println("3. Database berhasil terhubung! Menyiapkan routes...")
	if !cfg.MailEnabled() {
		log.Info("SMTP not configured, geofence violation notices disabled")
	}

	app := fiber.New()

	// Middleware Global
	app.Use(cors.New())   // Agar API bisa diakses dari domain/port lain
	app.Use(logger.New()) // Agar log request muncul di terminal

	routes.SetupAuthRoutes(app, config.DB, cfg)
	routes.SetupAttendanceRoutes(app, config.DB, cfg, log)
	routes.SetupZoneRoutes(app, config.DB, cfg)

	fmt.Printf("4. Server siap! Menunggu request di port :%s\n", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
