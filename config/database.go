package config

import (
	"fmt"
	"time"

	"geo-attendance/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is the shared handle opened by ConnectDB.
var DB *gorm.DB

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// ConnectDB opens the database, retrying while it comes up, migrates every
// model and stores the handle in DB.
func ConnectDB(cfg Config) error {
	dial, err := dialector(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}

	attempts := cfg.DBConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var db *gorm.DB
	var lastErr error
	for i := 1; i <= attempts; i++ {
		// TranslateError turns unique violations into gorm.ErrDuplicatedKey
		db, lastErr = gorm.Open(dial, &gorm.Config{TranslateError: true})
		if lastErr == nil {
			break
		}
		fmt.Printf("Koneksi database gagal (percobaan %d/%d): %v\n", i, attempts, lastErr)
		time.Sleep(cfg.DBConnectDelay)
	}
	if lastErr != nil {
		return fmt.Errorf("db connect failed after %d attempts: %w", attempts, lastErr)
	}

	if cfg.DBDriver == "sqlite" {
		// single writer, and each :memory: connection is a separate database
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	fmt.Println("Koneksi Database Berhasil!")

	// Auto Migration: Membuat tabel otomatis berdasarkan struct di folder model
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	DB = db
	return nil
}
