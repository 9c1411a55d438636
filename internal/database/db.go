package database

import (
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cryptoticket/rn-version-admin/internal/models"
)

// Connect opens a postgres-backed gorm handle with sane pool limits.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(60 * time.Minute)
	return db, nil
}

// Migrate creates/updates tables for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Bundle{},
	)
}

// SeedAdmin creates the initial admin principal if it does not exist yet.
func SeedAdmin(db *gorm.DB, email string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	admin := models.User{Email: email}
	if err := admin.GenerateAPIToken(); err != nil {
		return err
	}
	return db.Create(&admin).Error
}
