// Package testdb opens throwaway in-memory databases for package tests and
// seeds the catalog rows the scenarios need.
package testdb

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
)

// Open returns a migrated in-memory database. A single connection is used so
// every session sees the same memory store.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Service{},
		&models.ServiceVariant{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func SeedUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()
	user := models.User{ID: id, Email: id + "@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func SeedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func SeedServiceVariant(t *testing.T, db *gorm.DB, serviceName, variantName, price string) models.ServiceVariant {
	t.Helper()
	service := models.Service{Name: serviceName, Active: true}
	if err := db.Create(&service).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	variant := models.ServiceVariant{
		ServiceID: service.ID,
		Name:      variantName,
		Price:     decimal.RequireFromString(price),
		Active:    true,
	}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("seed service variant: %v", err)
	}
	return variant
}
