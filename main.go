package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	orderControllers "github.com/Nnamdionwukwe/gestechbackend-sub000/controllers/order"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/models"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/routes"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting application")

	// Init DB
	db := initDatabase(logger)

	// Auto-migrate all tables
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
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	// Payment gateway client
	gateway, err := paystack.NewClientFromEnv()
	if err != nil {
		logger.Fatal("payment gateway setup failed", zap.Error(err))
	}

	// Gin setup
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Setup routes
	routes.SetupRoutes(r, db, gateway, logger)

	// Sweep unpaid pending orders in the background so their reserved stock
	// returns to the shelf after the grace period.
	go startStaleOrderSweeper(db, logger, time.Hour, staleOrderGracePeriod())

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("server running", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initDatabase sets up the GORM DB connection. TranslateError turns driver
// unique-violations into gorm.ErrDuplicatedKey, which the checkout relies on
// for order-number regeneration.
func initDatabase(logger *zap.Logger) *gorm.DB {
	config := &gorm.Config{TranslateError: true}

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), config)
		if err != nil {
			logger.Fatal("db connection failed", zap.Error(err))
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		logger.Fatal("failed to connect db", zap.Error(err))
	}
	return db
}

func staleOrderGracePeriod() time.Duration {
	if raw := os.Getenv("STALE_ORDER_GRACE_HOURS"); raw != "" {
		var hours int
		if _, err := fmt.Sscanf(raw, "%d", &hours); err == nil && hours > 0 {
			return time.Duration(hours) * time.Hour
		}
	}
	return 24 * time.Hour
}

// startStaleOrderSweeper periodically expires pending orders that were never
// paid, releasing their reserved stock.
func startStaleOrderSweeper(db *gorm.DB, logger *zap.Logger, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := orderControllers.ExpireStalePendingOrders(db, logger, grace); err != nil {
			logger.Error("stale order sweep failed", zap.Error(err))
		}
	}
}
