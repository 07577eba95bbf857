// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/config"
	"github.com/nguyenquyen/evdata-backend/internal/database"
	"github.com/nguyenquyen/evdata-backend/internal/i18n"
	"github.com/nguyenquyen/evdata-backend/internal/router"
	"github.com/nguyenquyen/evdata-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.Fatal("Failed to run migrations: ", err)
	}

	if err := database.SeedCategories(db); err != nil {
		logrus.Fatal("Failed to seed categories: ", err)
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.LocalesPath); err != nil {
		logrus.Fatal("Failed to initialize i18n: ", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(db, cfg)

	// Schedule the monthly revenue rollup
	stopRollup := make(chan struct{})
	go runMonthlyRollupLoop(db, stopRollup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	close(stopRollup)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	logrus.Info("Server exited")
}

// runMonthlyRollupLoop recomputes the previous month's provider revenue
// shortly after each month boundary.
func runMonthlyRollupLoop(db *gorm.DB, stop <-chan struct{}) {
	revenueService := services.NewRevenueService(db)

	for {
		now := time.Now().UTC()
		nextRun := time.Date(now.Year(), now.Month(), 1, 1, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

		select {
		case <-time.After(time.Until(nextRun)):
			revenueService.RunMonthlyRollup(time.Now().UTC())
		case <-stop:
			return
		}
	}
}
