package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/config"
	"github.com/yeremiapane/cafe-pos/database"
	"github.com/yeremiapane/cafe-pos/router"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
)

func main() {
	utils.InitLogger()
	cfg := config.Load()
	utils.SetLevel(cfg.LogLevel)
	utils.CurrencySuffix = cfg.CurrencySuffix

	if cfg.JWT.Secret != "" {
		utils.JWTSecret = []byte(cfg.JWT.Secret)
	} else {
		utils.ErrorLogger.Warn("JWT_SECRET not set, using the development secret")
	}
	utils.TokenTTL = time.Duration(cfg.JWT.TTLHours) * time.Hour

	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	if err := database.SeedAdmin(db, cfg.Seed.AdminUserName, cfg.Seed.AdminPassword); err != nil {
		utils.ErrorLogger.Fatalf("Failed to seed admin account: %v", err)
	}
	if err := database.SeedSampleData(db, cfg.Seed.SQLFile); err != nil {
		utils.ErrorLogger.Errorf("Error running seed script %s: %v", cfg.Seed.SQLFile, err)
	}

	var events services.EventPublisher = services.LogPublisher{}
	if cfg.RabbitMQ.URL != "" {
		amqpPublisher, err := services.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			utils.ErrorLogger.Warnf("RabbitMQ unavailable, events will only be logged: %v", err)
		} else {
			events = amqpPublisher
		}
	}
	defer events.Close()

	monitor := services.NewStockMonitor(db, events, cfg.LowStockLevel)
	if cfg.StockCheckInterval > 0 {
		monitor.Interval = time.Duration(cfg.StockCheckInterval) * time.Minute
	}
	monitor.Start()
	defer monitor.Stop()

	r, err := router.SetupRouter(db, router.Options{
		Events:     events,
		Stock:      monitor,
		CORSOrigin: cfg.Server.CORSOrigin,
		RateLimit:  50,
	})
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up router: %v", err)
	}
	r.SetTrustedProxies([]string{"127.0.0.1"})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}
}
