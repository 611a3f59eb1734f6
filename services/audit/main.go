package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/config"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	cfg := config.GetAppConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	// Initialize Redis for sessions
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	st := store.New(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.KafkaBroker == "" {
		log.Fatal("KAFKA_BROKER is required by the audit service")
	}
	consumer := NewConsumer(cfg.KafkaBroker, cfg.KafkaTopic, st)
	defer consumer.Close()
	go consumer.Run(ctx)

	router := newRouter(dependencies{
		store: st,
		auth:  middleware.NewAuthMiddleware(cfg),
	})

	port := config.ServicePort("AUDIT_SERVICE_PORT", "8005")
	logrus.Infof("Audit service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start audit service:", err)
	}
}
