package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/config"
	"github.com/pavitra93/food-ordering-admin/shared/events"
	"github.com/pavitra93/food-ordering-admin/shared/importer"
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

	// Initialize Redis for sessions and rejected-rows files
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	artifacts, err := importer.NewArtifactStore(cfg.ArtifactBackend, cfg.AWSRegion, cfg.ArtifactBucket, utils.RedisClient)
	if err != nil {
		log.Fatal("Failed to initialize artifact store:", err)
	}

	publisher := events.NewPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
	defer publisher.Close()

	router := newRouter(dependencies{
		store:     store.New(db),
		auth:      middleware.NewAuthMiddleware(cfg),
		artifacts: artifacts,
		events:    publisher,
	})

	port := config.ServicePort("TERMINAL_SERVICE_PORT", "8003")
	logrus.Infof("Terminal service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start terminal service:", err)
	}
}
