package main

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/config"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
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

	// Sessions are checked at the edge only when Redis is reachable
	if err := utils.InitRedis(); err != nil {
		logrus.Warnf("Failed to connect to Redis, gateway checks token signatures only: %v", err)
		utils.RedisClient = nil
	} else {
		defer utils.CloseRedis()
	}

	// Initialize service clients
	serviceClients := &ServiceClients{
		AuthService:     NewServiceClient("auth", config.ServiceURL("AUTH_SERVICE_URL", "http://localhost:8001")),
		CompanyService:  NewServiceClient("company", config.ServiceURL("COMPANY_SERVICE_URL", "http://localhost:8002")),
		TerminalService: NewServiceClient("terminal", config.ServiceURL("TERMINAL_SERVICE_URL", "http://localhost:8003")),
		OrderService:    NewServiceClient("order", config.ServiceURL("ORDER_SERVICE_URL", "http://localhost:8004")),
		AuditService:    NewServiceClient("audit", config.ServiceURL("AUDIT_SERVICE_URL", "http://localhost:8005")),
	}

	var origins []string
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			origins = append(origins, strings.TrimSpace(origin))
		}
	}

	router := newRouter(serviceClients, middleware.NewAuthMiddleware(cfg), origins)

	// Start server
	port := config.ServicePort("API_GATEWAY_PORT", "8080")
	logrus.Infof("API Gateway starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start API Gateway:", err)
	}
}
