package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pavitra93/food-ordering-admin/shared/metrics"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Content-Disposition", "Location"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func newRouter(clients *ServiceClients, am *middleware.AuthMiddleware, origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), cors.New(corsConfig(origins)), middleware.RequestID("gateway"), metrics.Middleware("gateway"))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "API Gateway is healthy", nil)
	})
	router.GET("/health/services", func(c *gin.Context) {
		utils.OKResponse(c, "Service status retrieved", clients.GetServiceStatus(c.Request.Context()))
	})
	router.GET("/metrics", metrics.Handler())

	// Authentication routes
	auth := router.Group("/auth")
	{
		auth.POST("/login", clients.AuthService.ProxyRequest)
		auth.POST("/logout", am.RequireAuth(), clients.AuthService.ProxyRequest)
		auth.GET("/me", am.RequireAuth(), clients.AuthService.ProxyRequest)
	}

	// Everything else needs a signed-in user; tenant checks stay with the services
	authed := router.Group("")
	authed.Use(am.RequireAuth())

	company := clients.CompanyService.ProxyRequest
	companies := authed.Group("/companies")
	{
		companies.POST("", company)
		companies.GET("", company)
		companies.GET("/:company_id", company)
		companies.PUT("/:company_id", company)

		companies.GET("/:company_id/users", company)
		companies.POST("/:company_id/users", company)
		companies.GET("/:company_id/users/search", company)
		companies.POST("/:company_id/users/import", company)
		companies.GET("/:company_id/users/invalid_rows", company)
		companies.GET("/:company_id/users/:id", company)
		companies.PATCH("/:company_id/users/:id", company)

		companies.GET("/:company_id/terminals", clients.TerminalService.ProxyRequest)
		companies.POST("/:company_id/terminals", clients.TerminalService.ProxyRequest)

		companies.GET("/:company_id/orders", clients.OrderService.ProxyRequest)
		companies.POST("/:company_id/orders", clients.OrderService.ProxyRequest)

		companies.GET("/:company_id/audit_events", clients.AuditService.ProxyRequest)
	}
	authed.GET("/users/sample_file", company)

	terminal := clients.TerminalService.ProxyRequest
	terminals := authed.Group("/terminals/:terminal_id")
	{
		terminals.GET("", terminal)
		terminals.PUT("", terminal)
		terminals.DELETE("", terminal)
		terminals.GET("/menu_items", terminal)
		terminals.POST("/menu_items", terminal)
		terminals.POST("/menu_items/import", terminal)
		terminals.GET("/menu_items/invalid_rows", terminal)
	}
	menuItems := authed.Group("/menu_items")
	{
		menuItems.GET("/sample_file", terminal)
		menuItems.PUT("/:id", terminal)
		menuItems.DELETE("/:id", terminal)
	}

	order := clients.OrderService.ProxyRequest
	orders := authed.Group("/orders/:order_id")
	{
		orders.GET("", order)
		orders.PATCH("/details/:detail_id", order)
		orders.PATCH("/details/:detail_id/status", order)
	}

	return router
}
