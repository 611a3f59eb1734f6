package main

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pavitra93/food-ordering-admin/shared/metrics"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

type dependencies struct {
	store    *store.Store
	auth     *middleware.AuthMiddleware
	secret   []byte
	tokenTTL time.Duration
}

func newRouter(deps dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID("auth"), metrics.Middleware("auth"))

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Auth service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	auth := router.Group("/auth")
	{
		auth.POST("/login", handleLogin(deps.store, deps.secret, deps.tokenTTL))
		auth.POST("/logout", deps.auth.RequireAuth(), handleLogout())
		auth.POST("/confirm", handleConfirm(deps.store))
		auth.GET("/me", deps.auth.RequireAuth(), handleMe(deps.store))
		auth.GET("/sessions", deps.auth.RequireAuth(), handleGetSessions())
		auth.DELETE("/sessions/:session_id", deps.auth.RequireAuth(), handleRevokeSession())
	}

	return router
}
