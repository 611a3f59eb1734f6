package main

import (
	"github.com/gin-gonic/gin"

	"github.com/pavitra93/food-ordering-admin/shared/metrics"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/tenancy"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

type dependencies struct {
	store *store.Store
	auth  *middleware.AuthMiddleware
}

func newRouter(deps dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID("audit"), metrics.Middleware("audit"))

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Audit service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	am := deps.auth

	audit := router.Group("/companies/:company_id/audit_events")
	audit.Use(am.RequireAuth(), am.RequireCompanyAccess("company_id", tenancy.PermissionAdmin))
	{
		audit.GET("", handleGetAuditEvents(deps.store))
	}

	return router
}
