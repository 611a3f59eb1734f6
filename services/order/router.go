package main

import (
	"github.com/gin-gonic/gin"

	"github.com/pavitra93/food-ordering-admin/shared/events"
	"github.com/pavitra93/food-ordering-admin/shared/metrics"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/tenancy"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

type dependencies struct {
	store  *store.Store
	auth   *middleware.AuthMiddleware
	events events.Publisher
}

func newRouter(deps dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID("order"), metrics.Middleware("order"))

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Order service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	am := deps.auth

	companies := router.Group("/companies/:company_id/orders")
	companies.Use(am.RequireAuth(), am.RequireCompanyAccess("company_id", tenancy.PermissionMember))
	{
		companies.POST("", handlePlaceOrder(deps.store, deps.events))
		companies.GET("", handleGetOrders(deps.store))
	}

	orders := router.Group("/orders/:order_id")
	orders.Use(am.RequireAuth())
	{
		orders.GET("", handleGetOrder(deps.store, am))
		orders.PATCH("/details/:detail_id", handleUpdateDetailQuantity(deps.store, am))
		orders.PATCH("/details/:detail_id/status", handleUpdateDetailStatus(deps.store, am))
	}

	return router
}
