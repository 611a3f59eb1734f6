package main

import (
	"github.com/gin-gonic/gin"

	"github.com/pavitra93/food-ordering-admin/shared/api"
	"github.com/pavitra93/food-ordering-admin/shared/events"
	"github.com/pavitra93/food-ordering-admin/shared/importer"
	"github.com/pavitra93/food-ordering-admin/shared/metrics"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/tenancy"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

type dependencies struct {
	store     *store.Store
	auth      *middleware.AuthMiddleware
	artifacts importer.ArtifactStore
	events    events.Publisher
}

func newRouter(deps dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID("terminal"), metrics.Middleware("terminal"))

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Terminal service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	am := deps.auth
	member := am.RequireCompanyAccess("company_id", tenancy.PermissionMember)

	companies := router.Group("/companies/:company_id/terminals")
	companies.Use(am.RequireAuth(), member)
	{
		companies.GET("", handleGetTerminals(deps.store))
		companies.POST("", handleCreateTerminal(deps.store, deps.artifacts, deps.events))
	}

	// Terminal routes resolve the company from the terminal itself
	terminals := router.Group("/terminals/:terminal_id")
	terminals.Use(am.RequireAuth())
	{
		terminals.GET("", handleGetTerminal(deps.store, am))
		terminals.PUT("", handleUpdateTerminal(deps.store, am, deps.events))
		terminals.DELETE("", handleDeleteTerminal(deps.store, am, deps.events))

		terminals.GET("/menu_items", handleGetMenuItems(deps.store, am))
		terminals.POST("/menu_items", handleCreateMenuItem(deps.store, am))
		terminals.POST("/menu_items/import", handleImportMenuItems(deps.store, am, deps.artifacts, deps.events))
		terminals.GET("/menu_items/invalid_rows", handleDownloadInvalidMenuItems(deps.store, am, deps.artifacts))
	}

	menuItems := router.Group("/menu_items")
	menuItems.Use(am.RequireAuth())
	{
		menuItems.GET("/sample_file", api.SampleFile(importer.KindMenuItems))
		menuItems.PUT("/:id", handleUpdateMenuItem(deps.store, am))
		menuItems.DELETE("/:id", handleDeleteMenuItem(deps.store, am))
	}

	return router
}
