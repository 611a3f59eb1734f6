package main

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pavitra93/food-ordering-admin/shared/api"
	"github.com/pavitra93/food-ordering-admin/shared/events"
	"github.com/pavitra93/food-ordering-admin/shared/importer"
	"github.com/pavitra93/food-ordering-admin/shared/metrics"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/tenancy"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

type dependencies struct {
	store           *store.Store
	auth            *middleware.AuthMiddleware
	artifacts       importer.ArtifactStore
	events          events.Publisher
	confirmationTTL time.Duration
}

func newRouter(deps dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID("company"), metrics.Middleware("company"))

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Company service is healthy", nil)
	})
	router.GET("/metrics", metrics.Handler())

	am := deps.auth
	member := am.RequireCompanyAccess("company_id", tenancy.PermissionMember)
	admin := am.RequireCompanyAccess("company_id", tenancy.PermissionAdmin)

	companies := router.Group("/companies")
	companies.Use(am.RequireAuth())
	{
		// Platform management
		companies.POST("", am.RequireRole(models.RoleSuperAdmin), handleCreateCompany(deps.store))
		companies.GET("", am.RequireRole(models.RoleSuperAdmin), handleGetCompanies(deps.store))

		companies.GET("/:company_id", member, handleGetCompany(deps.store))
		companies.PUT("/:company_id", admin, handleUpdateCompany(deps.store))

		// Employees of the company
		companies.GET("/:company_id/users", member, handleGetUsers(deps.store))
		companies.GET("/:company_id/users/search", member, handleSearchUsers(deps.store))
		companies.POST("/:company_id/users", member, handleCreateUser(deps.store, am, deps.events, deps.confirmationTTL))
		companies.POST("/:company_id/users/import", member, handleImportUsers(deps.store, deps.artifacts, deps.events, deps.confirmationTTL))
		companies.GET("/:company_id/users/invalid_rows", member, handleDownloadInvalidUsers(deps.artifacts))
		companies.GET("/:company_id/users/:id", member, handleGetUser(deps.store, am))
		companies.PATCH("/:company_id/users/:id", admin, handleUpdateUserStatus(deps.store, am, deps.events))
		companies.POST("/:company_id/users/:id/confirmation", admin, handleIssueConfirmation(deps.store, am, deps.confirmationTTL))
	}

	router.GET("/users/sample_file", am.RequireAuth(), api.SampleFile(importer.KindEmployees))

	return router
}
