package main

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pavitra93/food-ordering-admin/shared/api"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/search"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// AuditPage is one page of a company's audit trail
type AuditPage struct {
	Events  []models.AuditEvent `json:"events"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
}

// handleGetAuditEvents lists the company's events, newest first
func handleGetAuditEvents(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
		page := search.NewPage(number, perPage)

		events, err := st.ListAuditEvents(c.Request.Context(), companyID, page)
		if err != nil {
			api.RenderError(c, "Failed to fetch audit events", err)
			return
		}

		utils.OKResponse(c, "Audit events retrieved successfully", AuditPage{
			Events:  events,
			Page:    page.Number,
			PerPage: page.PerPage,
		})
	}
}
