package main

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pavitra93/food-ordering-admin/shared/api"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// AdminRequest is the first company admin created with a company
type AdminRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number"`
	Password     string `json:"password"`
}

// CreateCompanyRequest represents the create company request
type CreateCompanyRequest struct {
	Company *models.Company `json:"company" binding:"required"`
	Admin   *AdminRequest   `json:"admin" binding:"required"`
}

// handleCreateCompany creates a company with its address and first admin (super admin only)
func handleCreateCompany(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCompanyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		company := req.Company
		company.ID = uuid.Nil
		company.Employees = nil
		admin := &models.User{
			Name:         req.Admin.Name,
			Email:        req.Admin.Email,
			MobileNumber: req.Admin.MobileNumber,
		}

		if err := st.CreateCompany(c.Request.Context(), company, admin, req.Admin.Password); err != nil {
			api.RenderError(c, "Failed to create company", err)
			return
		}

		utils.CreatedResponse(c, "Company created successfully", company)
	}
}

// handleGetCompanies lists every company (super admin only)
func handleGetCompanies(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		companies, err := st.ListCompanies(c.Request.Context())
		if err != nil {
			api.RenderError(c, "Failed to fetch companies", err)
			return
		}

		utils.OKResponse(c, "Companies retrieved successfully", companies)
	}
}

// handleGetCompany shows the caller's company
func handleGetCompany(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		company, err := st.GetCompany(c.Request.Context(), companyID)
		if err != nil {
			api.RenderError(c, "Failed to fetch company", err)
			return
		}

		utils.OKResponse(c, "Company retrieved successfully", company)
	}
}

// handleUpdateCompany edits the company profile and address (company admin only).
// Fields absent from the body keep their stored values.
func handleUpdateCompany(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		company, err := st.GetCompany(c.Request.Context(), companyID)
		if err != nil {
			api.RenderError(c, "Failed to fetch company", err)
			return
		}

		var patch json.RawMessage
		if !api.BindRoot(c, "company", &patch) {
			return
		}

		addressID := uuid.Nil
		if company.Address != nil {
			addressID = company.Address.ID
		}
		if err := json.Unmarshal(patch, company); err != nil {
			utils.BadRequestResponse(c, "Invalid company parameters")
			return
		}
		// identity is never taken from the body
		company.ID = companyID
		company.Employees = nil
		if company.Address != nil {
			company.Address.ID = addressID
			company.Address.CompanyID = companyID
		}

		if err := st.UpdateCompany(c.Request.Context(), company); err != nil {
			api.RenderError(c, "Failed to update company", err)
			return
		}

		utils.OKResponse(c, "Company updated successfully", company)
	}
}
