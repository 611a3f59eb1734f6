package main

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/api"
	"github.com/pavitra93/food-ordering-admin/shared/events"
	"github.com/pavitra93/food-ordering-admin/shared/importer"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/search"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/tenancy"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// CreateUserRequest is the "user" root of a create request
type CreateUserRequest struct {
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	MobileNumber string          `json:"mobile_number"`
	Role         models.UserRole `json:"role"`
	Password     string          `json:"password"`
}

// CreateUserResponse is a created user plus its set-password token when the
// user was created without a password
type CreateUserResponse struct {
	*models.User
	ConfirmationToken string `json:"confirmation_token,omitempty"`
}

// ConfirmationResponse carries a freshly issued set-password token
type ConfirmationResponse struct {
	UserID            uuid.UUID `json:"user_id"`
	ConfirmationToken string    `json:"confirmation_token"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// UpdateUserStatusRequest is the "user" root of a status update
type UpdateUserStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// UserPage is one page of the users index
type UserPage struct {
	Users   []models.User `json:"users"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
	Total   int64         `json:"total"`
}

// handleGetUsers lists the company's users one page at a time
func handleGetUsers(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
		page := search.NewPage(number, perPage)

		users, total, err := st.ListUsers(c.Request.Context(), companyID, "", page)
		if err != nil {
			api.RenderError(c, "Failed to fetch users", err)
			return
		}

		utils.OKResponse(c, "Users retrieved successfully", UserPage{
			Users:   users,
			Page:    page.Number,
			PerPage: page.PerPage,
			Total:   total,
		})
	}
}

// handleSearchUsers filters the company's users by name, email or mobile number
func handleSearchUsers(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		users, err := st.SearchUsers(c.Request.Context(), companyID, c.Query("search_value"))
		if err != nil {
			api.RenderError(c, "Failed to search users", err)
			return
		}

		utils.OKResponse(c, "Users retrieved successfully", users)
	}
}

// handleCreateUser adds an employee to the company. Only company admins may
// create another admin.
func handleCreateUser(st *store.Store, am *middleware.AuthMiddleware, pub events.Publisher, confirmationTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		var req CreateUserRequest
		if !api.BindRoot(c, "user", &req) {
			return
		}

		actor := middleware.GetActorFromContext(c)
		role := req.Role
		if role == "" {
			role = models.RoleEmployee
		}
		if role != models.RoleEmployee && !actor.IsCompanyAdmin() {
			middleware.Logger(c).WithField("role", role).Warn("Non-admin tried to create a privileged user")
			am.Deny(c, tenancy.ErrInsufficientRole)
			return
		}

		user := models.NewEmployee(companyID, req.Name, req.Email, req.MobileNumber)
		user.Role = role
		if err := st.CreateUser(c.Request.Context(), user, req.Password); err != nil {
			api.RenderError(c, "Failed to create user", err)
			return
		}

		resp := CreateUserResponse{User: user}
		if req.Password == "" {
			resp.ConfirmationToken = issueConfirmation(c, user, confirmationTTL)
		}

		events.PublishLogged(pub, events.New(events.UserCreated, companyID, &actor.UserID, map[string]interface{}{
			"user_id": user.ID,
			"role":    user.Role,
		}))
		utils.CreatedResponse(c, "User created successfully", resp)
	}
}

// issueConfirmation hands out a set-password token for user. A failure is
// logged and yields no token; an admin can issue one later.
func issueConfirmation(c *gin.Context, user *models.User, ttl time.Duration) string {
	if utils.RedisClient == nil {
		return ""
	}
	token, err := utils.IssueConfirmationToken(user.ID, ttl)
	if err != nil {
		middleware.Logger(c).WithError(err).WithField("user_id", user.ID).Warn("Failed to issue confirmation token")
		return ""
	}
	return token
}

// handleIssueConfirmation issues a new set-password token for a user of the
// company (company admin only). Any earlier token of the user stops working.
func handleIssueConfirmation(st *store.Store, am *middleware.AuthMiddleware, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadCompanyUser(c, st, am, tenancy.PermissionAdmin)
		if !ok {
			return
		}
		if !user.IsActive {
			api.RenderError(c, "Failed to issue confirmation", models.FieldErrors{"is_active": {"must be true to set a password"}}.Err())
			return
		}

		token, err := utils.IssueConfirmationToken(user.ID, ttl)
		if err != nil {
			api.RenderError(c, "Failed to issue confirmation", err)
			return
		}

		middleware.Logger(c).WithField("user_id", user.ID).Info("Confirmation token issued")
		utils.CreatedResponse(c, "Confirmation issued successfully", ConfirmationResponse{
			UserID:            user.ID,
			ConfirmationToken: token,
			ExpiresAt:         time.Now().Add(ttl),
		})
	}
}

// loadCompanyUser loads the user named by :id and checks it belongs to the
// company in the path
func loadCompanyUser(c *gin.Context, st *store.Store, am *middleware.AuthMiddleware, perm tenancy.Permission) (*models.User, bool) {
	userID, ok := api.ParamID(c, "id")
	if !ok {
		return nil, false
	}

	user, err := st.GetUser(c.Request.Context(), userID)
	if err != nil {
		api.RenderError(c, "Failed to fetch user", err)
		return nil, false
	}

	owner := uuid.Nil
	if user.CompanyID != nil {
		owner = *user.CompanyID
	}
	if !am.AuthorizeResource(c, owner, perm) {
		return nil, false
	}
	return user, true
}

// handleGetUser shows one user of the company
func handleGetUser(st *store.Store, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadCompanyUser(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}

		utils.OKResponse(c, "User retrieved successfully", user)
	}
}

// handleUpdateUserStatus activates or deactivates a user (company admin
// only). Only the active flag is written; deactivation ends the user's sessions.
func handleUpdateUserStatus(st *store.Store, am *middleware.AuthMiddleware, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadCompanyUser(c, st, am, tenancy.PermissionAdmin)
		if !ok {
			return
		}

		var req UpdateUserStatusRequest
		if !api.BindRoot(c, "user", &req) {
			return
		}
		if req.IsActive == nil {
			utils.BadRequestResponse(c, "param is missing or the value is empty: user.is_active")
			return
		}

		actor := middleware.GetActorFromContext(c)
		if user.ID == actor.UserID && !*req.IsActive {
			api.RenderError(c, "Failed to update user", models.FieldErrors{"is_active": {"can't be turned off for yourself"}}.Err())
			return
		}

		if err := st.SetUserActive(c.Request.Context(), user, *req.IsActive); err != nil {
			api.RenderError(c, "Failed to update user", err)
			return
		}

		if !user.IsActive && utils.RedisClient != nil {
			if err := utils.RevokeAllUserSessions(user.ID); err != nil {
				middleware.Logger(c).WithError(err).Warn("Failed to revoke sessions of deactivated user")
			}
		}

		middleware.Logger(c).WithFields(logrus.Fields{
			"user_id":   user.ID,
			"is_active": user.IsActive,
		}).Info("User status changed")
		events.PublishLogged(pub, events.New(events.UserStatusChanged, *user.CompanyID, &actor.UserID, map[string]interface{}{
			"user_id":   user.ID,
			"is_active": user.IsActive,
		}))
		utils.OKResponse(c, "User updated successfully", user)
	}
}

// handleImportUsers creates employees from an uploaded CSV; valid rows are
// kept even when others are rejected
func handleImportUsers(st *store.Store, artifacts importer.ArtifactStore, pub events.Publisher, confirmationTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		sheet, ok := api.ReadSheet(c, api.UploadField, importer.EmployeeSchema)
		if !ok {
			return
		}

		var confirmations []api.Confirmation
		result := st.ImportEmployees(c.Request.Context(), companyID, sheet, func(user *models.User) {
			if token := issueConfirmation(c, user, confirmationTTL); token != "" {
				confirmations = append(confirmations, api.Confirmation{UserID: user.ID, Email: user.Email, Token: token})
			}
		})
		summary := api.PublishResult(c, artifacts, companyID, result)
		summary.Confirmations = confirmations

		actor := middleware.GetActorFromContext(c)
		events.PublishLogged(pub, events.New(events.EmployeesImported, companyID, &actor.UserID, map[string]interface{}{
			"imported": result.Imported,
			"rejected": len(result.Rejected),
		}))
		api.RespondImport(c, summary)
	}
}

// handleDownloadInvalidUsers serves the rows the last employee import rejected
func handleDownloadInvalidUsers(artifacts importer.ArtifactStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		api.DownloadRejected(c, artifacts, importer.KindEmployees, companyID)
	}
}
