package main

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pavitra93/food-ordering-admin/shared/api"
	"github.com/pavitra93/food-ordering-admin/shared/events"
	"github.com/pavitra93/food-ordering-admin/shared/importer"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/tenancy"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

func handleGetMenuItems(st *store.Store, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		terminal, ok := loadTerminal(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}

		items, err := st.ListMenuItems(c.Request.Context(), terminal.ID)
		if err != nil {
			api.RenderError(c, "Failed to fetch menu items", err)
			return
		}

		utils.OKResponse(c, "Menu items retrieved successfully", items)
	}
}

func handleCreateMenuItem(st *store.Store, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		terminal, ok := loadTerminal(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}

		item := &models.MenuItem{}
		if !api.BindRoot(c, "menu_item", item) {
			return
		}
		item.ID = uuid.Nil
		item.TerminalID = terminal.ID
		item.Terminal = nil

		if err := st.CreateMenuItem(c.Request.Context(), item); err != nil {
			api.RenderError(c, "Failed to create menu item", err)
			return
		}

		utils.CreatedResponse(c, "Menu item created successfully", item)
	}
}

// loadMenuItem loads the menu item of the :id path parameter and checks the
// actor holds perm in its terminal's company
func loadMenuItem(c *gin.Context, st *store.Store, am *middleware.AuthMiddleware, perm tenancy.Permission) (*models.MenuItem, bool) {
	itemID, ok := api.ParamID(c, "id")
	if !ok {
		return nil, false
	}

	item, err := st.GetMenuItem(c.Request.Context(), itemID)
	if err != nil {
		api.RenderError(c, "Failed to fetch menu item", err)
		return nil, false
	}

	owner := uuid.Nil
	if item.Terminal != nil {
		owner = item.Terminal.CompanyID
	}
	if !am.AuthorizeResource(c, owner, perm) {
		return nil, false
	}
	return item, true
}

func handleUpdateMenuItem(st *store.Store, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, ok := loadMenuItem(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}

		var patch json.RawMessage
		if !api.BindRoot(c, "menu_item", &patch) {
			return
		}

		id, terminalID := item.ID, item.TerminalID
		if err := json.Unmarshal(patch, item); err != nil {
			utils.BadRequestResponse(c, "Invalid menu_item parameters")
			return
		}
		item.ID = id
		item.TerminalID = terminalID
		item.Terminal = nil

		if err := st.UpdateMenuItem(c.Request.Context(), item); err != nil {
			api.RenderError(c, "Failed to update menu item", err)
			return
		}

		utils.OKResponse(c, "Menu item updated successfully", item)
	}
}

// handleDeleteMenuItem removes a menu item (company admin only)
func handleDeleteMenuItem(st *store.Store, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, ok := loadMenuItem(c, st, am, tenancy.PermissionAdmin)
		if !ok {
			return
		}

		if err := st.DeleteMenuItem(c.Request.Context(), item); err != nil {
			api.RenderError(c, "Failed to delete menu item", err)
			return
		}

		utils.OKResponse(c, "Menu item deleted successfully", nil)
	}
}

// handleImportMenuItems adds menu items to a terminal from an uploaded CSV
func handleImportMenuItems(st *store.Store, am *middleware.AuthMiddleware, artifacts importer.ArtifactStore, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		terminal, ok := loadTerminal(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}

		sheet, ok := api.ReadSheet(c, api.UploadField, importer.MenuItemSchema)
		if !ok {
			return
		}

		result := st.ImportMenuItems(c.Request.Context(), terminal.ID, sheet)
		summary := api.PublishResult(c, artifacts, terminal.ID, result)
		publishMenuImport(pub, terminal, middleware.GetActorFromContext(c), result)
		api.RespondImport(c, summary)
	}
}

// handleDownloadInvalidMenuItems serves the rows the terminal's last menu import rejected
func handleDownloadInvalidMenuItems(st *store.Store, am *middleware.AuthMiddleware, artifacts importer.ArtifactStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		terminal, ok := loadTerminal(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}

		api.DownloadRejected(c, artifacts, importer.KindMenuItems, terminal.ID)
	}
}
