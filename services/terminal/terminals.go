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

// MenuFileField is the optional multipart file of a terminal creation
const MenuFileField = "CSV_menu_file"

// CreateTerminalResponse is a created terminal plus the outcome of its
// embedded menu import, when one was sent
type CreateTerminalResponse struct {
	Terminal *models.Terminal    `json:"terminal"`
	Menu     *api.ImportResponse `json:"menu_import,omitempty"`
}

// handleGetTerminals lists the company's terminals, filtered by ?search=
func handleGetTerminals(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		terminals, err := st.ListTerminals(c.Request.Context(), companyID, c.Query("search"))
		if err != nil {
			api.RenderError(c, "Failed to fetch terminals", err)
			return
		}

		utils.OKResponse(c, "Terminals retrieved successfully", terminals)
	}
}

// bindNewTerminal reads the terminal of a create request. A JSON body
// carries it under the "terminal" root; a multipart body carries that JSON
// in the "terminal" form field next to an optional menu file, which is
// parsed here so a malformed file stops the request before anything is written.
func bindNewTerminal(c *gin.Context) (*models.Terminal, *importer.Sheet, bool) {
	terminal := &models.Terminal{}
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return terminal, nil, api.BindRoot(c, "terminal", terminal)
	}

	raw := c.PostForm("terminal")
	if raw == "" {
		utils.BadRequestResponse(c, "param is missing or the value is empty: terminal")
		return nil, nil, false
	}
	if err := json.Unmarshal([]byte(raw), terminal); err != nil {
		utils.BadRequestResponse(c, "Invalid terminal parameters")
		return nil, nil, false
	}

	header, err := c.FormFile(MenuFileField)
	if err != nil {
		return terminal, nil, true
	}
	sheet, ok := api.ParseUpload(c, header, importer.MenuItemSchema)
	if !ok {
		return nil, nil, false
	}
	return terminal, sheet, true
}

// handleCreateTerminal creates a terminal of the company and imports its
// embedded menu file after the terminal is stored
func handleCreateTerminal(st *store.Store, artifacts importer.ArtifactStore, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		terminal, menu, ok := bindNewTerminal(c)
		if !ok {
			return
		}
		terminal.ID = uuid.Nil
		terminal.CompanyID = companyID
		terminal.MenuItems = nil

		ctx := c.Request.Context()
		if err := st.CreateTerminal(ctx, terminal); err != nil {
			api.RenderError(c, "Failed to create terminal", err)
			return
		}

		actor := middleware.GetActorFromContext(c)
		events.PublishLogged(pub, events.New(events.TerminalCreated, companyID, &actor.UserID, map[string]interface{}{
			"terminal_id": terminal.ID,
			"name":        terminal.Name,
		}))

		resp := CreateTerminalResponse{Terminal: terminal}
		if menu != nil {
			result := st.ImportMenuItems(ctx, terminal.ID, menu)
			summary := api.PublishResult(c, artifacts, terminal.ID, result)
			publishMenuImport(pub, terminal, actor, result)
			resp.Menu = &summary
		}

		utils.CreatedResponse(c, "Terminal created successfully", resp)
	}
}

// loadTerminal loads the terminal of the :terminal_id path parameter and
// checks the actor holds perm in the terminal's company
func loadTerminal(c *gin.Context, st *store.Store, am *middleware.AuthMiddleware, perm tenancy.Permission) (*models.Terminal, bool) {
	terminalID, ok := api.ParamID(c, "terminal_id")
	if !ok {
		return nil, false
	}

	terminal, err := st.GetTerminal(c.Request.Context(), terminalID)
	if err != nil {
		api.RenderError(c, "Failed to fetch terminal", err)
		return nil, false
	}
	if !am.AuthorizeResource(c, terminal.CompanyID, perm) {
		return nil, false
	}
	return terminal, true
}

func handleGetTerminal(st *store.Store, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		terminal, ok := loadTerminal(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}

		utils.OKResponse(c, "Terminal retrieved successfully", terminal)
	}
}

// handleUpdateTerminal edits a terminal; fields absent from the body keep
// their stored values
func handleUpdateTerminal(st *store.Store, am *middleware.AuthMiddleware, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		terminal, ok := loadTerminal(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}

		var patch json.RawMessage
		if !api.BindRoot(c, "terminal", &patch) {
			return
		}

		id, companyID := terminal.ID, terminal.CompanyID
		if err := json.Unmarshal(patch, terminal); err != nil {
			utils.BadRequestResponse(c, "Invalid terminal parameters")
			return
		}
		terminal.ID = id
		terminal.CompanyID = companyID
		terminal.MenuItems = nil
		terminal.Company = nil

		if err := st.UpdateTerminal(c.Request.Context(), terminal); err != nil {
			api.RenderError(c, "Failed to update terminal", err)
			return
		}

		actor := middleware.GetActorFromContext(c)
		events.PublishLogged(pub, events.New(events.TerminalUpdated, companyID, &actor.UserID, map[string]interface{}{
			"terminal_id": terminal.ID,
			"name":        terminal.Name,
		}))
		utils.OKResponse(c, "Terminal updated successfully", terminal)
	}
}

// handleDeleteTerminal removes a terminal with its menu (company admin only).
// Terminals with order history are kept.
func handleDeleteTerminal(st *store.Store, am *middleware.AuthMiddleware, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		terminal, ok := loadTerminal(c, st, am, tenancy.PermissionAdmin)
		if !ok {
			return
		}

		if err := st.DeleteTerminal(c.Request.Context(), terminal); err != nil {
			api.RenderError(c, "Failed to delete terminal", err)
			return
		}

		actor := middleware.GetActorFromContext(c)
		events.PublishLogged(pub, events.New(events.TerminalDeleted, terminal.CompanyID, &actor.UserID, map[string]interface{}{
			"terminal_id": terminal.ID,
			"name":        terminal.Name,
		}))
		utils.OKResponse(c, "Terminal deleted successfully", nil)
	}
}

func publishMenuImport(pub events.Publisher, terminal *models.Terminal, actor *models.Actor, result *importer.Result) {
	events.PublishLogged(pub, events.New(events.MenuItemsImported, terminal.CompanyID, &actor.UserID, map[string]interface{}{
		"terminal_id": terminal.ID,
		"imported":    result.Imported,
		"rejected":    len(result.Rejected),
	}))
}
