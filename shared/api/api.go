// Package api holds the HTTP glue the services share: error rendering, path
// ids and the upload/download side of bulk imports.
package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// RenderError writes the response matching err; message prefixes unexpected failures
func RenderError(c *gin.Context, message string, err error) {
	if ve, ok := models.AsValidationError(err); ok {
		utils.ValidationErrorResponse(c, message, ve)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		utils.NotFoundResponse(c, err.Error())
		return
	}

	middleware.Logger(c).WithError(err).Error(message)
	utils.InternalServerErrorResponse(c, message)
}

// ParamID parses the path parameter name as a uuid; a malformed id is rendered as not found
func ParamID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.NotFoundResponse(c, fmt.Sprintf("%s not found", name))
		return uuid.Nil, false
	}
	return id, true
}

// ActorCompanyID returns the actor's company, or uuid.Nil for platform users
func ActorCompanyID(c *gin.Context) uuid.UUID {
	actor := middleware.GetActorFromContext(c)
	if actor == nil || actor.CompanyID == nil {
		return uuid.Nil
	}
	return *actor.CompanyID
}

// BindRoot decodes a body of the form {"<root>": {...}} into dst. A body
// without the root key is a malformed request and renders 400.
func BindRoot(c *gin.Context, root string, dst interface{}) bool {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return false
	}
	raw, ok := body[root]
	if !ok || len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		utils.BadRequestResponse(c, fmt.Sprintf("param is missing or the value is empty: %s", root))
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		utils.BadRequestResponse(c, fmt.Sprintf("Invalid %s parameters", root))
		return false
	}
	return true
}
