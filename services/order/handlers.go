package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/api"
	"github.com/pavitra93/food-ordering-admin/shared/events"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/tenancy"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// PlaceOrderRequest is the "order" root of a new order
type PlaceOrderRequest struct {
	TerminalID   uuid.UUID         `json:"terminal_id"`
	OrderDetails []store.OrderLine `json:"order_details"`
}

// UpdateQuantityRequest is the "order_detail" root of a quantity change
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// UpdateStatusRequest is the "order_detail" root of a status change
type UpdateStatusRequest struct {
	Status models.OrderDetailStatus `json:"status"`
}

// handlePlaceOrder places an order for the signed-in user at one of the
// company's terminals
func handlePlaceOrder(st *store.Store, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		var req PlaceOrderRequest
		if !api.BindRoot(c, "order", &req) {
			return
		}

		ctx := c.Request.Context()
		actor := middleware.GetActorFromContext(c)

		company, err := st.GetCompany(ctx, companyID)
		if err != nil {
			api.RenderError(c, "Failed to fetch company", err)
			return
		}
		user, err := st.GetUser(ctx, actor.UserID)
		if err != nil {
			api.RenderError(c, "Failed to fetch user", err)
			return
		}
		terminal, err := st.GetTerminal(ctx, req.TerminalID)
		if err != nil {
			api.RenderError(c, "Failed to place order", models.FieldErrors{"terminal": {"must exist"}}.Err())
			return
		}

		order, err := st.PlaceOrder(ctx, company, user, terminal, req.OrderDetails)
		if err != nil {
			api.RenderError(c, "Failed to place order", err)
			return
		}

		middleware.Logger(c).WithFields(logrus.Fields{
			"order_id":    order.ID,
			"terminal_id": terminal.ID,
			"total":       order.Total.StringFixed(2),
		}).Info("Order placed")
		events.PublishLogged(pub, events.New(events.OrderPlaced, companyID, &actor.UserID, map[string]interface{}{
			"order_id":    order.ID,
			"terminal_id": terminal.ID,
			"total":       order.Total.StringFixed(2),
		}))
		utils.CreatedResponse(c, "Order placed successfully", order)
	}
}

// handleGetOrders lists the company's orders. Employees only see their own.
func handleGetOrders(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := api.ParamID(c, "company_id")
		if !ok {
			return
		}

		var userID *uuid.UUID
		if actor := middleware.GetActorFromContext(c); !actor.IsCompanyAdmin() {
			userID = &actor.UserID
		}

		orders, err := st.ListOrders(c.Request.Context(), companyID, userID)
		if err != nil {
			api.RenderError(c, "Failed to fetch orders", err)
			return
		}

		utils.OKResponse(c, "Orders retrieved successfully", orders)
	}
}

// loadOrder loads the order of the :order_id path parameter. The actor must
// belong to its company and, unless a company admin, have placed it.
func loadOrder(c *gin.Context, st *store.Store, am *middleware.AuthMiddleware, perm tenancy.Permission) (*models.Order, bool) {
	orderID, ok := api.ParamID(c, "order_id")
	if !ok {
		return nil, false
	}

	order, err := st.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		api.RenderError(c, "Failed to fetch order", err)
		return nil, false
	}
	if !am.AuthorizeResource(c, order.CompanyID, perm) {
		return nil, false
	}

	actor := middleware.GetActorFromContext(c)
	if !actor.IsCompanyAdmin() && order.UserID != actor.UserID {
		am.Deny(c, tenancy.ErrForeignResource)
		return nil, false
	}
	return order, true
}

func handleGetOrder(st *store.Store, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := loadOrder(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}

		utils.OKResponse(c, "Order retrieved successfully", order)
	}
}

// handleUpdateDetailQuantity changes a line's quantity; the line takes the
// current name and price of its menu item again
func handleUpdateDetailQuantity(st *store.Store, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := loadOrder(c, st, am, tenancy.PermissionMember)
		if !ok {
			return
		}
		detailID, ok := api.ParamID(c, "detail_id")
		if !ok {
			return
		}

		var req UpdateQuantityRequest
		if !api.BindRoot(c, "order_detail", &req) {
			return
		}
		if req.Quantity == nil {
			utils.BadRequestResponse(c, "param is missing or the value is empty: order_detail.quantity")
			return
		}

		detail, err := st.UpdateDetailQuantity(c.Request.Context(), order.ID, detailID, *req.Quantity)
		if err != nil {
			api.RenderError(c, "Failed to update order detail", err)
			return
		}

		utils.OKResponse(c, "Order detail updated successfully", detail)
	}
}

// handleUpdateDetailStatus sets a line's status (company admin only)
func handleUpdateDetailStatus(st *store.Store, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := loadOrder(c, st, am, tenancy.PermissionAdmin)
		if !ok {
			return
		}
		detailID, ok := api.ParamID(c, "detail_id")
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if !api.BindRoot(c, "order_detail", &req) {
			return
		}
		if req.Status == "" {
			utils.BadRequestResponse(c, "param is missing or the value is empty: order_detail.status")
			return
		}

		detail, err := st.UpdateDetailStatus(c.Request.Context(), order.ID, detailID, req.Status)
		if err != nil {
			api.RenderError(c, "Failed to update order detail", err)
			return
		}

		utils.OKResponse(c, "Order detail updated successfully", detail)
	}
}
