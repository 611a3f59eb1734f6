package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pavitra93/food-ordering-admin/shared/models"
)

// OrderLine is a requested order line
type OrderLine struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
}

// PlaceOrder creates an order of user at terminal. Every line must name a
// menu item of the terminal, the total must reach the terminal's minimum and
// the company's ordering window must be open.
func (s *Store) PlaceOrder(ctx context.Context, company *models.Company, user *models.User, terminal *models.Terminal, lines []OrderLine) (*models.Order, error) {
	fields := models.FieldErrors{}
	if terminal.CompanyID != company.ID {
		fields.Add("terminal", "must belong to the company")
	}
	if user.CompanyID == nil || *user.CompanyID != company.ID {
		fields.Add("user", "must belong to the company")
	}
	if !company.OrderingWindowOpen(s.now()) {
		fields.Add("base", fmt.Sprintf("orders are accepted between %s and %s", company.StartOrderingAt, company.EndOrderingAt))
	}
	if len(lines) == 0 {
		fields.Add("order_details", "can't be blank")
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = line.MenuItemID
	}
	var items []models.MenuItem
	if err := s.conn(ctx).Where("id IN ? AND terminal_id = ?", ids, terminal.ID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch menu items: %w", err)
	}
	menu := make(map[uuid.UUID]*models.MenuItem, len(items))
	for i := range items {
		menu[items[i].ID] = &items[i]
	}

	order := &models.Order{
		ID:         uuid.New(),
		CompanyID:  company.ID,
		UserID:     user.ID,
		TerminalID: terminal.ID,
		PlacedAt:   s.now(),
	}
	for i, line := range lines {
		prefix := fmt.Sprintf("order_details[%d].", i)
		detail := models.OrderDetail{OrderID: order.ID, Quantity: line.Quantity}

		item, ok := menu[line.MenuItemID]
		if !ok {
			fields.Add(prefix+"menu_item", "must be on the terminal's menu")
		} else {
			detail.AttachMenuItem(item)
		}
		collect(fields, prefix, detail.Validate())
		order.Details = append(order.Details, detail)
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	order.Total = order.ComputeTotal()
	if order.Total.LessThan(terminal.MinOrderAmount) {
		return nil, models.FieldErrors{
			"total": {fmt.Sprintf("must be at least %s", terminal.MinOrderAmount.StringFixed(2))},
		}.Err()
	}

	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		for i := range order.Details {
			if err := tx.Omit(clause.Associations).Create(&order.Details[i]).Error; err != nil {
				return fmt.Errorf("failed to create order detail: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns a company's orders, newest first. A non-nil userID
// limits the list to that user's orders.
func (s *Store) ListOrders(ctx context.Context, companyID uuid.UUID, userID *uuid.UUID) ([]models.Order, error) {
	query := s.conn(ctx).Where("company_id = ?", companyID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var orders []models.Order
	if err := query.Preload("Details").Order("placed_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

// GetOrder loads an order with its lines
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.conn(ctx).Preload("Details").First(&order, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "order")
	}
	return &order, nil
}

func (s *Store) getDetail(tx *gorm.DB, orderID, detailID uuid.UUID) (*models.OrderDetail, error) {
	var detail models.OrderDetail
	err := tx.Preload("MenuItem").First(&detail, "id = ? AND order_id = ?", detailID, orderID).Error
	if err != nil {
		return nil, notFound(err, "order detail")
	}
	return &detail, nil
}

// UpdateDetailQuantity changes a line's quantity. The line is re-derived from
// its menu item, so name, price and status follow the current menu. Only
// available lines can change; a cancelled or delivered line is settled.
func (s *Store) UpdateDetailQuantity(ctx context.Context, orderID, detailID uuid.UUID, quantity int) (*models.OrderDetail, error) {
	var detail *models.OrderDetail
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if detail, err = s.getDetail(tx, orderID, detailID); err != nil {
			return err
		}
		if detail.Status != models.OrderDetailAvailable {
			return models.FieldErrors{
				"status": {fmt.Sprintf("can't change quantity of a %s line", detail.Status)},
			}.Err()
		}

		detail.Quantity = quantity
		detail.SyncFromMenuItem()
		if err := detail.Validate(); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(detail).Error; err != nil {
			return fmt.Errorf("failed to update order detail: %w", err)
		}
		return refreshTotal(tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateDetailStatus writes only the status column of a line, without
// re-deriving it
func (s *Store) UpdateDetailStatus(ctx context.Context, orderID, detailID uuid.UUID, status models.OrderDetailStatus) (*models.OrderDetail, error) {
	if !status.Valid() {
		return nil, models.FieldErrors{"status": {"is not included in the list"}}.Err()
	}

	var detail *models.OrderDetail
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if detail, err = s.getDetail(tx, orderID, detailID); err != nil {
			return err
		}
		if err := tx.Model(detail).UpdateColumn("status", status).Error; err != nil {
			return fmt.Errorf("failed to update order detail status: %w", err)
		}
		detail.Status = status
		return refreshTotal(tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func refreshTotal(tx *gorm.DB, orderID uuid.UUID) error {
	var order models.Order
	if err := tx.Preload("Details").First(&order, "id = ?", orderID).Error; err != nil {
		return notFound(err, "order")
	}
	if err := tx.Model(&order).UpdateColumn("total", order.ComputeTotal()).Error; err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}
	return nil
}
