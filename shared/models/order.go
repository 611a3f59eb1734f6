package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderDetailStatus is the state of a single order line
type OrderDetailStatus string

const (
	OrderDetailAvailable   OrderDetailStatus = "available"
	OrderDetailUnavailable OrderDetailStatus = "unavailable"
	OrderDetailCancelled   OrderDetailStatus = "cancelled"
	OrderDetailDelivered   OrderDetailStatus = "delivered"
)

// OrderDetailStatuses is the closed set of statuses an order line may hold
var OrderDetailStatuses = []OrderDetailStatus{
	OrderDetailAvailable,
	OrderDetailUnavailable,
	OrderDetailCancelled,
	OrderDetailDelivered,
}

// Valid reports whether s belongs to OrderDetailStatuses
func (s OrderDetailStatus) Valid() bool {
	for _, allowed := range OrderDetailStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// Order groups the lines an employee ordered from one terminal
type Order struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID       `json:"company_id" gorm:"type:uuid;not null;index"`
	UserID     uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	TerminalID uuid.UUID       `json:"terminal_id" gorm:"type:uuid;not null;index"`
	Total      decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`
	PlacedAt   time.Time       `json:"placed_at" gorm:"not null"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// Relationships
	Details  []OrderDetail `json:"order_details,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	User     *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Terminal *Terminal     `json:"terminal,omitempty" gorm:"foreignKey:TerminalID"`
}

// OrderDetail is one line of an order, snapshotting its menu item at validation time
type OrderDetail struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID         `json:"order_id" gorm:"type:uuid;not null;index"`
	MenuItemID   uuid.UUID         `json:"menu_item_id" gorm:"type:uuid;not null;index"`
	TerminalID   uuid.UUID         `json:"terminal_id" gorm:"type:uuid;index"`
	MenuItemName string            `json:"menu_item_name" gorm:"not null" validate:"required"`
	Price        decimal.Decimal   `json:"price" gorm:"type:decimal(10,2);not null" validate:"required,gt=0"`
	Quantity     int               `json:"quantity" gorm:"not null" validate:"gt=0,lt=11"`
	Status       OrderDetailStatus `json:"status" gorm:"type:varchar(20);not null" validate:"required,oneof=available unavailable cancelled delivered"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	MenuItem *MenuItem `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID" validate:"-"`
	Order    *Order    `json:"-" gorm:"foreignKey:OrderID" validate:"-"`
}

func (Order) TableName() string {
	return "orders"
}

func (OrderDetail) TableName() string {
	return "order_details"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (d *OrderDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// ComputeTotal sums price x quantity over the order's lines
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range o.Details {
		if d.Status == OrderDetailCancelled {
			continue
		}
		total = total.Add(d.Price.Mul(decimal.NewFromInt(int64(d.Quantity))))
	}
	return total
}

// DerivedFields are the values an order line copies from its menu item
type DerivedFields struct {
	MenuItemName string
	Price        decimal.Decimal
	Status       OrderDetailStatus
}

// DeriveOrderDetailFields returns the snapshot an order line takes from item
func DeriveOrderDetailFields(item *MenuItem) DerivedFields {
	return DerivedFields{
		MenuItemName: item.Name,
		Price:        item.Price,
		Status:       OrderDetailAvailable,
	}
}

// AttachMenuItem links item to the line and overwrites name, price and status from it
func (d *OrderDetail) AttachMenuItem(item *MenuItem) {
	d.MenuItem = item
	d.MenuItemID = item.ID
	d.TerminalID = item.TerminalID
	d.SyncFromMenuItem()
}

// SyncFromMenuItem reapplies the menu item snapshot; a line without a linked item is left alone
func (d *OrderDetail) SyncFromMenuItem() {
	if d.MenuItem == nil {
		return
	}
	derived := DeriveOrderDetailFields(d.MenuItem)
	d.MenuItemName = derived.MenuItemName
	d.Price = derived.Price
	d.Status = derived.Status
}

// Validate checks the line's fields; it does not derive anything
func (d *OrderDetail) Validate() error {
	errs := validateStruct(d)
	if d.MenuItemID == uuid.Nil {
		errs.Add("menu_item", "can't be blank")
	}
	if d.OrderID == uuid.Nil {
		errs.Add("order", "can't be blank")
	}
	return errs.Err()
}
