package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Terminal is a vendor outlet of a company
type Terminal struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID      uuid.UUID       `json:"company_id" gorm:"type:uuid;not null;index"`
	Name           string          `json:"name" gorm:"not null" validate:"required,max=255"`
	Landline       string          `json:"landline" gorm:"type:varchar(10);uniqueIndex;not null" validate:"required,len=10,landline"`
	Email          string          `json:"email" gorm:"type:varchar(255)" validate:"omitempty,email"`
	PaymentMade    decimal.Decimal `json:"payment_made" gorm:"type:decimal(10,2);not null" validate:"gte=0"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount" gorm:"type:decimal(10,2);not null" validate:"gte=0"`
	Tax            string          `json:"tax" gorm:"type:varchar(10)" validate:"omitempty,numeric"`
	GSTIN          string          `json:"gstin" gorm:"column:gstin;type:varchar(15)" validate:"omitempty,gstin"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relationships
	Company   *Company   `json:"company,omitempty" gorm:"foreignKey:CompanyID" validate:"-"`
	MenuItems []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:TerminalID;constraint:OnDelete:CASCADE" validate:"-"`
}

// MenuItem is a dish offered by a terminal
type MenuItem struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	TerminalID uuid.UUID       `json:"terminal_id" gorm:"type:uuid;not null;index"`
	Name       string          `json:"name" gorm:"not null" validate:"required,max=255"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null" validate:"gt=0"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Terminal *Terminal `json:"terminal,omitempty" gorm:"foreignKey:TerminalID" validate:"-"`
}

func (Terminal) TableName() string {
	return "terminals"
}

func (MenuItem) TableName() string {
	return "menu_items"
}

func (t *Terminal) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (t *Terminal) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Landline = NormalizeLandline(t.Landline)
	t.Email = normalizeEmail(t.Email)
	t.Tax = strings.TrimSpace(t.Tax)
	t.GSTIN = strings.ToUpper(strings.TrimSpace(t.GSTIN))
}

// Validate checks the terminal's own fields; landline uniqueness needs the store
func (t *Terminal) Validate() error {
	errs := validateStruct(t)
	if t.CompanyID == uuid.Nil {
		errs.Add("company", "can't be blank")
	}
	return errs.Err()
}

func (m *MenuItem) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
}

func (m *MenuItem) Validate() error {
	errs := validateStruct(m)
	if m.TerminalID == uuid.Nil {
		errs.Add("terminal", "can't be blank")
	}
	return errs.Err()
}
