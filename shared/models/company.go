package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClockLayout is the time-of-day format of the ordering window fields
const ClockLayout = "15:04"

// Company is the tenant root; every terminal, user and order is scoped to one company
type Company struct {
	ID               uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Name             string          `json:"name" gorm:"not null" validate:"required,max=255"`
	Landline         string          `json:"landline" gorm:"type:varchar(10)" validate:"required,len=10,landline"`
	Email            string          `json:"email" gorm:"type:varchar(255)" validate:"required,email"`
	Subsidy          decimal.Decimal `json:"subsidy" gorm:"type:decimal(10,2);not null" validate:"gte=0"`
	StartOrderingAt  string          `json:"start_ordering_at" gorm:"type:varchar(5);not null" validate:"required,clock"`
	ReviewOrderingAt string          `json:"review_ordering_at" gorm:"type:varchar(5);not null" validate:"required,clock"`
	EndOrderingAt    string          `json:"end_ordering_at" gorm:"type:varchar(5);not null" validate:"required,clock"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Relationships
	Address   *Address `json:"address,omitempty" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" validate:"required"`
	Employees []User   `json:"employees,omitempty" gorm:"foreignKey:CompanyID" validate:"-"`
}

// Address is the postal address owned by exactly one company
type Address struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID `json:"company_id" gorm:"type:uuid;not null;uniqueIndex"`
	Line1      string    `json:"line1" gorm:"not null" validate:"required,max=255"`
	Line2      string    `json:"line2" validate:"max=255"`
	City       string    `json:"city" gorm:"not null" validate:"required"`
	State      string    `json:"state" gorm:"not null" validate:"required"`
	PostalCode string    `json:"postal_code" gorm:"type:varchar(6);not null" validate:"required,len=6,numeric"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the table name for the Company model
func (Company) TableName() string {
	return "companies"
}

// TableName returns the table name for the Address model
func (Address) TableName() string {
	return "addresses"
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Normalize trims and canonicalises user-entered fields
func (c *Company) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Landline = NormalizeLandline(c.Landline)
	c.Email = normalizeEmail(c.Email)
	if c.Address != nil {
		c.Address.Line1 = strings.TrimSpace(c.Address.Line1)
		c.Address.Line2 = strings.TrimSpace(c.Address.Line2)
		c.Address.City = strings.TrimSpace(c.Address.City)
		c.Address.State = strings.TrimSpace(c.Address.State)
		c.Address.PostalCode = strings.TrimSpace(c.Address.PostalCode)
	}
}

// Validate checks field constraints and that the ordering window is start < review < end
func (c *Company) Validate() error {
	errs := validateStruct(c)

	start, okStart := minuteOfDay(c.StartOrderingAt)
	review, okReview := minuteOfDay(c.ReviewOrderingAt)
	end, okEnd := minuteOfDay(c.EndOrderingAt)
	if okStart && okReview && review <= start {
		errs.Add("review_ordering_at", "must be after start_ordering_at")
	}
	if okReview && okEnd && end <= review {
		errs.Add("end_ordering_at", "must be after review_ordering_at")
	}

	return errs.Err()
}

// OrderingWindowOpen reports whether now falls inside [start, end) by time of day
func (c *Company) OrderingWindowOpen(now time.Time) bool {
	start, okStart := minuteOfDay(c.StartOrderingAt)
	end, okEnd := minuteOfDay(c.EndOrderingAt)
	if !okStart || !okEnd {
		return false
	}
	current := now.Hour()*60 + now.Minute()
	return current >= start && current < end
}

func minuteOfDay(clock string) (int, bool) {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
