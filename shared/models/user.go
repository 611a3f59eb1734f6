package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is an employee of a company, or a platform super admin with no company
type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty" gorm:"type:uuid;index"`
	Name         string     `json:"name" gorm:"not null" validate:"required,max=255"`
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null" validate:"required,email"`
	MobileNumber string     `json:"mobile_number" gorm:"type:varchar(10);not null" validate:"required,len=10,numeric"`
	Role         UserRole   `json:"role" gorm:"type:varchar(20);not null" validate:"required,oneof=company_admin employee super_admin"`
	IsActive     bool       `json:"is_active" gorm:"not null"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID" validate:"-"`
}

type UserRole string

const (
	RoleSuperAdmin   UserRole = "super_admin"
	RoleCompanyAdmin UserRole = "company_admin"
	RoleEmployee     UserRole = "employee"
)

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// NewEmployee builds an active employee of the given company
func NewEmployee(companyID uuid.UUID, name, email, mobile string) *User {
	id := companyID
	return &User{
		CompanyID:    &id,
		Name:         name,
		Email:        email,
		MobileNumber: mobile,
		Role:         RoleEmployee,
		IsActive:     true,
	}
}

func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = normalizeEmail(u.Email)
	u.MobileNumber = strings.TrimSpace(u.MobileNumber)
}

// Validate checks field constraints; every role except super_admin needs a company
func (u *User) Validate() error {
	errs := validateStruct(u)
	if u.Role != RoleSuperAdmin && (u.CompanyID == nil || *u.CompanyID == uuid.Nil) {
		errs.Add("company", "can't be blank")
	}
	if u.Role == RoleSuperAdmin && u.CompanyID != nil {
		errs.Add("company", "must be blank for super_admin")
	}
	return errs.Err()
}

// ValidatePassword checks a new password before it is hashed
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return (FieldErrors{"password": {"is too short (minimum is 8 characters)"}}).Err()
	}
	return nil
}

// SetPassword stores a bcrypt hash of password
func (u *User) SetPassword(password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Actor returns the signed-in identity derived from this user
func (u *User) Actor() *Actor {
	return &Actor{
		UserID:    u.ID,
		CompanyID: u.CompanyID,
		Role:      u.Role,
		Email:     u.Email,
	}
}

// Actor is the authenticated caller of a request
type Actor struct {
	UserID    uuid.UUID  `json:"user_id"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	Role      UserRole   `json:"role"`
	Email     string     `json:"email"`
}

func (a *Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

func (a *Actor) IsCompanyAdmin() bool {
	return a.Role == RoleCompanyAdmin
}

// BelongsTo reports whether the actor is a member of companyID
func (a *Actor) BelongsTo(companyID uuid.UUID) bool {
	return a.CompanyID != nil && *a.CompanyID == companyID
}

// UserProfile represents the user profile stored in Redis
type UserProfile struct {
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
}

// Actor converts the cached profile into a request actor
func (p UserProfile) Actor() *Actor {
	return &Actor{
		UserID:    p.UserID,
		CompanyID: p.CompanyID,
		Role:      p.Role,
		Email:     p.Email,
	}
}

// Profile returns the session profile of u
func (u *User) Profile() UserProfile {
	return UserProfile{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CompanyID: u.CompanyID,
	}
}

// TokenSession represents a session stored in Redis
type TokenSession struct {
	UserProfile UserProfile `json:"user_profile"`
	CreatedAt   time.Time   `json:"created_at"`
	LastUsedAt  time.Time   `json:"last_used_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	SessionID   string      `json:"session_id"`
}

func (ts *TokenSession) IsExpired() bool {
	return time.Now().After(ts.ExpiresAt)
}

func (ts *TokenSession) UpdateLastUsed() {
	ts.LastUsedAt = time.Now()
}
