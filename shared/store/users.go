package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/search"
)

// UserSearchColumns are matched by the users search box
var UserSearchColumns = []string{"name", "email", "mobile_number"}

// CreateUser stores a user after checking that the email is not taken.
// An empty password leaves the account without a login until the user
// confirms it with a set-password token.
func (s *Store) CreateUser(ctx context.Context, user *models.User, password string) error {
	return s.createUser(s.conn(ctx), user, password)
}

func (s *Store) createUser(tx *gorm.DB, user *models.User, password string) error {
	user.Normalize()

	fields := models.FieldErrors{}
	collect(fields, "", user.Validate())
	if password != "" {
		collect(fields, "", user.SetPassword(password))
	}

	taken, err := exists(tx, &models.User{}, "email = ?", user.Email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if err := mergeTaken(fields.Err(), "email", taken); err != nil {
		return err
	}

	if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
		if taken := takenOnWrite(err, "email"); taken != nil {
			return taken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// SetUserPassword replaces a user's password; only the hash column is written
func (s *Store) SetUserPassword(ctx context.Context, user *models.User, password string) error {
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := s.conn(ctx).Model(user).UpdateColumn("password_hash", user.PasswordHash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// ListUsers returns one page of a company's users matching query, plus the
// number of matching users across all pages
func (s *Store) ListUsers(ctx context.Context, companyID uuid.UUID, query string, page search.Page) ([]models.User, int64, error) {
	scoped := func() *gorm.DB {
		return s.conn(ctx).Model(&models.User{}).
			Where("company_id = ?", companyID).
			Scopes(search.Contains(query, UserSearchColumns...))
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := scoped().Order("name ASC").Scopes(search.Paginate(page)).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, total, nil
}

// SearchUsers returns every user of a company matching query
func (s *Store) SearchUsers(ctx context.Context, companyID uuid.UUID, query string) ([]models.User, error) {
	var users []models.User
	err := s.conn(ctx).
		Where("company_id = ?", companyID).
		Scopes(search.Contains(query, UserSearchColumns...)).
		Order("name ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// GetUser loads any user by id
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// FindUserByEmail loads a user for login
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.conn(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// SetUserActive writes only the active flag of user
func (s *Store) SetUserActive(ctx context.Context, user *models.User, active bool) error {
	if err := s.conn(ctx).Model(user).UpdateColumn("is_active", active).Error; err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	user.IsActive = active
	return nil
}

// TouchLastLogin records a successful login
func (s *Store) TouchLastLogin(ctx context.Context, user *models.User) error {
	now := s.now()
	if err := s.conn(ctx).Model(user).UpdateColumn("last_login_at", now).Error; err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now
	return nil
}

// CountUsers counts the users of a company
func (s *Store) CountUsers(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.User{}).Where("company_id = ?", companyID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CreateSuperAdmin stores a platform super admin with no company
func (s *Store) CreateSuperAdmin(ctx context.Context, name, email, mobile, password string) (*models.User, error) {
	user := &models.User{
		Name:         name,
		Email:        email,
		MobileNumber: mobile,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}
	if password == "" {
		return nil, models.FieldErrors{"password": {"can't be blank"}}.Err()
	}
	if err := s.CreateUser(ctx, user, password); err != nil {
		return nil, err
	}
	return user, nil
}
