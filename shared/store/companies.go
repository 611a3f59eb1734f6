package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pavitra93/food-ordering-admin/shared/models"
)

// CreateCompany stores company, its address and admin, the company's first
// employee, in a single transaction. admin is forced to the company_admin role.
func (s *Store) CreateCompany(ctx context.Context, company *models.Company, admin *models.User, password string) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	company.Normalize()

	companyID := company.ID
	admin.CompanyID = &companyID
	admin.Role = models.RoleCompanyAdmin
	admin.IsActive = true
	admin.Normalize()

	fields := models.FieldErrors{}
	collect(fields, "", company.Validate())
	collect(fields, "employees.", admin.Validate())
	collect(fields, "employees.", admin.SetPassword(password))
	if err := fields.Err(); err != nil {
		return err
	}

	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx, &models.User{}, "email = ?", admin.Email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return models.FieldErrors{"employees.email": {takenMessage}}.Err()
		}

		if err := tx.Omit(clause.Associations).Create(company).Error; err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		company.Address.CompanyID = company.ID
		if err := tx.Create(company.Address).Error; err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		if err := tx.Omit(clause.Associations).Create(admin).Error; err != nil {
			if taken := takenOnWrite(err, "employees.email"); taken != nil {
				return taken
			}
			return fmt.Errorf("failed to create company admin: %w", err)
		}
		company.Employees = []models.User{*admin}
		return nil
	})
}

// collect merges the field errors of err under prefix; other errors are kept on "base"
func collect(fields models.FieldErrors, prefix string, err error) {
	if err == nil {
		return
	}
	ve, ok := models.AsValidationError(err)
	if !ok {
		fields.Add("base", err.Error())
		return
	}
	for field, messages := range ve.Fields {
		for _, m := range messages {
			fields.Add(prefix+field, m)
		}
	}
}

// GetCompany loads a company with its address
func (s *Store) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := s.conn(ctx).Preload("Address").First(&company, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "company")
	}
	return &company, nil
}

// ListCompanies returns every company, newest first
func (s *Store) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := s.conn(ctx).Preload("Address").Order("created_at DESC").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}
	return companies, nil
}

// UpdateCompany saves the profile and address of an existing company
func (s *Store) UpdateCompany(ctx context.Context, company *models.Company) error {
	company.Normalize()
	if err := company.Validate(); err != nil {
		return err
	}

	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(company).Error; err != nil {
			return fmt.Errorf("failed to update company: %w", err)
		}
		company.Address.CompanyID = company.ID
		if err := tx.Save(company.Address).Error; err != nil {
			return fmt.Errorf("failed to update address: %w", err)
		}
		return nil
	})
}
