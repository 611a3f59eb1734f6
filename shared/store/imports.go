package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pavitra93/food-ordering-admin/shared/importer"
	"github.com/pavitra93/food-ordering-admin/shared/models"
)

// MenuItemRow is one line of a menu item file
type MenuItemRow struct {
	Name  string
	Price string
}

// EmployeeRow is one line of an employee file
type EmployeeRow struct {
	Name         string
	Email        string
	MobileNumber string
}

func menuItemRow(row importer.Row) MenuItemRow {
	return MenuItemRow{Name: row.Get("name"), Price: row.Get("price")}
}

func employeeRow(row importer.Row) EmployeeRow {
	return EmployeeRow{
		Name:         row.Get("name"),
		Email:        row.Get("email"),
		MobileNumber: row.Get("mobile_number"),
	}
}

// MenuItem converts the row into an unsaved menu item of terminalID
func (r MenuItemRow) MenuItem(terminalID uuid.UUID) (*models.MenuItem, error) {
	item := &models.MenuItem{TerminalID: terminalID, Name: r.Name}
	if r.Price == "" {
		return item, nil
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, models.FieldErrors{"price": {"is not a number"}}.Err()
	}
	item.Price = price
	return item, nil
}

// User converts the row into an unsaved active employee of companyID
func (r EmployeeRow) User(companyID uuid.UUID) *models.User {
	return models.NewEmployee(companyID, r.Name, r.Email, r.MobileNumber)
}

// ImportMenuItems creates one menu item of terminalID per row, each row in
// its own transaction
func (s *Store) ImportMenuItems(ctx context.Context, terminalID uuid.UUID, sheet *importer.Sheet) *importer.Result {
	return importer.Run(ctx, sheet, func(ctx context.Context, row importer.Row) error {
		item, err := menuItemRow(row).MenuItem(terminalID)
		if err != nil {
			return err
		}
		return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
			return createMenuItem(tx, item)
		})
	})
}

// ImportEmployees creates one employee of companyID per row, each row in its
// own transaction. Imported employees have no password; created, when not
// nil, sees every committed employee so a set-password token can be issued.
func (s *Store) ImportEmployees(ctx context.Context, companyID uuid.UUID, sheet *importer.Sheet, created func(*models.User)) *importer.Result {
	return importer.Run(ctx, sheet, func(ctx context.Context, row importer.Row) error {
		user := employeeRow(row).User(companyID)
		err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
			return s.createUser(tx, user, "")
		})
		if err == nil && created != nil {
			created(user)
		}
		return err
	})
}
