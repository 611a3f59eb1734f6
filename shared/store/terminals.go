package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/search"
)

// TerminalSearchColumns are matched by the terminals search box
var TerminalSearchColumns = []string{"name", "landline", "email"}

const restrictMessage = "Cannot delete record because dependent order details exist"

// ListTerminals returns a company's terminals matching query
func (s *Store) ListTerminals(ctx context.Context, companyID uuid.UUID, query string) ([]models.Terminal, error) {
	var terminals []models.Terminal
	err := s.conn(ctx).
		Where("company_id = ?", companyID).
		Scopes(search.Contains(query, TerminalSearchColumns...)).
		Order("name ASC").
		Find(&terminals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch terminals: %w", err)
	}
	return terminals, nil
}

// GetTerminal loads any terminal by id; callers check its company
func (s *Store) GetTerminal(ctx context.Context, id uuid.UUID) (*models.Terminal, error) {
	var terminal models.Terminal
	if err := s.conn(ctx).First(&terminal, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "terminal")
	}
	return &terminal, nil
}

// CreateTerminal stores a new terminal; the landline must be unique across companies
func (s *Store) CreateTerminal(ctx context.Context, terminal *models.Terminal) error {
	return s.saveTerminal(ctx, terminal, true)
}

// UpdateTerminal saves an existing terminal
func (s *Store) UpdateTerminal(ctx context.Context, terminal *models.Terminal) error {
	return s.saveTerminal(ctx, terminal, false)
}

func (s *Store) saveTerminal(ctx context.Context, terminal *models.Terminal, create bool) error {
	terminal.Normalize()

	db := s.conn(ctx)
	taken, err := exists(db, &models.Terminal{}, "landline = ? AND id <> ?", terminal.Landline, terminal.ID)
	if err != nil {
		return fmt.Errorf("failed to check landline: %w", err)
	}
	if err := mergeTaken(terminal.Validate(), "landline", taken); err != nil {
		return err
	}

	if create {
		err = db.Omit(clause.Associations).Create(terminal).Error
	} else {
		err = db.Omit(clause.Associations).Save(terminal).Error
	}
	if err != nil {
		if taken := takenOnWrite(err, "landline"); taken != nil {
			return taken
		}
		return fmt.Errorf("failed to save terminal: %w", err)
	}
	return nil
}

// DeleteTerminal removes a terminal and its menu items. A terminal that
// order lines still reference is kept.
func (s *Store) DeleteTerminal(ctx context.Context, terminal *models.Terminal) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		referenced, err := exists(tx, &models.OrderDetail{}, "terminal_id = ?", terminal.ID)
		if err != nil {
			return fmt.Errorf("failed to check order details: %w", err)
		}
		if referenced {
			return models.FieldErrors{"base": {restrictMessage}}.Err()
		}

		if err := tx.Where("terminal_id = ?", terminal.ID).Delete(&models.MenuItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete menu items: %w", err)
		}
		if err := tx.Delete(terminal).Error; err != nil {
			return fmt.Errorf("failed to delete terminal: %w", err)
		}
		return nil
	})
}

// ListMenuItems returns a terminal's menu
func (s *Store) ListMenuItems(ctx context.Context, terminalID uuid.UUID) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := s.conn(ctx).Where("terminal_id = ?", terminalID).Order("name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch menu items: %w", err)
	}
	return items, nil
}

// GetMenuItem loads a menu item with its terminal
func (s *Store) GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.conn(ctx).Preload("Terminal").First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "menu item")
	}
	return &item, nil
}

// CreateMenuItem stores a menu item
func (s *Store) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	return createMenuItem(s.conn(ctx), item)
}

func createMenuItem(tx *gorm.DB, item *models.MenuItem) error {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return err
	}
	if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create menu item: %w", err)
	}
	return nil
}

// UpdateMenuItem saves a menu item. Existing order lines keep their snapshot
// until they are next re-derived.
func (s *Store) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.conn(ctx).Omit(clause.Associations).Save(item).Error; err != nil {
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	return nil
}

// DeleteMenuItem removes a menu item no order line references
func (s *Store) DeleteMenuItem(ctx context.Context, item *models.MenuItem) error {
	db := s.conn(ctx)
	referenced, err := exists(db, &models.OrderDetail{}, "menu_item_id = ?", item.ID)
	if err != nil {
		return fmt.Errorf("failed to check order details: %w", err)
	}
	if referenced {
		return models.FieldErrors{"base": {restrictMessage}}.Err()
	}
	if err := db.Delete(item).Error; err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	return nil
}
