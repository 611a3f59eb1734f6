package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/search"
)

// RecordAuditEvent stores event once; a redelivered event id is ignored
func (s *Store) RecordAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	err := s.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// ListAuditEvents returns one page of a company's events, newest first
func (s *Store) ListAuditEvents(ctx context.Context, companyID uuid.UUID, page search.Page) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	err := s.conn(ctx).
		Where("company_id = ?", companyID).
		Order("occurred_at DESC").
		Scopes(search.Paginate(page)).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit events: %w", err)
	}
	return events, nil
}
