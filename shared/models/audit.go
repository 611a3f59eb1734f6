package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEvent is a domain event persisted by the audit service
type AuditEvent struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	EventID    string     `json:"event_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	Type       string     `json:"type" gorm:"type:varchar(64);not null;index"`
	CompanyID  uuid.UUID  `json:"company_id" gorm:"type:uuid;not null;index"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty" gorm:"type:uuid"`
	Payload    string     `json:"payload" gorm:"type:text"`
	OccurredAt time.Time  `json:"occurred_at" gorm:"not null"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// All lists every model for migrations, parents first
func All() []interface{} {
	return []interface{}{
		&Company{},
		&Address{},
		&User{},
		&Terminal{},
		&MenuItem{},
		&Order{},
		&OrderDetail{},
		&AuditEvent{},
	}
}
