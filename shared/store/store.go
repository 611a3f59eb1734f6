// Package store persists the platform's entities through gorm. Every write
// normalizes and validates its entity first; a *models.ValidationError means
// nothing was written.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pavitra93/food-ordering-admin/shared/models"
)

// ErrNotFound is returned when a looked-up record does not exist
var ErrNotFound = errors.New("record not found")

const takenMessage = "has already been taken"

// Store wraps the database handle shared by the services
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a store over db
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB returns the underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithClock returns a copy of the store reading the time from now
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// notFound maps gorm's missing-record error onto ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

// mergeTaken folds a uniqueness failure on field into the validation result of err
func mergeTaken(err error, field string, taken bool) error {
	if err == nil && !taken {
		return nil
	}

	fields := models.FieldErrors{}
	if err != nil {
		ve, ok := models.AsValidationError(err)
		if !ok {
			return err
		}
		fields.Merge(ve.Fields)
	}
	if taken {
		fields.Add(field, takenMessage)
	}
	return fields.Err()
}

// takenOnWrite maps a unique index violation to the message the pre-write
// check gives, for a concurrent write that slipped past that check. Other
// errors, and nil, yield nil.
func takenOnWrite(err error, field string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.FieldErrors{field: {takenMessage}}.Err()
	}
	return nil
}

// exists reports whether any row of model matches query
func exists(tx *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := tx.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
