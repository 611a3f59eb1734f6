package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/events"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
)

const consumerGroup = "audit-service"

// errUnprocessable marks messages that can never be stored; they are
// committed and skipped instead of blocking the partition
var errUnprocessable = errors.New("unprocessable event message")

// messageReader is the part of *kafka.Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer persists domain events read from the vendor events topic
type Consumer struct {
	reader      messageReader
	store       *store.Store
	maxAttempts int
	retryDelay  time.Duration
}

// NewConsumer creates a consumer group reader on broker/topic
func NewConsumer(broker, topic string, st *store.Store) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        consumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})
	return newConsumer(reader, st)
}

func newConsumer(reader messageReader, st *store.Store) *Consumer {
	return &Consumer{
		reader:      reader,
		store:       st,
		maxAttempts: 5,
		retryDelay:  time.Second,
	}
}

// Run reads until ctx is cancelled. A message's offset is committed only
// once it is stored or found unprocessable, so a database outage stalls the
// consumer instead of losing events.
func (c *Consumer) Run(ctx context.Context) {
	logrus.Info("Starting audit event consumer...")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logrus.Info("Audit event consumer stopped")
				return
			}
			logrus.WithError(err).Error("Error reading event message")
			if !c.wait(ctx, c.retryDelay) {
				return
			}
			continue
		}

		log := logrus.WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		})
		for {
			err := c.handle(ctx, msg)
			if err == nil {
				break
			}
			if errors.Is(err, errUnprocessable) {
				log.WithError(err).Warn("Skipped event message")
				break
			}
			if ctx.Err() != nil {
				logrus.Info("Audit event consumer stopped before committing")
				return
			}
			log.WithError(err).Error("Failed to store event message, retrying")
			if !c.wait(ctx, c.retryDelay*time.Duration(c.maxAttempts)) {
				return
			}
		}

		// a failed commit means redelivery, which the idempotent write absorbs
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Failed to commit event offset")
		}
	}
}

// handle stores one message, retrying the write while the database is unavailable
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	event, err := events.Decode(msg.Value)
	if err != nil {
		return fmt.Errorf("%w: %v", errUnprocessable, err)
	}

	record, err := auditRecord(event)
	if err != nil {
		return fmt.Errorf("%w: %v", errUnprocessable, err)
	}

	for attempt := 1; ; attempt++ {
		err = c.store.RecordAuditEvent(ctx, record)
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"event_id":   event.ID,
				"event_type": event.Type,
				"company_id": event.CompanyID,
			}).Debug("Recorded audit event")
			return nil
		}
		if attempt >= c.maxAttempts {
			return fmt.Errorf("giving up on event %s after %d attempts: %w", event.ID, attempt, err)
		}
		logrus.WithField("event_id", event.ID).WithError(err).Warn("Retrying audit event write")
		if !c.wait(ctx, c.retryDelay*time.Duration(attempt)) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close closes the reader
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close event reader: %w", err)
	}
	return nil
}

func auditRecord(event events.Event) (*models.AuditEvent, error) {
	if event.CompanyID == uuid.Nil {
		return nil, errors.New("event has no company")
	}
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return &models.AuditEvent{
		EventID:    event.ID,
		Type:       event.Type,
		CompanyID:  event.CompanyID,
		ActorID:    event.ActorID,
		Payload:    string(payload),
		OccurredAt: event.OccurredAt,
	}, nil
}
