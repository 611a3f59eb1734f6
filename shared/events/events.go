package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types published on the vendor events topic
const (
	TerminalCreated   = "terminal.created"
	TerminalUpdated   = "terminal.updated"
	TerminalDeleted   = "terminal.deleted"
	MenuItemsImported = "menu_items.imported"
	UserCreated       = "user.created"
	UserStatusChanged = "user.status_changed"
	EmployeesImported = "employees.imported"
	OrderPlaced       = "order.placed"
)

// Event is a domain event. Events are keyed by company so one company's
// events stay ordered within a partition.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	CompanyID  uuid.UUID              `json:"company_id"`
	ActorID    *uuid.UUID             `json:"actor_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// New builds an event with a fresh id
func New(eventType string, companyID uuid.UUID, actorID *uuid.UUID, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		CompanyID:  companyID,
		ActorID:    actorID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher queues events for delivery. Publish never blocks the request path.
type Publisher interface {
	Publish(event Event) error
	Close() error
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
func (NopPublisher) Close() error        { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the type of every published event in order
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes events through a buffered worker pool
type KafkaProducer struct {
	writer       messageWriter
	topic        string
	eventChan    chan Event
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewKafkaProducer creates a producer writing to topic on broker
func NewKafkaProducer(broker, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	return newKafkaProducer(writer, topic, 1000, 4)
}

func newKafkaProducer(writer messageWriter, topic string, buffer, workers int) *KafkaProducer {
	kp := &KafkaProducer{
		writer:       writer,
		topic:        topic,
		eventChan:    make(chan Event, buffer),
		workerCount:  workers,
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < kp.workerCount; i++ {
		kp.wg.Add(1)
		go kp.worker(i)
	}
	logrus.Infof("Kafka producer started %d workers for topic %s", kp.workerCount, topic)
	return kp
}

func (kp *KafkaProducer) worker(id int) {
	defer kp.wg.Done()

	for {
		select {
		case event := <-kp.eventChan:
			kp.deliver(id, event)
		case <-kp.shutdownChan:
			// drain what was queued before shutdown
			for {
				select {
				case event := <-kp.eventChan:
					kp.deliver(id, event)
				default:
					return
				}
			}
		}
	}
}

func (kp *KafkaProducer) deliver(worker int, event Event) {
	if err := kp.send(event); err != nil {
		logrus.WithFields(logrus.Fields{
			"worker":     worker,
			"event_id":   event.ID,
			"event_type": event.Type,
		}).WithError(err).Error("Failed to send event")
	}
}

// Publish queues an event. A full queue drops the event.
func (kp *KafkaProducer) Publish(event Event) error {
	select {
	case kp.eventChan <- event:
		return nil
	default:
		return fmt.Errorf("event queue full, %s event dropped", event.Type)
	}
}

func (kp *KafkaProducer) send(event Event) error {
	value, err := Encode(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: kp.topic,
		Key:   []byte(event.CompanyID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "company_id", Value: []byte(event.CompanyID.String())},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to Kafka: %w", err)
	}
	return nil
}

// Close stops the workers after the queue drains and closes the writer
func (kp *KafkaProducer) Close() error {
	var err error
	kp.closeOnce.Do(func() {
		close(kp.shutdownChan)
		kp.wg.Wait()
		if cerr := kp.writer.Close(); cerr != nil {
			err = fmt.Errorf("failed to close Kafka writer: %w", cerr)
		}
	})
	return err
}

// Encode serializes an event for the wire
func Encode(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	return data, nil
}

// Decode parses an event read from the wire
func Decode(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return Event{}, fmt.Errorf("event is missing id or type")
	}
	return event, nil
}

// PublishLogged publishes and logs a failure instead of returning it, for
// callers whose write already committed.
func PublishLogged(p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(event); err != nil {
		logrus.WithField("event_type", event.Type).WithError(err).Warn("Dropped event")
	}
}

// NewPublisher returns a Kafka producer for broker, or a NopPublisher when
// no broker is configured
func NewPublisher(broker, topic string) Publisher {
	if broker == "" {
		logrus.Warn("KAFKA_BROKER not set, domain events are discarded")
		return NopPublisher{}
	}
	return NewKafkaProducer(broker, topic)
}
