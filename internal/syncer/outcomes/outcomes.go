// Package outcomes publishes a summary of every finished sync cycle so other
// systems can audit sync history without scraping logs.
package outcomes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contactsync/internal/platform/kafka/producer"
)

// Event summarizes one cycle. Orchestration trails are not included; they
// can be large and are returned to the caller instead.
type Event struct {
	CycleID        string    `json:"cycle_id"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Providers      int       `json:"providers"`
	Skipped        int       `json:"skipped"`
	Merged         int       `json:"merged"`
	Created        int       `json:"created"`
	Rejected       int       `json:"rejected"`
	Upserted       int       `json:"upserted"`
	UpsertErrors   int       `json:"upsert_errors"`
	WrittenBack    int       `json:"written_back"`
	Orchestrations int       `json:"orchestrations"`
}

// Publisher delivers cycle events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// messageProducer is the subset of the Kafka producer used here.
type messageProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaPublisher writes events as JSON records keyed by cycle id.
type KafkaPublisher struct {
	producer messageProducer
	topic    string
	logger   *slog.Logger
}

// NewKafka creates a publisher writing to topic.
func NewKafka(p messageProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{producer: p, topic: topic, logger: logger}
}

// Publish marshals and produces the event.
func (k *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal outcome event: %w", err)
	}
	msg := &producer.Message{
		Topic: k.topic,
		Key:   []byte(e.CycleID),
		Value: value,
		Headers: map[string]string{
			"status": e.Status,
		},
	}
	if err := k.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish outcome event: %w", err)
	}
	k.logger.Debug("published cycle outcome", "cycle_id", e.CycleID, "topic", k.topic)
	return nil
}

// Noop discards events.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, Event) error { return nil }

// Memory keeps events in memory.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// Publish stores the event.
func (m *Memory) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of the published events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = Noop{}
	_ Publisher = (*Memory)(nil)
)
