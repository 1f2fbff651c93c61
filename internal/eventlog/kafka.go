// Package eventlog ships agent activity events to Kafka for offline
// analysis. Publishing is strictly fire-and-forget: the orchestration
// stream never blocks on the broker.
package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/pkg/logger"
)

// Publisher records activity events durably. It is an optional
// collaborator: a nil *KafkaPublisher is a valid no-op.
type Publisher interface {
	Publish(event models.AgentActivityEvent)
	Close() error
}

// KafkaPublisher buffers events in memory and writes them to a topic from a
// single background goroutine. When the buffer is full events are dropped
// with a log line; durability of the activity log never gates generation
// latency.
type KafkaPublisher struct {
	writer *kafka.Writer
	events chan models.AgentActivityEvent
	done   chan struct{}
	log    *logger.Logger
}

// NewKafkaPublisher connects a publisher to the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 100 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		events: make(chan models.AgentActivityEvent, 256),
		done:   make(chan struct{}),
		log:    log,
	}
	go p.run()
	return p
}

// Publish enqueues one event. Never blocks; drops when the buffer is full.
func (p *KafkaPublisher) Publish(event models.AgentActivityEvent) {
	if p == nil {
		return
	}
	select {
	case p.events <- event:
	default:
		p.log.Warn("Event log buffer full; dropping activity event")
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for event := range p.events {
		payload, err := json.Marshal(event)
		if err != nil {
			p.log.WithError(err).Error("Failed to encode activity event")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = p.writer.WriteMessages(ctx, kafka.Message{
			// Keyed by request so all events of one run land in one
			// partition, preserving their order for consumers.
			Key:   []byte(event.RequestID),
			Value: payload,
		})
		cancel()
		if err != nil {
			p.log.WithError(err).Error("Failed to write activity event to kafka")
		}
	}
}

// Close drains buffered events and shuts down the writer.
func (p *KafkaPublisher) Close() error {
	if p == nil {
		return nil
	}
	close(p.events)
	<-p.done
	return p.writer.Close()
}
