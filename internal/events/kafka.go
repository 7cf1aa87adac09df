package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to a single topic keyed by workflow id, so all
// events of one workflow land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// batchTimeout bounds how long a single synchronous write waits for its
// batch to flush. kafka-go's one second default would be added to every
// request that publishes.
const batchTimeout = 10 * time.Millisecond

// NewKafkaPublisher creates a publisher for the given brokers and topic. Each
// write is attempted once.
func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchSize:    1,
			BatchTimeout: batchTimeout,
			MaxAttempts:  1,
			WriteTimeout: timeout,
			Async:        false,
		},
	}
}

// Publish writes one event synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(event Event) (kafka.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(event.WorkflowID, 10)),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}, nil
}
