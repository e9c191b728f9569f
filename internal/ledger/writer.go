package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/segmentio/kafka-go"
)

// ErrBrokerUnavailable is returned when the log cannot be reached or does
// not acknowledge in time. Callers must treat it as "outcome unknown",
// never as "seat available".
var ErrBrokerUnavailable = errors.New("event log unavailable")

// Writer appends seat events to the log. Topics are provisioned on demand
// the first time a play is written to; creation is idempotent and a
// concurrent "already exists" from another writer counts as success.
type Writer struct {
	client *kafka.Client

	mu          sync.Mutex
	provisioned map[string]struct{}
}

// NewWriter returns a Writer speaking to the given brokers.
func NewWriter(brokers []string) *Writer {
	return &Writer{
		client:      &kafka.Client{Addr: kafka.TCP(brokers...)},
		provisioned: make(map[string]struct{}),
	}
}

// Append publishes the event to its play's topic, keyed by seat number so
// every event for one seat lands in the same ordered partition, and returns
// the broker-assigned offset as the receipt. The append waits for full
// acknowledgement; an unacknowledged append is reported as
// ErrBrokerUnavailable because its outcome is unknown.
func (w *Writer) Append(ctx context.Context, e SeatEvent) (Receipt, error) {
	topic := e.Key().Topic()
	if err := w.ensureTopic(ctx, topic); err != nil {
		return Receipt{}, err
	}

	payload, err := e.Marshal()
	if err != nil {
		return Receipt{}, fmt.Errorf("encode seat event: %w", err)
	}

	resp, err := w.client.Produce(ctx, &kafka.ProduceRequest{
		Topic:        topic,
		Partition:    0,
		RequiredAcks: kafka.RequireAll,
		Records: kafka.NewRecordReader(kafka.Record{
			Key:   kafka.NewBytes([]byte(strconv.FormatInt(e.SeatNumber, 10))),
			Value: kafka.NewBytes(payload),
		}),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: produce to %s: %v", ErrBrokerUnavailable, topic, err)
	}
	if resp.Error != nil {
		return Receipt{}, fmt.Errorf("%w: produce to %s: %v", ErrBrokerUnavailable, topic, resp.Error)
	}
	return Receipt{Topic: topic, Partition: 0, Offset: resp.BaseOffset}, nil
}

// ensureTopic creates the topic with a single partition and minimal
// replication unless this writer already saw it exist. Races with other
// writers are expected: TopicAlreadyExists is success.
func (w *Writer) ensureTopic(ctx context.Context, topic string) error {
	w.mu.Lock()
	_, ok := w.provisioned[topic]
	w.mu.Unlock()
	if ok {
		return nil
	}

	resp, err := w.client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: create topic %s: %v", ErrBrokerUnavailable, topic, err)
	}
	if topicErr := resp.Errors[topic]; topicErr != nil && !errors.Is(topicErr, kafka.TopicAlreadyExists) {
		return fmt.Errorf("%w: create topic %s: %v", ErrBrokerUnavailable, topic, topicErr)
	}
	if resp.Errors[topic] == nil {
		log.Printf("ledger: created topic %s", topic)
	}

	w.mu.Lock()
	w.provisioned[topic] = struct{}{}
	w.mu.Unlock()
	return nil
}
