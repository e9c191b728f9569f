package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Scanner re-derives seat ownership straight from the log. It is the
// authoritative read path: a fresh cursor is opened at the earliest
// retained offset for every scan, so the verdict never depends on the
// materialized view having caught up.
type Scanner struct {
	brokers []string
	client  *kafka.Client
}

// NewScanner returns a Scanner reading from the given brokers.
func NewScanner(brokers []string) *Scanner {
	return &Scanner{
		brokers: brokers,
		client:  &kafka.Client{Addr: kafka.TCP(brokers...)},
	}
}

// ScanUntil folds all events for the seat key from the start of its stream
// up to and including the event at the receipt's offset, and returns the
// resulting state. The receipt is expected to be the caller's own append:
// when the scan reaches it, the returned state is the verdict at the exact
// moment the caller's event entered the total order.
//
// The scan is bounded by the context deadline. If the deadline expires
// before the receipt's offset is observed the context error is returned;
// the caller must treat that as "unknown", not as a loss.
func (s *Scanner) ScanUntil(ctx context.Context, key SeatKey, until Receipt) (SeatState, error) {
	return s.fold(ctx, key, until.Offset)
}

// CurrentOwner folds every event currently retained for the seat key and
// returns the resulting state. It is used for ownership checks on release,
// where there is no own-event receipt to stop at: the scan runs to the
// partition's high watermark at call time.
func (s *Scanner) CurrentOwner(ctx context.Context, key SeatKey) (SeatState, error) {
	last, err := s.lastOffset(ctx, key.Topic())
	if err != nil {
		return SeatState{}, err
	}
	if last == 0 {
		// Empty or nonexistent topic: no claim was ever made.
		return EmptySeatState(), nil
	}
	return s.fold(ctx, key, last-1)
}

// fold reads the seat's partition from the first retained offset through
// untilOffset, applying the ownership fold to events whose message key
// matches the seat.
func (s *Scanner) fold(ctx context.Context, key SeatKey, untilOffset int64) (SeatState, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   s.brokers,
		Topic:     key.Topic(),
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer r.Close()

	if err := r.SetOffset(kafka.FirstOffset); err != nil {
		return SeatState{}, fmt.Errorf("%w: rewind %s: %v", ErrBrokerUnavailable, key.Topic(), err)
	}

	state := EmptySeatState()
	seatKey := key.String()
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return state, err
			}
			return state, fmt.Errorf("%w: read %s: %v", ErrBrokerUnavailable, key.Topic(), err)
		}
		ev, decErr := UnmarshalSeatEvent(m.Value)
		if decErr == nil && ev.Key().String() == seatKey {
			state = state.Apply(ev, m.Offset)
		}
		if m.Offset >= untilOffset {
			return state, nil
		}
	}
}

// lastOffset returns the partition's high watermark (the offset the next
// append would receive). A topic that does not exist yet reads as empty.
func (s *Scanner) lastOffset(ctx context.Context, topic string) (int64, error) {
	resp, err := s.client.ListOffsets(ctx, &kafka.ListOffsetsRequest{
		Topics: map[string][]kafka.OffsetRequest{
			topic: {kafka.LastOffsetOf(0)},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: list offsets %s: %v", ErrBrokerUnavailable, topic, err)
	}
	partitions := resp.Topics[topic]
	for _, p := range partitions {
		if p.Partition != 0 {
			continue
		}
		if p.Error != nil {
			if errors.Is(p.Error, kafka.UnknownTopicOrPartition) {
				return 0, nil
			}
			return 0, fmt.Errorf("%w: list offsets %s: %v", ErrBrokerUnavailable, topic, p.Error)
		}
		return p.LastOffset, nil
	}
	return 0, nil
}
