// Package view maintains the materialized seat view: a long-running
// consumer of every play stream that folds claim and release events into an
// in-memory map from seat key to current occupant. The view backs O(1)
// availability reads; it may lag the log, so it is advisory only and final
// admission is always decided by the coordinator's own verification scan.
package view

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/theater-seat-reservation/internal/ledger"
	"github.com/iliyamo/theater-seat-reservation/internal/metrics"
)

const (
	defaultDiscoverInterval = 10 * time.Second
	defaultReadBackoff      = 5 * time.Second
)

// SeatView consumes all play_* topics and keeps the fold of every seat's
// events. Each topic is read by a single goroutine from its earliest
// retained offset, so per-seat updates arrive in log order; the shared map
// is advanced with per-key compare-and-swap, never entry locks.
type SeatView struct {
	brokers          []string
	client           *kafka.Client
	discoverInterval time.Duration
	readBackoff      time.Duration

	states sync.Map // ledger.SeatKey -> *ledger.SeatState

	mu       sync.Mutex
	watching map[string]struct{}
	wg       sync.WaitGroup
}

// Option adjusts SeatView construction.
type Option func(*SeatView)

// WithDiscoverInterval overrides how often the view looks for new play
// topics in the broker metadata.
func WithDiscoverInterval(d time.Duration) Option {
	return func(v *SeatView) { v.discoverInterval = d }
}

// WithReadBackoff overrides the fixed delay applied after a transient
// broker read error before the consumer resumes.
func WithReadBackoff(d time.Duration) Option {
	return func(v *SeatView) { v.readBackoff = d }
}

// New returns a SeatView reading from the given brokers. Run must be called
// for the view to start consuming.
func New(brokers []string, opts ...Option) *SeatView {
	v := &SeatView{
		brokers:          brokers,
		client:           &kafka.Client{Addr: kafka.TCP(brokers...)},
		discoverInterval: defaultDiscoverInterval,
		readBackoff:      defaultReadBackoff,
		watching:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run discovers play topics and consumes them until the context is
// cancelled. It never returns on transient broker errors; the only way out
// is cancellation, after which all underlying readers are closed before
// Run returns.
func (v *SeatView) Run(ctx context.Context) {
	v.discover(ctx)

	ticker := time.NewTicker(v.discoverInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			v.wg.Wait()
			log.Printf("seat-view: stopped")
			return
		case <-ticker.C:
			v.discover(ctx)
		}
	}
}

// discover lists broker metadata and starts a consumer for every play topic
// not yet being watched. Metadata errors are logged and retried on the next
// tick.
func (v *SeatView) discover(ctx context.Context) {
	resp, err := v.client.Metadata(ctx, &kafka.MetadataRequest{})
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("seat-view: metadata refresh failed: %v", err)
		}
		return
	}
	for _, t := range resp.Topics {
		if t.Error != nil {
			continue
		}
		if _, ok := ledger.PlayIDFromTopic(t.Name); !ok {
			continue
		}
		v.mu.Lock()
		_, watched := v.watching[t.Name]
		if !watched {
			v.watching[t.Name] = struct{}{}
		}
		v.mu.Unlock()
		if watched {
			continue
		}

		metrics.ViewTopics.Inc()
		v.wg.Add(1)
		go v.consumeTopic(ctx, t.Name)
	}
}

// consumeTopic reads one play topic from its earliest offset and folds
// every event into the seat map. Transient read errors back off and resume
// from the reader's current position; only cancellation ends the loop. On
// exit the topic is unmarked so a crashed consumer is restarted by the
// next discovery pass.
func (v *SeatView) consumeTopic(ctx context.Context, topic string) {
	defer v.wg.Done()
	defer func() {
		v.mu.Lock()
		delete(v.watching, topic)
		v.mu.Unlock()
		metrics.ViewTopics.Dec()
	}()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   v.brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("seat-view: close reader for %s: %v", topic, err)
		}
	}()

	if err := r.SetOffset(kafka.FirstOffset); err != nil {
		log.Printf("seat-view: rewind %s: %v", topic, err)
		return
	}
	log.Printf("seat-view: consuming %s", topic)

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.Printf("seat-view: read %s: %v; resuming in %s", topic, err, v.readBackoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(v.readBackoff):
			}
			continue
		}

		ev, err := ledger.UnmarshalSeatEvent(m.Value)
		if err != nil {
			log.Printf("seat-view: skip malformed event at %s[%d]: %v", topic, m.Offset, err)
			continue
		}
		v.apply(ev, m.Offset)
		metrics.ViewEvents.WithLabelValues(string(ev.Action)).Inc()
	}
}

// apply folds one event into the seat's state with a compare-and-swap loop.
// States are immutable values swapped by pointer, so readers never observe
// a partially updated entry; the offset gate inside the fold makes replays
// after a reconnect harmless.
func (v *SeatView) apply(ev ledger.SeatEvent, offset int64) {
	key := ev.Key()
	for {
		cur, ok := v.states.Load(key)
		if !ok {
			next := ledger.EmptySeatState().Apply(ev, offset)
			if _, loaded := v.states.LoadOrStore(key, &next); !loaded {
				return
			}
			continue
		}
		curState := cur.(*ledger.SeatState)
		next := curState.Apply(ev, offset)
		if next == *curState {
			return
		}
		if v.states.CompareAndSwap(key, cur, &next) {
			return
		}
	}
}

// State returns the folded state for a seat and whether any event has been
// observed for it.
func (v *SeatView) State(playID, seatNumber int64) (ledger.SeatState, bool) {
	cur, ok := v.states.Load(ledger.SeatKey{PlayID: playID, SeatNumber: seatNumber})
	if !ok {
		return ledger.EmptySeatState(), false
	}
	return *cur.(*ledger.SeatState), true
}

// IsAvailable reports whether the seat has no current occupant as far as
// the view has consumed. Advisory: the view may lag the log.
func (v *SeatView) IsAvailable(playID, seatNumber int64) bool {
	state, _ := v.State(playID, seatNumber)
	return !state.Held()
}

// IsHeldBy reports whether the seat is currently occupied by the given
// user as far as the view has consumed.
func (v *SeatView) IsHeldBy(playID, seatNumber, userID int64) bool {
	state, _ := v.State(playID, seatNumber)
	return state.HeldBy(userID)
}
