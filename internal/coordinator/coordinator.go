package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/theater-seat-reservation/internal/ledger"
	"github.com/iliyamo/theater-seat-reservation/internal/metrics"
	"github.com/iliyamo/theater-seat-reservation/internal/model"
)

// DefaultVerifyTimeout bounds the verification scan when no explicit
// window is configured.
const DefaultVerifyTimeout = 5 * time.Second

// Appender appends a seat event to the log and returns its receipt.
// Implemented by ledger.Writer.
type Appender interface {
	Append(ctx context.Context, e ledger.SeatEvent) (ledger.Receipt, error)
}

// Scanner re-derives seat ownership from the log. Implemented by
// ledger.Scanner.
type Scanner interface {
	ScanUntil(ctx context.Context, key ledger.SeatKey, until ledger.Receipt) (ledger.SeatState, error)
	CurrentOwner(ctx context.Context, key ledger.SeatKey) (ledger.SeatState, error)
}

// Store is the durable-store boundary for confirmed reservation rows.
// Implemented by store.ReservationStore. Find methods return (nil, nil)
// when no row exists.
type Store interface {
	Insert(ctx context.Context, res *model.Reservation) error
	FindByID(ctx context.Context, id uint64) (*model.Reservation, error)
	FindBySeat(ctx context.Context, playID, seatNumber int64) (*model.Reservation, error)
	DeleteByID(ctx context.Context, id uint64) (bool, error)
}

// Notifier publishes downstream notifications for confirmed outcomes.
// Failures are logged by implementations and never fail the request.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, res model.Reservation) error
	ReservationCancelled(ctx context.Context, res model.Reservation) error
}

// Coordinator runs the claim protocol. Many claims may run concurrently
// against the same seat; the log's total order is the only arbiter, so the
// coordinator never takes a lock and never pre-reads before claiming.
type Coordinator struct {
	appender      Appender
	scanner       Scanner
	store         Store
	notifier      Notifier
	verifyTimeout time.Duration
}

// Option adjusts Coordinator construction.
type Option func(*Coordinator)

// WithVerifyTimeout overrides the bounded verification window.
func WithVerifyTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.verifyTimeout = d
		}
	}
}

// WithNotifier attaches a downstream notifier for confirmed outcomes.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// New returns a Coordinator over the given log writer, log scanner and
// durable store.
func New(appender Appender, scanner Scanner, store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		appender:      appender,
		scanner:       scanner,
		store:         store,
		verifyTimeout: DefaultVerifyTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateReservation runs the claim protocol for one seat:
//
//	Validating -> Claiming -> Verifying -> {Won, Lost, TimedOut, Failed}
//
// The claim event is appended unconditionally; the verification scan then
// folds the seat's stream from its earliest offset up to the appended
// event's own position. If the fold shows the requester as owner at that
// position, the claim won and a durable row is created. A different owner
// means the claim lost (the requester's event stays in the log as an inert
// loser). A scan that cannot reach the own event within the window returns
// ErrVerificationTimeout, which is "unknown", not "lost".
func (c *Coordinator) CreateReservation(ctx context.Context, playID, seatNumber, userID int64) (*model.Reservation, error) {
	// Validating.
	if playID <= 0 {
		metrics.ClaimsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrNoPlaySelected
	}

	// Claiming: no read-before-write; the log decides.
	claim := ledger.NewClaim(playID, seatNumber, userID)
	receipt, err := c.appender.Append(ctx, claim)
	if err != nil {
		metrics.ClaimsTotal.WithLabelValues("broker_error").Inc()
		return nil, err
	}

	// Verifying, bounded by the window.
	state, err := c.verify(ctx, claim.Key(), receipt)
	if err != nil {
		return nil, err
	}
	if !state.HeldBy(userID) {
		metrics.ClaimsTotal.WithLabelValues("seat_taken").Inc()
		return nil, fmt.Errorf("%w: seat %s held by user %d", ErrSeatTaken, claim.Key(), state.Owner)
	}

	// Won: persist the row. A stale row for the seat can linger if a prior
	// process died between release and delete; the log has already ruled,
	// so the conflict is only logged.
	if existing, lookupErr := c.store.FindBySeat(ctx, playID, seatNumber); lookupErr == nil && existing != nil {
		if existing.UserID == userID {
			metrics.ClaimsTotal.WithLabelValues("won").Inc()
			return existing, nil
		}
		log.Printf("coordinator: stale row %d for seat %s (user %d) contradicts log winner %d",
			existing.ID, claim.Key(), existing.UserID, userID)
	}

	res := &model.Reservation{
		PlayID:     playID,
		SeatNumber: seatNumber,
		UserID:     userID,
		ReservedAt: claim.Timestamp,
	}
	if err := c.store.Insert(ctx, res); err != nil {
		// The log event is not retracted: the store is a derived cache and
		// the won claim can be re-materialized from the log.
		metrics.ClaimsTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	metrics.ClaimsTotal.WithLabelValues("won").Inc()

	if c.notifier != nil {
		// Best effort; the reservation is already confirmed.
		_ = c.notifier.ReservationConfirmed(ctx, *res)
	}
	return res, nil
}

// verify runs the bounded scan and translates its errors into the protocol
// outcome taxonomy.
func (c *Coordinator) verify(ctx context.Context, key ledger.SeatKey, receipt ledger.Receipt) (ledger.SeatState, error) {
	scanCtx, cancel := context.WithTimeout(ctx, c.verifyTimeout)
	defer cancel()

	start := time.Now()
	state, err := c.scanner.ScanUntil(scanCtx, key, receipt)
	metrics.VerifyDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.ClaimsTotal.WithLabelValues("timeout").Inc()
			return ledger.SeatState{}, ErrVerificationTimeout
		}
		metrics.ClaimsTotal.WithLabelValues("broker_error").Inc()
		return ledger.SeatState{}, err
	}
	return state, nil
}

// GetReservation returns the durable record by ID.
func (c *Coordinator) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := c.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if res == nil {
		return nil, ErrNotFound
	}
	return res, nil
}

// CancelReservation releases a seat on behalf of its owner. The durable row
// names the claimed owner, but the log has the final word: ownership is
// re-derived with a verifying-style scan before the release event is
// appended. A non-owner gets ErrForbidden with no side effects. If the log
// shows the seat already released, no new release event is appended and
// only the stale row is removed.
func (c *Coordinator) CancelReservation(ctx context.Context, id uint64, userID int64) error {
	res, err := c.store.FindByID(ctx, id)
	if err != nil {
		metrics.CancelsTotal.WithLabelValues("store_error").Inc()
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if res == nil {
		metrics.CancelsTotal.WithLabelValues("not_found").Inc()
		return ErrNotFound
	}
	if res.UserID != userID {
		metrics.CancelsTotal.WithLabelValues("forbidden").Inc()
		return ErrForbidden
	}

	key := ledger.SeatKey{PlayID: res.PlayID, SeatNumber: res.SeatNumber}
	ownerCtx, cancel := context.WithTimeout(ctx, c.verifyTimeout)
	state, err := c.scanner.CurrentOwner(ownerCtx, key)
	cancel()
	if err != nil {
		metrics.CancelsTotal.WithLabelValues("broker_error").Inc()
		return err
	}

	switch {
	case state.HeldBy(userID):
		if _, err := c.appender.Append(ctx, ledger.NewRelease(res.PlayID, res.SeatNumber, userID)); err != nil {
			metrics.CancelsTotal.WithLabelValues("broker_error").Inc()
			return err
		}
	case state.Held():
		// The row says one thing, the log another. The log wins.
		metrics.CancelsTotal.WithLabelValues("forbidden").Inc()
		return fmt.Errorf("%w: seat %s held by user %d", ErrForbidden, key, state.Owner)
	default:
		// Already released: the release is a no-op, only the row remains.
		log.Printf("coordinator: reservation %d already released in log, removing row", id)
	}

	existed, err := c.store.DeleteByID(ctx, id)
	if err != nil {
		metrics.CancelsTotal.WithLabelValues("store_error").Inc()
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if !existed {
		metrics.CancelsTotal.WithLabelValues("not_found").Inc()
		return ErrNotFound
	}
	metrics.CancelsTotal.WithLabelValues("cancelled").Inc()

	if c.notifier != nil {
		_ = c.notifier.ReservationCancelled(ctx, *res)
	}
	return nil
}
