// Package store is the durable-store adapter: row-oriented persistence of
// confirmed reservations over MySQL. The store is a read-optimized cache of
// the event log's verdicts — the coordinator decides when rows are created
// and deleted, and the log remains authoritative if the two ever disagree.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/theater-seat-reservation/internal/model"
)

// ReservationStore provides CRUD operations over the reservations table.
//
//	CREATE TABLE reservations (
//	    id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
//	    play_id     BIGINT NOT NULL,
//	    seat_number BIGINT NOT NULL,
//	    user_id     BIGINT NOT NULL,
//	    reserved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
//	)
//
// There is deliberately no unique index on (play_id, seat_number): the log
// fold is what prevents two active winners, and the table must be able to
// hold whatever the log decided.
type ReservationStore struct {
	db *sql.DB
}

// New returns a ReservationStore bound to the given database.
func New(db *sql.DB) *ReservationStore { return &ReservationStore{db: db} }

// Insert persists a confirmed reservation and populates the generated ID
// and stored timestamp on the provided record.
func (s *ReservationStore) Insert(ctx context.Context, res *model.Reservation) error {
	if res.ReservedAt.IsZero() {
		res.ReservedAt = time.Now().UTC()
	}
	const q = `INSERT INTO reservations (play_id, seat_number, user_id, reserved_at) VALUES (?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, q, res.PlayID, res.SeatNumber, res.UserID, res.ReservedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// FindByID returns the reservation with the given ID, or (nil, nil) when no
// such row exists.
func (s *ReservationStore) FindByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, play_id, seat_number, user_id, reserved_at FROM reservations WHERE id = ?`
	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

// FindBySeat returns the reservation currently recorded for the seat, or
// (nil, nil) when the seat has no row. It is a secondary consistency check
// only; seat availability is decided by the log, never by this query.
func (s *ReservationStore) FindBySeat(ctx context.Context, playID, seatNumber int64) (*model.Reservation, error) {
	const q = `SELECT id, play_id, seat_number, user_id, reserved_at FROM reservations WHERE play_id = ? AND seat_number = ? LIMIT 1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, playID, seatNumber))
}

// DeleteByID removes the reservation row and reports whether a row existed.
func (s *ReservationStore) DeleteByID(ctx context.Context, id uint64) (bool, error) {
	const q = `DELETE FROM reservations WHERE id = ?`
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *ReservationStore) scanOne(row *sql.Row) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(&res.ID, &res.PlayID, &res.SeatNumber, &res.UserID, &res.ReservedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
