// Package model defines the domain types shared between the coordinator,
// the durable store and the HTTP layer.
package model

import "time"

// Reservation is the durable record of a confirmed seat claim. A row exists
// if and only if the coordinator confirmed the originating claim event as
// the winner of its seat; the row is deleted again on a confirmed
// cancellation. The event log, not this table, is the source of truth for
// ownership — rows are a read-optimized cache that can be rebuilt from the
// log.
type Reservation struct {
	ID         uint64    `json:"id"`
	PlayID     int64     `json:"play_id"`
	SeatNumber int64     `json:"seat_number"`
	UserID     int64     `json:"user_id"`
	ReservedAt time.Time `json:"reserved_at"`
}
