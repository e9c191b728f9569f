// Package ledger implements the seat-claim event log: the event and seat
// key types, the ownership fold, the Kafka writer that appends claim and
// release events, and the scanner used to verify claim outcomes. Each play
// has its own single-partition topic; the seat number is the message key,
// so all events for one seat share one totally ordered stream.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// topicPrefix is prepended to the play ID to form the topic name, e.g.
// play 7 lives in topic "play_7".
const topicPrefix = "play_"

// NoOwner is the sentinel user ID meaning "no occupant". Release events
// carrying NoOwner act as an administrative cancellation for any owner.
const NoOwner int64 = -1

// Action identifies what a seat event does to the seat it addresses.
type Action string

const (
	// ActionClaim is an attempt to take a seat. The earliest unreleased
	// claim in the log wins; later claims are inert loser events.
	ActionClaim Action = "claim"
	// ActionRelease gives a seat up. It only has effect when it matches
	// the current owner (or carries the NoOwner sentinel).
	ActionRelease Action = "release"
)

// SeatKey identifies one contested seat: a play and a seat number within
// that play. All events for a key land in the same topic partition.
type SeatKey struct {
	PlayID     int64
	SeatNumber int64
}

// Topic returns the name of the topic holding all events for the key's play.
func (k SeatKey) Topic() string {
	return topicPrefix + strconv.FormatInt(k.PlayID, 10)
}

// String renders the key as "<playId>_<seat>", the format used in logs
// and as the map key of the materialized view.
func (k SeatKey) String() string {
	return strconv.FormatInt(k.PlayID, 10) + "_" + strconv.FormatInt(k.SeatNumber, 10)
}

// PlayIDFromTopic extracts the play ID from a topic name. It reports false
// for topics that do not belong to the seat ledger.
func PlayIDFromTopic(topic string) (int64, bool) {
	raw, ok := strings.CutPrefix(topic, topicPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SeatEvent is the immutable record appended to the log for every claim and
// release. The timestamp is advisory only; ordering is decided solely by
// the log offset an event is assigned on append.
type SeatEvent struct {
	PlayID     int64     `json:"play_id"`
	SeatNumber int64     `json:"seat_number"`
	UserID     int64     `json:"user_id"`
	Action     Action    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewClaim builds a claim event for the given seat and user, stamped with
// the current time.
func NewClaim(playID, seatNumber, userID int64) SeatEvent {
	return SeatEvent{PlayID: playID, SeatNumber: seatNumber, UserID: userID, Action: ActionClaim, Timestamp: time.Now().UTC()}
}

// NewRelease builds a release event for the given seat and user.
func NewRelease(playID, seatNumber, userID int64) SeatEvent {
	return SeatEvent{PlayID: playID, SeatNumber: seatNumber, UserID: userID, Action: ActionRelease, Timestamp: time.Now().UTC()}
}

// Key returns the seat key the event addresses.
func (e SeatEvent) Key() SeatKey {
	return SeatKey{PlayID: e.PlayID, SeatNumber: e.SeatNumber}
}

// Marshal encodes the event as the JSON payload carried on the wire.
func (e SeatEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalSeatEvent decodes a wire payload. The play ID is taken from the
// payload itself; callers that only have the topic name can recover it via
// PlayIDFromTopic.
func UnmarshalSeatEvent(data []byte) (SeatEvent, error) {
	var e SeatEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return SeatEvent{}, fmt.Errorf("decode seat event: %w", err)
	}
	switch e.Action {
	case ActionClaim, ActionRelease:
	default:
		return SeatEvent{}, fmt.Errorf("decode seat event: unknown action %q", e.Action)
	}
	return e, nil
}

// Receipt is the broker acknowledgement of an append: the topic, partition
// and offset the event was assigned. The offset is the event's position in
// the seat's total order and is what verification scans stop at.
type Receipt struct {
	Topic     string
	Partition int
	Offset    int64
}
