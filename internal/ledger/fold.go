package ledger

// SeatStatus is the materialized occupancy of a seat.
type SeatStatus string

const (
	// StatusAvailable means no claim has ever been observed for the seat.
	StatusAvailable SeatStatus = "available"
	// StatusHeld means an unreleased claim owns the seat.
	StatusHeld SeatStatus = "held"
	// StatusCancelled means the last effective event was a release.
	StatusCancelled SeatStatus = "cancelled"
)

// SeatState is the fold of all events observed for one seat key up to
// Offset. It is a value type: folding never mutates a prior state, which
// lets the materialized view swap states atomically.
type SeatState struct {
	Owner  int64
	Status SeatStatus
	Offset int64
}

// EmptySeatState is the state of a seat no event has been observed for.
func EmptySeatState() SeatState {
	return SeatState{Owner: NoOwner, Status: StatusAvailable, Offset: -1}
}

// Held reports whether the seat currently has an owner.
func (s SeatState) Held() bool { return s.Status == StatusHeld }

// HeldBy reports whether the seat is currently owned by userID.
func (s SeatState) HeldBy(userID int64) bool {
	return s.Status == StatusHeld && s.Owner == userID
}

// Apply folds one event at the given log offset into the state and returns
// the successor state.
//
// The rules arbitrate every race by log position alone:
//
//   - a claim on an unheld seat takes it;
//   - a claim on a held seat is a loser event and is ignored;
//   - a release matching the current owner (or carrying the NoOwner
//     sentinel) frees the seat;
//   - any other release, including one for an already-released seat,
//     is a no-op.
//
// Events at or below the already-applied offset are ignored, so replaying
// a prefix of the log is harmless and the fold is idempotent over ordered
// replays.
func (s SeatState) Apply(e SeatEvent, offset int64) SeatState {
	if offset <= s.Offset {
		return s
	}
	next := s
	next.Offset = offset
	switch e.Action {
	case ActionClaim:
		if !s.Held() {
			next.Owner = e.UserID
			next.Status = StatusHeld
		}
	case ActionRelease:
		if s.Held() && (e.UserID == s.Owner || e.UserID == NoOwner) {
			next.Owner = NoOwner
			next.Status = StatusCancelled
		}
	}
	return next
}
