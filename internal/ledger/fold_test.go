package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foldAll(t *testing.T, events []SeatEvent) SeatState {
	t.Helper()
	state := EmptySeatState()
	for i, e := range events {
		state = state.Apply(e, int64(i))
	}
	return state
}

func TestFoldFirstClaimWins(t *testing.T) {
	state := foldAll(t, []SeatEvent{
		NewClaim(1, 5, 42),
		NewClaim(1, 5, 7),
		NewClaim(1, 5, 9),
	})

	assert.True(t, state.HeldBy(42), "earliest unreleased claim must own the seat")
	assert.False(t, state.HeldBy(7))
	assert.Equal(t, StatusHeld, state.Status)
}

func TestFoldEmptyState(t *testing.T) {
	state := EmptySeatState()
	assert.False(t, state.Held())
	assert.Equal(t, NoOwner, state.Owner)
	assert.Equal(t, StatusAvailable, state.Status)
}

func TestFoldReleaseByOwnerFreesSeat(t *testing.T) {
	state := foldAll(t, []SeatEvent{
		NewClaim(1, 5, 42),
		NewRelease(1, 5, 42),
	})

	assert.False(t, state.Held())
	assert.Equal(t, StatusCancelled, state.Status)
	assert.Equal(t, NoOwner, state.Owner)
}

func TestFoldReleaseByNonOwnerIgnored(t *testing.T) {
	state := foldAll(t, []SeatEvent{
		NewClaim(1, 5, 42),
		NewRelease(1, 5, 9),
	})

	assert.True(t, state.HeldBy(42), "a stranger's release must not free the seat")
}

func TestFoldSentinelReleaseFreesAnyOwner(t *testing.T) {
	state := foldAll(t, []SeatEvent{
		NewClaim(1, 5, 42),
		NewRelease(1, 5, NoOwner),
	})

	assert.False(t, state.Held())
}

func TestFoldReleaseOnFreeSeatIsNoOp(t *testing.T) {
	state := foldAll(t, []SeatEvent{
		NewRelease(1, 5, 42),
	})

	assert.False(t, state.Held())
	assert.Equal(t, StatusAvailable, state.Status, "release without a claim must not change status")
}

func TestFoldClaimAfterReleaseWins(t *testing.T) {
	state := foldAll(t, []SeatEvent{
		NewClaim(1, 5, 42),
		NewRelease(1, 5, 42),
		NewClaim(1, 5, 7),
	})

	assert.True(t, state.HeldBy(7))
}

func TestFoldIdempotentOverReplay(t *testing.T) {
	events := []SeatEvent{
		NewClaim(1, 5, 42),
		NewClaim(1, 5, 7),
		NewRelease(1, 5, 42),
		NewClaim(1, 5, 9),
	}

	once := foldAll(t, events)

	// Replay the same ordered sequence on top of the folded state: the
	// offset gate must make every duplicate a no-op.
	replayed := once
	for i, e := range events {
		replayed = replayed.Apply(e, int64(i))
	}
	assert.Equal(t, once, replayed)

	// And folding from scratch yields the same state again.
	assert.Equal(t, once, foldAll(t, events))
}

func TestFoldStaleOffsetIgnored(t *testing.T) {
	state := EmptySeatState()
	state = state.Apply(NewClaim(1, 5, 42), 3)
	stale := state.Apply(NewClaim(1, 5, 7), 2)
	assert.Equal(t, state, stale)
}

func TestSeatEventRoundTrip(t *testing.T) {
	e := NewClaim(12, 34, 56)
	raw, err := e.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalSeatEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, e.Key(), got.Key())
	assert.Equal(t, ActionClaim, got.Action)
	assert.Equal(t, int64(56), got.UserID)
}

func TestUnmarshalRejectsUnknownAction(t *testing.T) {
	_, err := UnmarshalSeatEvent([]byte(`{"play_id":1,"seat_number":2,"user_id":3,"action":"steal"}`))
	require.Error(t, err)
}

func TestTopicNaming(t *testing.T) {
	key := SeatKey{PlayID: 7, SeatNumber: 10}
	assert.Equal(t, "play_7", key.Topic())
	assert.Equal(t, "7_10", key.String())

	id, ok := PlayIDFromTopic("play_7")
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = PlayIDFromTopic("reservation.confirmed")
	assert.False(t, ok)

	_, ok = PlayIDFromTopic("play_abc")
	assert.False(t, ok)
}
