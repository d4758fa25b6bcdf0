package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsledger/internal/core"
	"pointsledger/internal/log"
	"pointsledger/internal/sheets/memory"
)

func newCheckIn(t *testing.T, s *memory.Store, clock core.Clock) (*CheckIn, *captureJournal) {
	t.Helper()
	j := &captureJournal{}
	c := NewCheckIn(s, clock, DefaultCheckInConfig(testWeeks(t))).WithJournal(j).WithLogger(log.Discard())
	return c, j
}

func TestCheckInWritesMinutesSinceStart(t *testing.T) {
	s := seedStore()
	c, j := newCheckIn(t, s, at(2025, 7, 8, 10, 0))

	res, err := c.Apply(context.Background(), " S1 ")
	require.NoError(t, err)

	assert.Equal(t, "Checked in Bob for Breakfast!", res.Message)
	assert.Equal(t, "Week2!F4", res.Cell)
	assert.Equal(t, 60, res.Minutes)
	assert.Equal(t, "60", s.Cell("Week2", 5, 3))
	assert.Equal(t, core.OutcomeCommitted, j.last(t).Outcome)
}

func TestCheckInTwiceIsRejected(t *testing.T) {
	s := seedStore()
	c, _ := newCheckIn(t, s, at(2025, 7, 8, 9, 5))

	_, err := c.Apply(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "5", s.Cell("Week2", 5, 3))

	_, err = c.Apply(context.Background(), "S1")
	require.ErrorIs(t, err, core.ErrAlreadyCheckedIn)
	assert.Equal(t, "Bob has already been checked in for Breakfast!", core.Message(err))
	assert.Len(t, s.Writes(), 1)
	assert.Equal(t, "5", s.Cell("Week2", 5, 3))
}

func TestCheckInEndBoundaryIsInclusive(t *testing.T) {
	s := seedStore()
	c, _ := newCheckIn(t, s, at(2025, 7, 8, 10, 30))

	res, err := c.Apply(context.Background(), "S3")
	require.NoError(t, err)
	assert.Equal(t, 90, res.Minutes)
}

func TestCheckInFailures(t *testing.T) {
	tests := []struct {
		name    string
		clock   core.Clock
		id      string
		kind    error
		message string
	}{
		{
			name:    "missing id",
			clock:   at(2025, 7, 8, 10, 0),
			id:      "  ",
			kind:    core.ErrInvalidRequest,
			message: "Student ID not provided.",
		},
		{
			name:    "no event running",
			clock:   at(2025, 7, 8, 11, 0),
			id:      "S1",
			kind:    core.ErrNoActiveEvent,
			message: "Error: No active event!.",
		},
		{
			name:    "event on another day",
			clock:   at(2025, 7, 9, 9, 30),
			id:      "S1",
			kind:    core.ErrNoActiveEvent,
			message: "Error: No active event!.",
		},
		{
			name:    "no column for the event",
			clock:   at(2025, 7, 8, 12, 15),
			id:      "S1",
			kind:    core.ErrColumnNotFound,
			message: "Could not find column for Event: 'Lunch' on today's date.",
		},
		{
			name:    "unknown id",
			clock:   at(2025, 7, 8, 10, 0),
			id:      "S9",
			kind:    core.ErrSubjectNotFound,
			message: "Student ID S9 not found in the sheet.",
		},
		{
			name:    "cell already filled",
			clock:   at(2025, 7, 8, 10, 0),
			id:      "S2",
			kind:    core.ErrAlreadyCheckedIn,
			message: "Carol has already been checked in for Breakfast!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seedStore()
			c, j := newCheckIn(t, s, tt.clock)

			_, err := c.Apply(context.Background(), tt.id)
			require.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, core.Message(err))
			assert.Empty(t, s.Writes())
			assert.Equal(t, core.OutcomeRejected, j.last(t).Outcome)
		})
	}
}

func TestCheckInPinnedAttendanceTable(t *testing.T) {
	s := seedStore()
	cfg := DefaultCheckInConfig(testWeeks(t))
	cfg.AttendanceTable = "Week1"
	c := NewCheckIn(s, at(2025, 7, 8, 9, 45), cfg).WithLogger(log.Discard())

	res, err := c.Apply(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "Week1!D4", res.Cell)
	assert.Equal(t, "45", s.Cell("Week1", 3, 3))
}

func TestActiveEventSkipsIncompleteRows(t *testing.T) {
	c, _ := newCheckIn(t, seedStore(), at(2025, 7, 8, 9, 0))
	now := time.Date(2025, 7, 8, 9, 0, 0, 0, riyadh)

	ev, err := c.ActiveEvent(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "Breakfast", ev.Name)
	assert.Equal(t, 900, ev.Start)
	assert.Equal(t, 1030, ev.End)
}

func TestCheckInFindsSubjectOnThirdRow(t *testing.T) {
	s := seedStore()
	rows := s.Table("Week2")
	rows[2] = []string{"S9", "Gina", "Erin", "", "", "", "", ""}
	s.SetTable("Week2", rows)
	c, _ := newCheckIn(t, s, at(2025, 7, 8, 9, 15))

	res, err := c.Apply(context.Background(), "S9")
	require.NoError(t, err)
	assert.Equal(t, "Week2!F3", res.Cell)
	assert.Equal(t, "15", s.Cell("Week2", 5, 2))
}
