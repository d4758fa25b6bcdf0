package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsledger/internal/core"
	"pointsledger/internal/ledger"
	"pointsledger/internal/sheets/memory"
)

var ast = time.FixedZone("AST", 3*60*60)

func fixedClock() core.Clock {
	t := time.Date(2025, 7, 8, 10, 0, 0, 0, ast)
	return core.ClockFunc(func() time.Time { return t })
}

func testPolicies(t *testing.T) ledger.Policies {
	t.Helper()
	ths, err := core.ParseWeekSchedule(core.DefaultWeekSchedule, ast)
	require.NoError(t, err)
	weeks := core.NewWeekSelector("Week1", ths...)
	return ledger.NewPolicies(ledger.RAPolicy(weeks), ledger.EXCORPolicy(weeks))
}

func rosterStore() *memory.Store {
	s := memory.New()
	s.SetTable("RAs", [][]string{
		{"Name", "Points"},
		{"Zara", "4"},
		{""},
		{"Alice", "10"},
	})
	s.SetTable("EXCORS", [][]string{
		{"Name", "Points", "Role"},
		{"Omar", "12", "coordinator"},
	})
	s.SetTable("Week2", [][]string{
		{"ID", "Name", "Group", "RA Points"},
		{"", "", "", "7/8/2025"},
		{},
		{"S1", "Mona", "Alice", ""},
		{"S2", "Alice", "Zara", ""},
		{"S3", "", "", ""},
		{"S4", " Bilal ", "Zara", ""},
	})
	s.SetTable("Times", [][]string{
		{"7/8/2025", "Breakfast", "900", "1030"},
	})
	return s
}

func newRoster(t *testing.T, s *memory.Store) *RosterService {
	t.Helper()
	return NewRosterService(s, fixedClock(), testPolicies(t), DefaultRosterConfig(), nil)
}

func TestRosterActorsSortedWithoutBlanks(t *testing.T) {
	r := newRoster(t, rosterStore())

	names, err := r.Actors(context.Background(), "RA")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Zara"}, names)
}

func TestRosterActorsAreCached(t *testing.T) {
	s := rosterStore()
	r := newRoster(t, s)

	_, err := r.Actors(context.Background(), "ra")
	require.NoError(t, err)
	_, err = r.Actors(context.Background(), "ra")
	require.NoError(t, err)
	assert.Len(t, s.Calls(), 1)
}

func TestRosterUnknownPolicy(t *testing.T) {
	r := newRoster(t, rosterStore())

	_, err := r.Actors(context.Background(), "staff")
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
}

func TestRosterStudentsExcludesActors(t *testing.T) {
	r := newRoster(t, rosterStore())

	names, err := r.Students(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bilal", "Mona"}, names)
}

func TestRosterStudentsStoreFailure(t *testing.T) {
	s := rosterStore()
	s.FailOn = func(op, rng string) error {
		if rng == "Week2!B4:B" {
			return errors.New("timeout")
		}
		return nil
	}
	r := newRoster(t, s)

	_, err := r.Students(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestRosterBalance(t *testing.T) {
	r := newRoster(t, rosterStore())

	a, err := r.Balance(context.Background(), "excor", " Omar")
	require.NoError(t, err)
	assert.Equal(t, 12, a.Balance)
	assert.Equal(t, "coordinator", a.Role)

	_, err = r.Balance(context.Background(), "excor", "Nadia")
	require.ErrorIs(t, err, core.ErrActorNotFound)
	assert.Equal(t, "EXCOR 'Nadia' not found.", core.Message(err))

	_, err = r.Balance(context.Background(), "excor", "")
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
}
