package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pointsledger/internal/core"
	"pointsledger/internal/log"
	"pointsledger/internal/sheets/memory"
)

var riyadh = time.FixedZone("AST", 3*60*60)

// at returns a fixed clock on the given civil date and time.
func at(year int, month time.Month, day, hour, min int) core.Clock {
	t := time.Date(year, month, day, hour, min, 0, 0, riyadh)
	return core.ClockFunc(func() time.Time { return t })
}

func testWeeks(t *testing.T) core.WeekSelector {
	t.Helper()
	ths, err := core.ParseWeekSchedule(core.DefaultWeekSchedule, riyadh)
	require.NoError(t, err)
	return core.NewWeekSelector("Week1", ths...)
}

// seedStore builds a program spreadsheet for 8 July 2025 (Week2).
func seedStore() *memory.Store {
	s := memory.New()
	s.SetTable("RAs", [][]string{
		{"Name", "Points"},
		{"Alice", "10"},
		{"Dave", "abc"},
		{"Erin", "3"},
	})
	s.SetTable("EXCORS", [][]string{
		{"Name", "Points", "Role"},
		{"Alice", "10", ""},
		{"Dave", "20", ""},
		{"Erin", "30", "Coordinator"},
	})
	s.SetTable("Week1", [][]string{
		{"ID", "Name", "Group", "Breakfast"},
		{"", "", "", "7/8/2025"},
		{},
		{"S1", "Bob", "Alice", ""},
	})
	s.SetTable("Week2", [][]string{
		{"ID", "Name", "Group", "RA Points", "Daily Points", "Breakfast", "RA Points", "Lunch"},
		{"", "", "", "7/8/2025", "7/8/2025", "7/8/2025", "7/9/2025", "7/9/2025"},
		{},
		{"S1", "Bob", "Alice", "2", "", "", "", ""},
		{"S2", "Carol", "Dave", "", "", "5", "", ""},
		{"S3", "Dave", "Erin", "", "", "", "", ""},
		{"S4", "Frank", "Erin", "", "", "", "", ""},
	})
	s.SetTable("Points", [][]string{
		{"Date", "Student", "By", "Delta", "Reason", "Group"},
	})
	s.SetTable("Times", [][]string{
		{"Date", "Event", "Start", "End"},
		{"7/8/2025", "Dinner", "0900", ""},
		{"7/8/2025", "Breakfast", "0900", "1030"},
		{"7/8/2025", "Lunch", "1200", "1300"},
	})
	return s
}

// captureJournal collects journal entries in order.
type captureJournal struct {
	mu      sync.Mutex
	entries []core.JournalEntry
}

func (c *captureJournal) Record(_ context.Context, e core.JournalEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureJournal) last(t *testing.T) core.JournalEntry {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.entries)
	return c.entries[len(c.entries)-1]
}

func newRAMutator(t *testing.T, s *memory.Store, clock core.Clock) (*Mutator, *captureJournal) {
	t.Helper()
	j := &captureJournal{}
	m := NewMutator(s, clock, RAPolicy(testWeeks(t))).WithJournal(j).WithLogger(log.Discard())
	return m, j
}

func newEXCORMutator(t *testing.T, s *memory.Store, clock core.Clock) (*Mutator, *captureJournal) {
	t.Helper()
	j := &captureJournal{}
	m := NewMutator(s, clock, EXCORPolicy(testWeeks(t))).WithJournal(j).WithLogger(log.Discard())
	return m, j
}
