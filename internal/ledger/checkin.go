package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pointsledger/internal/core"
	"pointsledger/internal/log"
	"pointsledger/internal/sheets"
)

// CheckInConfig locates the schedule and attendance tables.
type CheckInConfig struct {
	// ScheduleRange holds date, event, start and end (HHMM) in four columns.
	ScheduleRange string
	// AttendanceTable, when set, pins check-ins to one table. Otherwise
	// the week selector picks it.
	AttendanceTable string
	Weeks           core.WeekSelector
	Grid            GridSchema
}

func DefaultCheckInConfig(weeks core.WeekSelector) CheckInConfig {
	return CheckInConfig{
		ScheduleRange: "Times!A:D",
		Weeks:         weeks,
		Grid:          CheckInGridSchema,
	}
}

func (c CheckInConfig) table(now time.Time) string {
	if c.AttendanceTable != "" {
		return c.AttendanceTable
	}
	return c.Weeks.Select(now)
}

type CheckInResult struct {
	Message string
	Event   core.Event
	Subject string
	Table   string
	Cell    string
	Minutes int
	Written bool
}

// CheckIn records attendance for the event running now.
type CheckIn struct {
	store   sheets.Store
	clock   core.Clock
	cfg     CheckInConfig
	journal Journal
	logger  *log.Logger
}

func NewCheckIn(store sheets.Store, clock core.Clock, cfg CheckInConfig) *CheckIn {
	return &CheckIn{
		store:   store,
		clock:   clock,
		cfg:     cfg,
		journal: NopJournal,
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentCheckIn),
	}
}

func (c *CheckIn) WithJournal(j Journal) *CheckIn {
	if j != nil {
		c.journal = j
	}
	return c
}

func (c *CheckIn) WithLogger(l *log.Logger) *CheckIn {
	if l != nil {
		c.logger = l
	}
	return c
}

// ActiveEvent scans the schedule for an event running at now. Rows missing
// any of their four cells are ignored; the first match wins.
func (c *CheckIn) ActiveEvent(ctx context.Context, now time.Time) (core.Event, error) {
	rows, err := c.store.Get(ctx, c.cfg.ScheduleRange)
	if err != nil {
		return core.Event{}, core.StoreUnavailable("read "+c.cfg.ScheduleRange, err)
	}
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		if strings.TrimSpace(row[0]) == "" || strings.TrimSpace(row[1]) == "" ||
			strings.TrimSpace(row[2]) == "" || strings.TrimSpace(row[3]) == "" {
			continue
		}
		day, ok := core.ParseCellDate(row[0], now.Location())
		if !ok {
			continue
		}
		ev := core.Event{
			Date:  day,
			Name:  strings.TrimSpace(row[1]),
			Start: core.ParseCellInt(row[2]),
			End:   core.ParseCellInt(row[3]),
		}
		if ev.ActiveAt(now) {
			return ev, nil
		}
	}
	return core.Event{}, core.NoActiveEvent()
}

// Apply writes the minutes elapsed since the active event started into the
// subject's cell. A cell that already holds anything is left untouched.
func (c *CheckIn) Apply(ctx context.Context, subjectID string) (CheckInResult, error) {
	subjectID = strings.TrimSpace(subjectID)
	res, err := c.apply(ctx, subjectID)
	c.record(ctx, subjectID, res, err)
	return res, err
}

func (c *CheckIn) apply(ctx context.Context, subjectID string) (CheckInResult, error) {
	var res CheckInResult
	if subjectID == "" {
		return res, core.InvalidRequest("Student ID not provided.")
	}

	now := c.clock.Now()
	ev, err := c.ActiveEvent(ctx, now)
	if err != nil {
		return res, err
	}
	res.Event = ev

	table := c.cfg.table(now)
	res.Table = table
	rows, err := c.store.Get(ctx, table)
	if err != nil {
		return res, core.StoreUnavailable("read "+table, err)
	}
	grid := NewWeekGrid(table, rows, c.cfg.Grid, now.Location())

	col, ok := grid.Column(ev.Name, now)
	if !ok {
		return res, core.EventColumnNotFound(ev.Name)
	}
	row, ok := grid.RowByID(subjectID)
	if !ok {
		return res, core.SubjectIDNotFound(subjectID)
	}
	res.Subject = grid.Name(row)
	res.Cell = sheets.CellRef(table, col, row)

	if strings.TrimSpace(grid.Cell(row, col)) != "" {
		return res, core.AlreadyCheckedIn(res.Subject, ev.Name)
	}

	res.Minutes = ev.MinutesSinceStart(now)
	if err := c.store.Update(ctx, res.Cell, [][]any{{res.Minutes}}); err != nil {
		return res, core.StoreUnavailable("update "+res.Cell, err)
	}
	res.Written = true
	res.Message = fmt.Sprintf("Checked in %s for %s!", res.Subject, ev.Name)
	return res, nil
}

func (c *CheckIn) record(ctx context.Context, subjectID string, res CheckInResult, err error) {
	entry := core.NewJournalEntry(core.JournalKindCheckIn, c.clock.Now())
	entry.Subject = subjectID
	entry.Table = res.Table
	entry.Cell = res.Cell
	entry.ErrorKind = core.KindName(err)
	switch {
	case err == nil:
		entry.Outcome = core.OutcomeCommitted
		entry.CellAfter = core.IntPtr(res.Minutes)
	case errors.Is(err, core.ErrStoreUnavailable):
		entry.Outcome = core.OutcomeFailed
		entry.Error = err.Error()
	default:
		entry.Outcome = core.OutcomeRejected
		entry.Error = err.Error()
	}
	if res.Event.Name != "" {
		entry.Action = res.Event.Name
	}

	args := []any{
		log.FieldOperation, log.OpCheckIn,
		log.FieldSubject, subjectID,
		log.FieldEvent, res.Event.Name,
		log.FieldOutcome, entry.Outcome,
	}
	switch entry.Outcome {
	case core.OutcomeCommitted:
		c.logger.InfoContext(ctx, "Subject checked in", append(args, log.FieldCell, res.Cell, "minutes", res.Minutes)...)
	case core.OutcomeRejected:
		c.logger.WarnContext(ctx, "Check-in rejected", append(args, log.FieldError, err)...)
	default:
		c.logger.ErrorContext(ctx, "Check-in failed", append(args, log.FieldError, err)...)
	}

	if jerr := c.journal.Record(context.WithoutCancel(ctx), entry); jerr != nil {
		c.logger.WarnContext(ctx, "Failed to journal check-in", log.FieldError, jerr, "journal_id", entry.ID)
	}
}
