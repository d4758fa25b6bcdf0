package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

type (
	// Action selects the sign of a points mutation.
	Action string

	// Mutation is a request to move points from an actor's budget to a subject.
	Mutation struct {
		Subject string
		Actor   string
		Points  int
		Action  Action
		Reason  string
	}

	// Actor is a row of a balance table.
	Actor struct {
		Name    string
		Balance int
		Role    string
		Row     int // 0-based row index in the balance table
	}

	// LedgerEntry is one audit row. Entries are append-only.
	LedgerEntry struct {
		Date       time.Time
		Subject    string
		ActorLabel string
		Action     Action
		Points     int
		Reason     string
		GroupLabel string
	}

	// Event is one row of the schedule table.
	Event struct {
		Date  time.Time
		Name  string
		Start int // HHMM
		End   int // HHMM
	}
)

var (
	ErrEmptySubject  = errors.New("empty subject name")
	ErrEmptyActor    = errors.New("empty actor name")
	ErrInvalidPoints = errors.New("points must be a non-negative integer")
	ErrInvalidAction = errors.New("invalid action")
)

// ParseAction accepts "add" and "remove" in any case.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionAdd:
		return ActionAdd, nil
	case ActionRemove:
		return ActionRemove, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Verb is the past-tense form used in confirmation messages.
func (a Action) Verb() string {
	if a == ActionRemove {
		return "Removed"
	}
	return "Added"
}

func (m Mutation) Validate() error {
	if strings.TrimSpace(m.Subject) == "" {
		return ErrEmptySubject
	}
	if strings.TrimSpace(m.Actor) == "" {
		return ErrEmptyActor
	}
	if m.Points < 0 {
		return ErrInvalidPoints
	}
	if m.Action != ActionAdd && m.Action != ActionRemove {
		return fmt.Errorf("%w: %q", ErrInvalidAction, m.Action)
	}
	return nil
}

// Delta returns the signed change applied to the subject's cell.
func (m Mutation) Delta() int {
	if m.Action == ActionRemove {
		return -m.Points
	}
	return m.Points
}

// Message is the user-facing confirmation for a committed mutation.
func (m Mutation) Message() string {
	return fmt.Sprintf("%s %d points for %s!", m.Action.Verb(), m.Points, m.Subject)
}

// FormattedDelta renders the audit delta with an explicit sign: "+5", "-5".
// A zero delta has no sign.
func (e LedgerEntry) FormattedDelta() string {
	if e.Points == 0 {
		return "0"
	}
	if e.Action == ActionRemove {
		return "-" + strconv.Itoa(e.Points)
	}
	return "+" + strconv.Itoa(e.Points)
}

// Values returns the audit row as written to the store.
func (e LedgerEntry) Values() []any {
	return []any{
		FormatAuditDate(e.Date),
		e.Subject,
		e.ActorLabel,
		e.FormattedDelta(),
		e.Reason,
		e.GroupLabel,
	}
}

// ActiveAt reports whether the event runs at the given civil time.
// Bounds are inclusive.
func (e Event) ActiveAt(now time.Time) bool {
	if !SameDay(e.Date, now) {
		return false
	}
	hhmm := now.Hour()*100 + now.Minute()
	return e.Start <= hhmm && hhmm <= e.End
}

// MinutesSinceStart returns the whole minutes elapsed since the event began.
func (e Event) MinutesSinceStart(now time.Time) int {
	start := time.Date(now.Year(), now.Month(), now.Day(), e.Start/100, e.Start%100, 0, 0, now.Location())
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
