package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultTimezone is the civil zone all "today" comparisons run in.
const DefaultTimezone = "Asia/Riyadh"

// Clock supplies wall-clock time already converted to the civil zone.
type Clock interface {
	Now() time.Time
}

// CivilClock reads the system clock in a fixed location.
type CivilClock struct {
	Location *time.Location
}

func NewCivilClock(tz string) (CivilClock, error) {
	if strings.TrimSpace(tz) == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return CivilClock{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return CivilClock{Location: loc}, nil
}

func (c CivilClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SameDay compares civil dates, ignoring the time of day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FormatAuditDate renders dates the way the audit sheet expects: M/D/YYYY.
func FormatAuditDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}

var cellDateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"2006-01-02",
	"2006/01/02",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"2-Jan-2006",
	"2 Jan 2006",
	"2 January 2006",
	"1/2/2006 15:04:05",
	time.RFC3339,
}

// ParseCellDate interprets a formatted spreadsheet date as a civil date in loc.
func ParseCellDate(cell string, loc *time.Location) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range cellDateLayouts {
		if t, err := time.ParseInLocation(layout, cell, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCellInt reads a leading integer the way spreadsheet formulas tolerate
// it: surrounding blanks are ignored, trailing garbage is dropped, and a cell
// without leading digits, or too large for an int, counts as 0.
func ParseCellInt(cell string) int {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	// Out of range counts as non-numeric rather than wrapping.
	n, err := strconv.Atoi(s[:digits])
	if err != nil {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

// WeekThreshold switches to Table from Start (a civil date) onwards.
type WeekThreshold struct {
	Start time.Time
	Table string
}

// WeekSelector maps a civil date to the active week table.
type WeekSelector struct {
	thresholds []WeekThreshold
	fallback   string
}

// DefaultWeekSchedule is the program calendar used when none is configured.
const DefaultWeekSchedule = "2025-06-06=Week1,2025-07-06=Week2,2025-07-13=Week3,2025-07-20=Week4,2025-08-03=Week5,2025-08-10=Week6"

func NewWeekSelector(fallback string, thresholds ...WeekThreshold) WeekSelector {
	ts := append([]WeekThreshold(nil), thresholds...)
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Start.Before(ts[j].Start) })
	return WeekSelector{thresholds: ts, fallback: fallback}
}

// ParseWeekSchedule parses "YYYY-MM-DD=Table,..." into thresholds.
func ParseWeekSchedule(schedule string, loc *time.Location) ([]WeekThreshold, error) {
	if loc == nil {
		loc = time.UTC
	}
	var out []WeekThreshold
	for _, part := range strings.Split(schedule, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		date, table, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid week threshold %q: want DATE=TABLE", part)
		}
		start, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
		if err != nil {
			return nil, fmt.Errorf("invalid week threshold date %q: %w", date, err)
		}
		table = strings.TrimSpace(table)
		if table == "" {
			return nil, fmt.Errorf("invalid week threshold %q: empty table", part)
		}
		out = append(out, WeekThreshold{Start: start, Table: table})
	}
	return out, nil
}

// Select returns the table of the latest threshold not after now's civil
// date, or the fallback when now precedes every threshold.
func (s WeekSelector) Select(now time.Time) string {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	table := s.fallback
	for _, th := range s.thresholds {
		ty, tm, td := th.Start.Date()
		if time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).After(today) {
			break
		}
		table = th.Table
	}
	return table
}

// Tables lists every table the selector can return, fallback first.
func (s WeekSelector) Tables() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range append([]string{s.fallback}, tableNames(s.thresholds)...) {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func tableNames(ts []WeekThreshold) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Table
	}
	return out
}
