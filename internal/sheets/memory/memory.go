package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pointsledger/internal/sheets"
)

// Call records one store operation, in order.
type Call struct {
	Op    string // "get", "update" or "append"
	Range string
}

// Store is an in-process spreadsheet. It mirrors the Sheets API closely
// enough for the ledger: ranges are A1, reads drop trailing blanks, appends
// go after the last non-empty row.
type Store struct {
	mu     sync.Mutex
	tables map[string][][]string
	calls  []Call

	// FailOn, when set, is consulted before every operation; a non-nil
	// result is returned instead of touching the data.
	FailOn func(op, rng string) error
}

var _ sheets.Store = (*Store)(nil)

func New() *Store {
	return &Store{tables: map[string][][]string{}}
}

// NewFromDir seeds one table per <Table>.csv file in base. A missing
// directory yields an empty store.
func NewFromDir(base string) (*Store, error) {
	s := New()
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seed dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		rows, err := readCSV(filepath.Join(base, e.Name()))
		if err != nil {
			return nil, err
		}
		s.SetTable(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), rows)
	}
	return s, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

// SetTable replaces a whole table.
func (s *Store) SetTable(name string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = cloneRows(rows)
}

// Table returns a copy of a table's raw cells.
func (s *Store) Table(name string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.tables[name])
}

// Cell returns one cell by 0-based indexes, "" when out of bounds.
func (s *Store) Cell(table string, col, row int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	if row < 0 || row >= len(rows) || col < 0 || col >= len(rows[row]) {
		return ""
	}
	return rows[row][col]
}

// Calls returns the operations performed so far.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Writes returns only the update and append calls.
func (s *Store) Writes() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op != "get" {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Store) record(op, rng string) error {
	s.calls = append(s.calls, Call{Op: op, Range: rng})
	if s.FailOn != nil {
		return s.FailOn(op, rng)
	}
	return nil
}

func (s *Store) Get(_ context.Context, rng string) ([][]string, error) {
	r, err := sheets.ParseRange(rng)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("get", rng); err != nil {
		return nil, err
	}
	rows, ok := s.tables[r.Table]
	if !ok {
		return nil, fmt.Errorf("unable to parse range: %s", rng)
	}

	var out [][]string
	for i := r.StartRow; i < len(rows) && (r.EndRow < 0 || i <= r.EndRow); i++ {
		src := rows[i]
		var row []string
		for j := r.StartCol; j < len(src) && (r.EndCol < 0 || j <= r.EndCol); j++ {
			row = append(row, src[j])
		}
		out = append(out, trimRow(row))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, rng string, values [][]any) error {
	r, err := sheets.ParseRange(rng)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("update", rng); err != nil {
		return err
	}
	rows, ok := s.tables[r.Table]
	if !ok {
		return fmt.Errorf("unable to parse range: %s", rng)
	}
	for i, vals := range values {
		ri := r.StartRow + i
		for len(rows) <= ri {
			rows = append(rows, nil)
		}
		for j, v := range vals {
			ci := r.StartCol + j
			for len(rows[ri]) <= ci {
				rows[ri] = append(rows[ri], "")
			}
			rows[ri][ci] = display(v)
		}
	}
	s.tables[r.Table] = rows
	return nil
}

func (s *Store) Append(_ context.Context, table string, row []any) error {
	r, err := sheets.ParseRange(table)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("append", table); err != nil {
		return err
	}
	rows, ok := s.tables[r.Table]
	if !ok {
		return fmt.Errorf("unable to parse range: %s", table)
	}
	last := len(rows) - 1
	for last >= 0 && len(trimRow(rows[last])) == 0 {
		last--
	}
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = display(v)
	}
	rows = append(rows[:last+1], cells)
	s.tables[r.Table] = rows
	return nil
}

func display(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func trimRow(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return append([]string(nil), row[:end]...)
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
