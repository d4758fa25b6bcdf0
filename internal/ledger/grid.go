package ledger

import (
	"strings"
	"time"

	"pointsledger/internal/core"
)

// GridSchema names the positional roles of a week table. Row and column
// numbers are 0-based.
type GridSchema struct {
	EventRow        int // header labels ("RA Points", event names)
	DateRow         int // civil date of each column
	FirstSubjectRow int
	IDCol           int
	NameCol         int
	GroupCol        int
}

// DefaultGridSchema matches the program's week tables: labels on row 1,
// dates on row 2, subjects from row 4 with ID, name and group in A:C.
var DefaultGridSchema = GridSchema{
	EventRow:        0,
	DateRow:         1,
	FirstSubjectRow: 3,
	IDCol:           0,
	NameCol:         1,
	GroupCol:        2,
}

// CheckInGridSchema is DefaultGridSchema with subject IDs scanned from
// row 3, where the attendance sheets start their roster.
var CheckInGridSchema = GridSchema{
	EventRow:        0,
	DateRow:         1,
	FirstSubjectRow: 2,
	IDCol:           0,
	NameCol:         1,
	GroupCol:        2,
}

// WeekGrid is one fetch of a week table with its header and subject
// lookups resolved up front.
type WeekGrid struct {
	Table   string
	schema  GridSchema
	rows    [][]string
	columns map[string]int
	byName  map[string]int
	byID    map[string]int
}

func columnKey(label string, day time.Time) string {
	return strings.ToLower(strings.TrimSpace(label)) + "|" + day.Format("2006-01-02")
}

// NewWeekGrid indexes rows. Header dates are read in loc; the first
// matching column or row wins when labels repeat.
func NewWeekGrid(table string, rows [][]string, schema GridSchema, loc *time.Location) *WeekGrid {
	g := &WeekGrid{
		Table:   table,
		schema:  schema,
		rows:    rows,
		columns: map[string]int{},
		byName:  map[string]int{},
		byID:    map[string]int{},
	}

	labels := g.row(schema.EventRow)
	dates := g.row(schema.DateRow)
	for i, label := range labels {
		if strings.TrimSpace(label) == "" || i >= len(dates) {
			continue
		}
		day, ok := core.ParseCellDate(dates[i], loc)
		if !ok {
			continue
		}
		key := columnKey(label, day)
		if _, seen := g.columns[key]; !seen {
			g.columns[key] = i
		}
	}

	for r := schema.FirstSubjectRow; r < len(rows); r++ {
		if name := strings.TrimSpace(g.Cell(r, schema.NameCol)); name != "" {
			if _, seen := g.byName[name]; !seen {
				g.byName[name] = r
			}
		}
		if id := strings.TrimSpace(g.Cell(r, schema.IDCol)); id != "" {
			if _, seen := g.byID[id]; !seen {
				g.byID[id] = r
			}
		}
	}
	return g
}

func (g *WeekGrid) row(i int) []string {
	if i < 0 || i >= len(g.rows) {
		return nil
	}
	return g.rows[i]
}

// Column finds the column whose header matches label (case-insensitive,
// trimmed) and whose date row falls on day.
func (g *WeekGrid) Column(label string, day time.Time) (int, bool) {
	col, ok := g.columns[columnKey(label, day)]
	return col, ok
}

// RowByName matches the trimmed subject name exactly.
func (g *WeekGrid) RowByName(name string) (int, bool) {
	row, ok := g.byName[strings.TrimSpace(name)]
	return row, ok
}

// RowByID matches the trimmed subject identifier exactly.
func (g *WeekGrid) RowByID(id string) (int, bool) {
	row, ok := g.byID[strings.TrimSpace(id)]
	return row, ok
}

// Cell returns the raw cell text, "" when out of bounds.
func (g *WeekGrid) Cell(row, col int) string {
	r := g.row(row)
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

func (g *WeekGrid) Name(row int) string  { return strings.TrimSpace(g.Cell(row, g.schema.NameCol)) }
func (g *WeekGrid) Group(row int) string { return strings.TrimSpace(g.Cell(row, g.schema.GroupCol)) }

// Names lists subject names in sheet order.
func (g *WeekGrid) Names() []string {
	var out []string
	for r := g.schema.FirstSubjectRow; r < len(g.rows); r++ {
		if n := g.Name(r); n != "" {
			out = append(out, n)
		}
	}
	return out
}
