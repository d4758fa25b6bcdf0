package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnLetter converts a 0-based column index to its A1 letters:
// 0 -> A, 25 -> Z, 26 -> AA.
func ColumnLetter(index int) string {
	if index < 0 {
		return ""
	}
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// ColumnIndex is the inverse of ColumnLetter. It returns -1 for invalid input.
func ColumnIndex(letters string) int {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return -1
	}
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return -1
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1
}

// CellRef builds "Table!B5" from 0-based column and row indexes.
func CellRef(table string, col, row int) string {
	return fmt.Sprintf("%s!%s%d", table, ColumnLetter(col), row+1)
}

// ColumnRange builds "Table!A:B" style ranges from 0-based column indexes.
func ColumnRange(table string, fromCol, toCol int) string {
	return fmt.Sprintf("%s!%s:%s", table, ColumnLetter(fromCol), ColumnLetter(toCol))
}

// Range is a parsed A1 range. Bounds are 0-based and inclusive; -1 means
// unbounded on that side.
type Range struct {
	Table    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseRange parses "Table", "Table!A:D", "Table!B4:B", "Table!A2:C10" and
// "Table!B5". Quoted table names ('My Sheet'!A1) are accepted.
func ParseRange(rng string) (Range, error) {
	table, cells, hasCells := strings.Cut(rng, "!")
	table = strings.TrimSpace(table)
	if len(table) >= 2 && strings.HasPrefix(table, "'") && strings.HasSuffix(table, "'") {
		table = strings.ReplaceAll(table[1:len(table)-1], "''", "'")
	}
	if table == "" {
		return Range{}, fmt.Errorf("invalid range %q: missing table", rng)
	}
	r := Range{Table: table, StartCol: 0, StartRow: 0, EndCol: -1, EndRow: -1}
	if !hasCells || strings.TrimSpace(cells) == "" {
		return r, nil
	}

	from, to, isSpan := strings.Cut(cells, ":")
	sc, sr, err := parseCell(from)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", rng, err)
	}
	if sc < 0 {
		sc = 0
	}
	if sr < 0 {
		sr = 0
	}
	r.StartCol, r.StartRow = sc, sr
	if !isSpan {
		r.EndCol, r.EndRow = sc, sr
		return r, nil
	}
	ec, er, err := parseCell(to)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", rng, err)
	}
	r.EndCol, r.EndRow = ec, er
	return r, nil
}

// parseCell splits "B12" into (1, 11). Missing parts are returned as -1.
func parseCell(s string) (col, row int, err error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && ((s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= 'a' && s[i] <= 'z')) {
		i++
	}
	col, row = -1, -1
	if i > 0 {
		col = ColumnIndex(s[:i])
	}
	if i < len(s) {
		n, convErr := strconv.Atoi(s[i:])
		if convErr != nil || n < 1 {
			return 0, 0, fmt.Errorf("bad cell %q", s)
		}
		row = n - 1
	}
	if col < 0 && row < 0 {
		return 0, 0, fmt.Errorf("bad cell %q", s)
	}
	return col, row, nil
}

// String renders r back to A1 notation, the inverse of ParseRange.
func (r Range) String() string {
	table := r.Table
	if strings.ContainsAny(table, " '!") {
		table = "'" + strings.ReplaceAll(table, "'", "''") + "'"
	}
	if r.StartCol <= 0 && r.StartRow <= 0 && r.EndCol < 0 && r.EndRow < 0 {
		return table
	}
	start := ColumnLetter(r.StartCol)
	if r.StartRow > 0 || r.EndRow >= 0 {
		start += strconv.Itoa(r.StartRow + 1)
	}
	if r.EndCol == r.StartCol && r.EndRow == r.StartRow {
		return table + "!" + start
	}
	end := ""
	if r.EndCol >= 0 {
		end = ColumnLetter(r.EndCol)
	}
	if r.EndRow >= 0 {
		end += strconv.Itoa(r.EndRow + 1)
	}
	return table + "!" + start + ":" + end
}
