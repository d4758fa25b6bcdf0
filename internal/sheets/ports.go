package sheets

import "context"

// Ports for outbound adapters.
type (
	// Reader returns the cells of an A1 range as display strings. Trailing
	// empty rows and cells are omitted, as the Sheets API does.
	Reader interface {
		Get(ctx context.Context, rng string) ([][]string, error)
	}

	// Writer overwrites the cells of an A1 range.
	Writer interface {
		Update(ctx context.Context, rng string, values [][]any) error
	}

	// Appender adds one row after the last non-empty row of a table.
	Appender interface {
		Append(ctx context.Context, table string, row []any) error
	}

	// Store is the whole spreadsheet surface the ledger needs. It offers no
	// atomicity or isolation across calls.
	Store interface {
		Reader
		Writer
		Appender
	}
)
