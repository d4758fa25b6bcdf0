package backend

import (
	"context"
	"io"

	"pointsledger/internal/ledger"
	"pointsledger/internal/sheets"
	"pointsledger/internal/storage"
)

// StoreType selects where the spreadsheet lives.
type StoreType string

const (
	SheetsStore StoreType = "sheets"
	MemoryStore StoreType = "memory"
)

func (t StoreType) String() string { return string(t) }

func (t StoreType) IsValid() bool {
	switch t {
	case SheetsStore, MemoryStore:
		return true
	default:
		return false
	}
}

// JournalType selects where mutation journal entries go.
type JournalType string

const (
	NoJournal     JournalType = "none"
	SQLiteJournal JournalType = "sqlite"
	AMQPJournal   JournalType = "amqp"
)

func (t JournalType) String() string { return string(t) }

func (t JournalType) IsValid() bool {
	switch t {
	case NoJournal, SQLiteJournal, AMQPJournal:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to build the store and the journal.
type Config struct {
	Store   StoreType
	Journal JournalType

	// Sheets
	GoogleSpreadsheetID string

	// Memory
	DataDirectory string

	// SQLite journal
	SQLiteDBPath string

	// AMQP journal
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Result is the wired backend. Closers are released in order on shutdown.
type Result struct {
	Store   sheets.Store
	Journal ledger.Journal
	// Repository is set for the sqlite journal; readiness checks ping it.
	Repository *storage.SQLiteRepository
	Closers    []io.Closer
}

// Factory builds backends from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*Result, error)
}
