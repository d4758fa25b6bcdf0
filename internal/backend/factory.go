package backend

import (
	"context"
	"fmt"
	"io"

	"pointsledger/internal/amqp"
	"pointsledger/internal/ledger"
	"pointsledger/internal/log"
	"pointsledger/internal/sheets"
	gsheet "pointsledger/internal/sheets/google"
	"pointsledger/internal/sheets/memory"
	"pointsledger/internal/storage"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the store and then the journal. When the journal
// fails, anything already opened is closed.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res := &Result{Store: store, Journal: ledger.NopJournal}

	switch cfg.Journal {
	case SQLiteJournal:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite journal: %w", err)
		}
		res.Journal = repo
		res.Repository = repo
		res.Closers = append(res.Closers, repo)
		f.logger.Info("Initialized SQLite journal", "db_path", cfg.SQLiteDBPath)

	case AMQPJournal:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			// The ledger keeps working without a journal.
			f.logger.Warn("Failed to initialize AMQP client, continuing without journal", log.FieldError, err)
			break
		}
		res.Journal = client
		res.Closers = append(res.Closers, client)
		f.logger.Info("Initialized AMQP journal",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
	}
	return res, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, cfg Config) (sheets.Store, error) {
	switch cfg.Store {
	case SheetsStore:
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets store")
		return cli, nil
	case MemoryStore:
		dir := cfg.DataDirectory
		if dir == "" {
			dir = "data/seed"
		}
		store, err := memory.NewFromDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory store: %w", err)
		}
		f.logger.Info("Initialized memory store", "data_directory", dir)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Store)
	}
}

// Close releases every closer, returning the first error.
func (r *Result) Close() error {
	var first error
	for _, c := range r.Closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ io.Closer = (*Result)(nil)
