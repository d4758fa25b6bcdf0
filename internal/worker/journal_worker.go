package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"pointsledger/internal/amqp"
	"pointsledger/internal/core"
	"pointsledger/internal/log"
)

// EntryStore persists journal entries. Record must be idempotent by ID.
type EntryStore interface {
	Record(ctx context.Context, e core.JournalEntry) error
}

// Consumer feeds entries to a handler until its context ends.
type Consumer interface {
	ConsumeJournal(ctx context.Context, handler amqp.Handler) error
}

// Stats counts what the worker has processed.
type Stats struct {
	Stored    int64
	Failed    int64
	Unhealthy int64 // partial failures that need a human
}

// JournalWorker drains journal messages into the local store.
type JournalWorker struct {
	store    EntryStore
	consumer Consumer
	logger   *log.Logger

	stored    atomic.Int64
	failed    atomic.Int64
	unhealthy atomic.Int64
}

func NewJournalWorker(store EntryStore, consumer Consumer, logger *log.Logger) *JournalWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &JournalWorker{
		store:    store,
		consumer: consumer,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx is cancelled or the consumer gives up.
func (w *JournalWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Journal worker started")
	err := w.consumer.ConsumeJournal(ctx, w.HandleEntry)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("consume journal: %w", err)
	}
	w.logger.InfoContext(ctx, "Journal worker stopped", "stored", w.stored.Load())
	return nil
}

// HandleEntry stores one entry. Partial failures are logged at error level
// because the spreadsheet needs a manual fix.
func (w *JournalWorker) HandleEntry(ctx context.Context, e core.JournalEntry) error {
	if err := w.store.Record(ctx, e); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("store journal entry %s: %w", e.ID, err)
	}
	w.stored.Add(1)

	switch e.Outcome {
	case core.OutcomeCompensationFailed, core.OutcomeAuditFailed:
		w.unhealthy.Add(1)
		w.logger.ErrorContext(ctx, "Ledger left inconsistent, reconcile by hand",
			"journal_id", e.ID,
			log.FieldOutcome, e.Outcome,
			log.FieldPolicy, e.Policy,
			log.FieldActor, e.Actor,
			log.FieldSubject, e.Subject,
			log.FieldCell, e.Cell,
			log.FieldError, e.Error)
	default:
		w.logger.DebugContext(ctx, "Journal entry stored", "journal_id", e.ID, log.FieldOutcome, e.Outcome)
	}
	return nil
}

func (w *JournalWorker) Stats() Stats {
	return Stats{
		Stored:    w.stored.Load(),
		Failed:    w.failed.Load(),
		Unhealthy: w.unhealthy.Load(),
	}
}
