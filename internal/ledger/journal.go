package ledger

import (
	"context"
	"errors"

	"pointsledger/internal/core"
)

// Journal receives one entry per ledger operation. Recording is best
// effort: a failing journal never changes the operation's outcome.
type Journal interface {
	Record(ctx context.Context, e core.JournalEntry) error
}

// JournalFunc adapts a function to Journal.
type JournalFunc func(ctx context.Context, e core.JournalEntry) error

func (f JournalFunc) Record(ctx context.Context, e core.JournalEntry) error { return f(ctx, e) }

type nopJournal struct{}

func (nopJournal) Record(context.Context, core.JournalEntry) error { return nil }

// NopJournal discards entries.
var NopJournal Journal = nopJournal{}

// MultiJournal records to every journal in order and joins their errors.
func MultiJournal(js ...Journal) Journal {
	var live []Journal
	for _, j := range js {
		if j != nil {
			live = append(live, j)
		}
	}
	if len(live) == 0 {
		return NopJournal
	}
	if len(live) == 1 {
		return live[0]
	}
	return JournalFunc(func(ctx context.Context, e core.JournalEntry) error {
		var errs []error
		for _, j := range live {
			if err := j.Record(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
