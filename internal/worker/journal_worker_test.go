package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsledger/internal/amqp"
	"pointsledger/internal/core"
)

type memStore struct {
	entries map[string]core.JournalEntry
	err     error
}

func (m *memStore) Record(_ context.Context, e core.JournalEntry) error {
	if m.err != nil {
		return m.err
	}
	if m.entries == nil {
		m.entries = map[string]core.JournalEntry{}
	}
	m.entries[e.ID] = e
	return nil
}

// sliceConsumer replays a fixed set of entries, then waits for cancellation.
type sliceConsumer struct {
	entries []core.JournalEntry
	errs    []error
}

func (c *sliceConsumer) ConsumeJournal(ctx context.Context, h amqp.Handler) error {
	for _, e := range c.entries {
		c.errs = append(c.errs, h(ctx, e))
	}
	<-ctx.Done()
	return ctx.Err()
}

func newEntry(outcome string) core.JournalEntry {
	e := core.NewJournalEntry(core.JournalKindMutation, time.Now())
	e.Outcome = outcome
	return e
}

func TestJournalWorkerStoresEntries(t *testing.T) {
	store := &memStore{}
	consumer := &sliceConsumer{entries: []core.JournalEntry{
		newEntry(core.OutcomeCommitted),
		newEntry(core.OutcomeCompensationFailed),
		newEntry(core.OutcomeRejected),
	}}
	w := NewJournalWorker(store, consumer, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))

	assert.Len(t, store.entries, 3)
	assert.Equal(t, Stats{Stored: 3, Unhealthy: 1}, w.Stats())
	for _, err := range consumer.errs {
		assert.NoError(t, err)
	}
}

func TestJournalWorkerRequeuesOnStoreError(t *testing.T) {
	store := &memStore{err: errors.New("database is locked")}
	w := NewJournalWorker(store, nil, nil)

	err := w.HandleEntry(context.Background(), newEntry(core.OutcomeCommitted))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, int64(1), w.Stats().Failed)
}

type failingConsumer struct{}

func (failingConsumer) ConsumeJournal(context.Context, amqp.Handler) error {
	return errors.New("access refused")
}

func TestJournalWorkerReportsConsumerFailure(t *testing.T) {
	w := NewJournalWorker(&memStore{}, failingConsumer{}, nil)
	assert.ErrorContains(t, w.Run(context.Background()), "access refused")
}
