package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"pointsledger/internal/core"
	"pointsledger/internal/ledger"
	"pointsledger/internal/log"
	"pointsledger/internal/sheets"
)

// LedgerService routes mutations to the mutator of the requested policy
// and runs check-ins. It owns the journal and closes it.
type LedgerService struct {
	policies ledger.Policies
	mutators map[string]*ledger.Mutator
	checkIn  *ledger.CheckIn
	clock    core.Clock
	closers  []io.Closer
}

// LedgerDeps wires a LedgerService.
type LedgerDeps struct {
	Store    sheets.Store
	Clock    core.Clock
	Policies ledger.Policies
	CheckIn  ledger.CheckInConfig
	Journal  ledger.Journal
	Logger   *log.Logger
	// Closers are released by Close, e.g. the journal's database.
	Closers []io.Closer
}

func NewLedgerService(d LedgerDeps) (*LedgerService, error) {
	if d.Store == nil {
		return nil, errors.New("ledger service: nil store")
	}
	if len(d.Policies) == 0 {
		return nil, errors.New("ledger service: no policies")
	}
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	s := &LedgerService{
		policies: d.Policies,
		mutators: make(map[string]*ledger.Mutator, len(d.Policies)),
		clock:    d.Clock,
		closers:  d.Closers,
	}
	for name, p := range d.Policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		s.mutators[name] = ledger.NewMutator(d.Store, d.Clock, p).
			WithJournal(d.Journal).
			WithLogger(d.Logger.WithComponent(log.ComponentLedger))
	}
	s.checkIn = ledger.NewCheckIn(d.Store, d.Clock, d.CheckIn).
		WithJournal(d.Journal).
		WithLogger(d.Logger.WithComponent(log.ComponentCheckIn))
	return s, nil
}

// Policies lists the configured policy names.
func (s *LedgerService) Policies() []string { return s.policies.Names() }

// Mutate applies mut under the named policy.
func (s *LedgerService) Mutate(ctx context.Context, policy string, mut core.Mutation) (ledger.Result, error) {
	p, ok := s.policies.Get(policy)
	if !ok {
		return ledger.Result{}, core.InvalidRequest("Unknown policy '%s'.", policy)
	}
	return s.mutators[p.Name].Apply(ctx, mut)
}

func (s *LedgerService) CheckIn(ctx context.Context, subjectID string) (ledger.CheckInResult, error) {
	return s.checkIn.Apply(ctx, subjectID)
}

// ActiveEvent returns the event running now, if any.
func (s *LedgerService) ActiveEvent(ctx context.Context) (core.Event, error) {
	return s.checkIn.ActiveEvent(ctx, s.clock.Now())
}

func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
