package ledger

import (
	"context"
	"errors"
	"strings"

	"pointsledger/internal/core"
	"pointsledger/internal/log"
	"pointsledger/internal/sheets"
)

// Compensation reports the balance restore attempted after a failed locate
// step. Err is the restore's own failure; the caller still receives the
// original error.
type Compensation struct {
	Attempted bool
	Err       error
}

// Result describes how far a mutation got. It is populated on failure too.
type Result struct {
	Message string
	Policy  string
	Table   string // active week table
	Cell    string // subject cell, once located

	BalanceBefore int
	BalanceAfter  int
	PointsBefore  int
	PointsAfter   int

	Debited      bool // actor balance written
	Committed    bool // subject cell written; never compensated
	Audited      bool
	AuditSkipped bool
	AuditErr     error

	Compensation Compensation
}

// Mutator applies points mutations against a spreadsheet store. Store calls
// are sequential and unlocked: concurrent mutations on the same actor or
// subject may lose updates.
type Mutator struct {
	store   sheets.Store
	clock   core.Clock
	policy  Policy
	journal Journal
	logger  *log.Logger
}

func NewMutator(store sheets.Store, clock core.Clock, policy Policy) *Mutator {
	return &Mutator{
		store:   store,
		clock:   clock,
		policy:  policy,
		journal: NopJournal,
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
	}
}

// WithJournal sets where operation outcomes are recorded.
func (m *Mutator) WithJournal(j Journal) *Mutator {
	if j != nil {
		m.journal = j
	}
	return m
}

func (m *Mutator) WithLogger(l *log.Logger) *Mutator {
	if l != nil {
		m.logger = l
	}
	return m
}

func (m *Mutator) Policy() Policy { return m.policy }

// Apply runs the mutation protocol:
//
//  1. resolve the week table
//  2. load the actor balance
//  3. authorize (balance, exclusion rule); no writes on failure
//  4. debit the actor balance
//  5. locate today's point column
//  6. locate the subject row
//  7. write the subject cell
//  8. append the audit entry
//
// A failure in 5-6 restores the balance with one compensating write. From
// 7 on nothing is undone; an audit failure is returned with Committed set.
func (m *Mutator) Apply(ctx context.Context, mut core.Mutation) (Result, error) {
	mut.Subject = strings.TrimSpace(mut.Subject)
	mut.Actor = strings.TrimSpace(mut.Actor)

	res, err := m.apply(ctx, mut)
	m.record(ctx, mut, res, err)
	return res, err
}

func (m *Mutator) apply(ctx context.Context, mut core.Mutation) (Result, error) {
	res := Result{Policy: m.policy.Name}
	if err := mut.Validate(); err != nil {
		return res, core.InvalidRequest("%v", err)
	}

	now := m.clock.Now()
	table := m.policy.Weeks.Select(now)
	res.Table = table

	actors, err := LoadActors(ctx, m.store, m.policy)
	if err != nil {
		return res, err
	}
	actor, ok := FindActor(actors, mut.Actor)
	if !ok {
		return res, core.ActorNotFound(m.policy.RoleLabel, mut.Actor)
	}
	res.BalanceBefore = actor.Balance
	res.BalanceAfter = actor.Balance

	if mut.Points > actor.Balance {
		return res, &core.InsufficientBalanceError{Actor: actor.Name, Available: actor.Balance, Requested: mut.Points}
	}
	if err := m.authorize(ctx, table, actor, actors, mut); err != nil {
		return res, err
	}

	balanceCell := sheets.CellRef(m.policy.BalanceTable, m.policy.BalanceColumn, actor.Row)
	debited := actor.Balance - mut.Points
	if err := m.store.Update(ctx, balanceCell, [][]any{{debited}}); err != nil {
		return res, core.StoreUnavailable("update "+balanceCell, err)
	}
	res.Debited = true
	res.BalanceAfter = debited

	// Issued writes are not abortable; finish the protocol regardless.
	ctx = context.WithoutCancel(ctx)

	rows, err := m.store.Get(ctx, table)
	if err != nil {
		return m.compensate(ctx, res, balanceCell, actor.Balance, core.StoreUnavailable("read "+table, err))
	}
	grid := NewWeekGrid(table, rows, m.policy.Grid, now.Location())

	col, ok := grid.Column(m.policy.PointColumnLabel, now)
	if !ok {
		return m.compensate(ctx, res, balanceCell, actor.Balance, core.ColumnNotFound(m.policy.PointColumnLabel, table))
	}
	row, ok := grid.RowByName(mut.Subject)
	if !ok {
		return m.compensate(ctx, res, balanceCell, actor.Balance, core.SubjectNotFound(mut.Subject, table))
	}

	current := core.ParseCellInt(grid.Cell(row, col))
	next := current + mut.Delta()
	res.Cell = sheets.CellRef(table, col, row)
	res.PointsBefore = current
	res.PointsAfter = current
	if err := m.store.Update(ctx, res.Cell, [][]any{{next}}); err != nil {
		return res, core.StoreUnavailable("update "+res.Cell, err)
	}
	res.Committed = true
	res.PointsAfter = next

	if m.policy.Exclusion.SkipAuditForSelf && sameName(actor.Name, mut.Subject) {
		res.AuditSkipped = true
	} else {
		entry := core.LedgerEntry{
			Date:       now,
			Subject:    mut.Subject,
			ActorLabel: actor.Name,
			Action:     mut.Action,
			Points:     mut.Points,
			Reason:     mut.Reason,
			GroupLabel: m.policy.GroupLabel(grid.Group(row)),
		}
		if err := m.store.Append(ctx, m.policy.AuditTable, entry.Values()); err != nil {
			res.AuditErr = err
			return res, core.StoreUnavailable("append to "+m.policy.AuditTable, err)
		}
		res.Audited = true
	}

	res.Message = mut.Message()
	return res, nil
}

// authorize applies the policy's exclusion rule. Only additions are
// restricted.
func (m *Mutator) authorize(ctx context.Context, table string, actor core.Actor, actors []core.Actor, mut core.Mutation) error {
	rule := m.policy.Exclusion
	if mut.Action != core.ActionAdd {
		return nil
	}

	if rule.DenyActorSubjects && !sameName(actor.Name, mut.Subject) {
		if _, isActor := FindActor(actors, mut.Subject); isActor {
			return core.PolicyViolation("You cannot award points to another %s.", m.policy.RoleLabel)
		}
	}

	if rule.DenyInGroupIncrease && !rule.IsCoordinator(actor.Role) {
		rows, err := m.store.Get(ctx, table)
		if err != nil {
			return core.StoreUnavailable("read "+table, err)
		}
		grid := NewWeekGrid(table, rows, m.policy.Grid, m.clock.Now().Location())
		if row, ok := grid.RowByName(mut.Subject); ok && sameName(grid.Group(row), actor.Name) {
			return core.PolicyViolation("You cannot award points to students in your own group.")
		}
	}
	return nil
}

func (m *Mutator) compensate(ctx context.Context, res Result, balanceCell string, balance int, cause error) (Result, error) {
	res.Compensation.Attempted = true
	if err := m.store.Update(ctx, balanceCell, [][]any{{balance}}); err != nil {
		res.Compensation.Err = err
		m.logger.ErrorContext(ctx, "Balance compensation failed",
			log.FieldPolicy, m.policy.Name,
			log.FieldCell, balanceCell,
			log.FieldBalance, balance,
			log.FieldError, err,
			"cause", cause)
		return res, cause
	}
	res.BalanceAfter = balance
	return res, cause
}

func (m *Mutator) record(ctx context.Context, mut core.Mutation, res Result, err error) {
	entry := core.NewJournalEntry(core.JournalKindMutation, m.clock.Now())
	entry.Policy = m.policy.Name
	entry.Actor = mut.Actor
	entry.Subject = mut.Subject
	entry.Action = string(mut.Action)
	entry.Points = mut.Points
	entry.Table = res.Table
	entry.Cell = res.Cell
	entry.Outcome = mutationOutcome(res, err)
	entry.ErrorKind = core.KindName(err)
	if err != nil {
		entry.Error = err.Error()
	}
	if res.Debited || res.BalanceBefore != 0 {
		entry.BalanceBefore = core.IntPtr(res.BalanceBefore)
		entry.BalanceAfter = core.IntPtr(res.BalanceAfter)
	}
	if res.Cell != "" {
		entry.CellBefore = core.IntPtr(res.PointsBefore)
		entry.CellAfter = core.IntPtr(res.PointsAfter)
	}

	fields := log.NewFields().
		WithOperation(log.OpMutate).
		WithMutation(m.policy.Name, mut.Actor, mut.Subject, string(mut.Action), mut.Points).
		WithOutcome(entry.Outcome).
		WithError(err)
	switch {
	case err == nil:
		m.logger.InfoContext(ctx, "Points mutation committed", append(fields.ToSlice(), log.FieldCell, res.Cell)...)
	case entry.Outcome == core.OutcomeRejected:
		m.logger.WarnContext(ctx, "Points mutation rejected", fields.ToSlice()...)
	default:
		m.logger.ErrorContext(ctx, "Points mutation failed", fields.ToSlice()...)
	}

	if jerr := m.journal.Record(context.WithoutCancel(ctx), entry); jerr != nil {
		m.logger.WarnContext(ctx, "Failed to journal mutation", log.FieldError, jerr, "journal_id", entry.ID)
	}
}

func mutationOutcome(res Result, err error) string {
	switch {
	case err == nil:
		return core.OutcomeCommitted
	case res.Committed && res.AuditErr != nil:
		return core.OutcomeAuditFailed
	case res.Compensation.Attempted && res.Compensation.Err != nil:
		return core.OutcomeCompensationFailed
	case res.Compensation.Attempted:
		return core.OutcomeCompensated
	case !res.Debited && !errors.Is(err, core.ErrStoreUnavailable):
		return core.OutcomeRejected
	default:
		return core.OutcomeFailed
	}
}
