package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pointsledger/internal/cache"
	"pointsledger/internal/core"
	"pointsledger/internal/ledger"
	"pointsledger/internal/log"
	"pointsledger/internal/sheets"
)

// RosterConfig controls the read-only lookups.
type RosterConfig struct {
	// StudentsTable pins the subject roster to one week table; empty means
	// the table active today.
	StudentsTable string
	// StudentsExclude names the policy whose actors are removed from the
	// subject roster.
	StudentsExclude string
	Grid            ledger.GridSchema
	CacheTTL        time.Duration
	CacheSize       int
}

func DefaultRosterConfig() RosterConfig {
	return RosterConfig{
		StudentsExclude: ledger.PolicyRA,
		Grid:            ledger.DefaultGridSchema,
		CacheTTL:        30 * time.Second,
		CacheSize:       64,
	}
}

// RosterService answers name and balance lookups. Name lists are cached
// briefly; balances are always read live.
type RosterService struct {
	store    sheets.Reader
	clock    core.Clock
	policies ledger.Policies
	cfg      RosterConfig
	names    *cache.LRUCache[[]string]
	logger   *log.Logger
}

func NewRosterService(store sheets.Reader, clock core.Clock, policies ledger.Policies, cfg RosterConfig, logger *log.Logger) *RosterService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RosterService{
		store:    store,
		clock:    clock,
		policies: policies,
		cfg:      cfg,
		names:    cache.NewLRUCache[[]string](cfg.CacheSize, cfg.CacheTTL),
		logger:   logger.WithComponent(log.ComponentRoster),
	}
}

// Cache exposes the name cache for janitor registration.
func (s *RosterService) Cache() cache.Cleaner { return s.names }

func (s *RosterService) policy(name string) (ledger.Policy, error) {
	p, ok := s.policies.Get(name)
	if !ok {
		return ledger.Policy{}, core.InvalidRequest("Unknown policy '%s'.", name)
	}
	return p, nil
}

// Actors lists a policy's actor names, sorted.
func (s *RosterService) Actors(ctx context.Context, policy string) ([]string, error) {
	p, err := s.policy(policy)
	if err != nil {
		return nil, err
	}
	key := "actors:" + p.Name
	if names, ok := s.names.Get(key); ok {
		return names, nil
	}
	actors, err := ledger.LoadActors(ctx, s.store, p)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(actors))
	for _, a := range actors {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	s.names.Set(key, names)
	return names, nil
}

// Balance returns one actor's current balance.
func (s *RosterService) Balance(ctx context.Context, policy, name string) (core.Actor, error) {
	p, err := s.policy(policy)
	if err != nil {
		return core.Actor{}, err
	}
	if strings.TrimSpace(name) == "" {
		return core.Actor{}, core.InvalidRequest("%s name not provided.", p.RoleLabel)
	}
	actors, err := ledger.LoadActors(ctx, s.store, p)
	if err != nil {
		return core.Actor{}, err
	}
	a, ok := ledger.FindActor(actors, name)
	if !ok {
		return core.Actor{}, core.ActorNotFound(p.RoleLabel, strings.TrimSpace(name))
	}
	return a, nil
}

// Students lists subject names of the roster table that are not actors of
// the excluded policy, sorted. Both tables are read concurrently.
func (s *RosterService) Students(ctx context.Context) ([]string, error) {
	table := s.cfg.StudentsTable
	var weeks core.WeekSelector
	exclude, hasExclude := s.policies.Get(s.cfg.StudentsExclude)
	if hasExclude {
		weeks = exclude.Weeks
	}
	if table == "" {
		if !hasExclude {
			return nil, fmt.Errorf("students table not configured")
		}
		table = weeks.Select(s.clock.Now())
	}

	key := "students:" + table
	if names, ok := s.names.Get(key); ok {
		return names, nil
	}

	rng := sheets.Range{
		Table:    table,
		StartCol: s.cfg.Grid.NameCol,
		StartRow: s.cfg.Grid.FirstSubjectRow,
		EndCol:   s.cfg.Grid.NameCol,
		EndRow:   -1,
	}.String()

	var (
		rows   [][]string
		actors []core.Actor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.store.Get(gctx, rng)
		if err != nil {
			return core.StoreUnavailable("read "+rng, err)
		}
		return nil
	})
	if hasExclude {
		g.Go(func() error {
			var err error
			actors, err = ledger.LoadActors(gctx, s.store, exclude)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(actors))
	for _, a := range actors {
		skip[a.Name] = struct{}{}
	}
	names := []string{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		if _, isActor := skip[name]; isActor {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	s.names.Set(key, names)
	s.logger.DebugContext(ctx, "Student roster loaded", log.FieldTable, table, "count", len(names))
	return names, nil
}
