package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"pointsledger/internal/core"
	"pointsledger/internal/ledger"
	"pointsledger/internal/storage"
)

type ledgerAPI interface {
	Mutate(ctx context.Context, policy string, mut core.Mutation) (ledger.Result, error)
	CheckIn(ctx context.Context, subjectID string) (ledger.CheckInResult, error)
}

type rosterAPI interface {
	Actors(ctx context.Context, policy string) ([]string, error)
	Balance(ctx context.Context, policy, name string) (core.Actor, error)
	Students(ctx context.Context) ([]string, error)
}

type journalAPI interface {
	List(ctx context.Context, f storage.Filter) ([]core.JournalEntry, error)
}

// app runs one subcommand. journal opens the journal database on first use.
type app struct {
	ledger  ledgerAPI
	roster  rosterAPI
	journal func() (journalAPI, error)
	out     io.Writer
}

var errUsage = errors.New("usage")

const usage = `Usage: pointsctl <command> [flags] [args]

Commands:
  balance  -policy excor NAME     show an actor's remaining budget
  actors   -policy ra             list actors
  students                        list students on the active week table
  award    -policy ra -actor NAME -points N [-reason TEXT] STUDENT
  remove   -policy ra -actor NAME -points N [-reason TEXT] STUDENT
  checkin  STUDENT_ID             record attendance for the running event
  journal  [-limit 20] [-policy P] [-outcome O]
`

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "balance":
		return a.balance(ctx, rest)
	case "actors":
		return a.actors(ctx, rest)
	case "students":
		return a.students(ctx)
	case "award":
		return a.mutate(ctx, core.ActionAdd, rest)
	case "remove":
		return a.mutate(ctx, core.ActionRemove, rest)
	case "checkin":
		return a.checkIn(ctx, rest)
	case "journal":
		return a.listJournal(ctx, rest)
	case "help", "-h", "--help":
		_, _ = io.WriteString(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) balance(ctx context.Context, args []string) error {
	fs := newFlagSet("balance")
	policy := fs.String("policy", ledger.PolicyEXCOR, "policy")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	name := strings.Join(fs.Args(), " ")
	if name == "" {
		return fmt.Errorf("balance needs a name: %w", errUsage)
	}
	actor, err := a.roster.Balance(ctx, *policy, name)
	if err != nil {
		return err
	}

	table := a.table("Name", "Role", "Balance")
	table.Append([]string{actor.Name, actor.Role, strconv.Itoa(actor.Balance)})
	table.Render()
	return nil
}

func (a *app) actors(ctx context.Context, args []string) error {
	fs := newFlagSet("actors")
	policy := fs.String("policy", ledger.PolicyRA, "policy")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	names, err := a.roster.Actors(ctx, *policy)
	if err != nil {
		return err
	}
	a.names(strings.ToUpper(*policy), names)
	return nil
}

func (a *app) students(ctx context.Context) error {
	names, err := a.roster.Students(ctx)
	if err != nil {
		return err
	}
	a.names("Student", names)
	return nil
}

func (a *app) names(header string, names []string) {
	table := a.table("#", header)
	for i, n := range names {
		table.Append([]string{strconv.Itoa(i + 1), n})
	}
	table.Render()
}

func (a *app) mutate(ctx context.Context, action core.Action, args []string) error {
	fs := newFlagSet(string(action))
	policy := fs.String("policy", ledger.PolicyRA, "policy")
	actor := fs.String("actor", "", "actor name")
	points := fs.Int("points", 0, "points")
	reason := fs.String("reason", "", "reason")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	res, err := a.ledger.Mutate(ctx, *policy, core.Mutation{
		Subject: strings.Join(fs.Args(), " "),
		Actor:   *actor,
		Points:  *points,
		Action:  action,
		Reason:  *reason,
	})
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(a.out, res.Message)

	table := a.table("Table", "Cell", "Points", "Balance")
	table.Append([]string{
		res.Table,
		res.Cell,
		fmt.Sprintf("%d -> %d", res.PointsBefore, res.PointsAfter),
		fmt.Sprintf("%d -> %d", res.BalanceBefore, res.BalanceAfter),
	})
	table.Render()
	return nil
}

func (a *app) checkIn(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("checkin needs one student ID: %w", errUsage)
	}
	res, err := a.ledger.CheckIn(ctx, args[0])
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(a.out, res.Message)
	return nil
}

func (a *app) listJournal(ctx context.Context, args []string) error {
	fs := newFlagSet("journal")
	limit := fs.Int("limit", 20, "max entries")
	policy := fs.String("policy", "", "policy")
	outcome := fs.String("outcome", "", "outcome")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	j, err := a.journal()
	if err != nil {
		return err
	}
	f := storage.Filter{Policy: *policy, Limit: *limit}
	if *outcome != "" {
		f.Outcomes = []string{*outcome}
	}
	entries, err := j.List(ctx, f)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		color.New(color.FgYellow).Fprintln(a.out, "No journal entries.")
		return nil
	}

	table := a.table("When", "Kind", "Policy", "Actor", "Subject", "Points", "Cell", "Outcome")
	for _, e := range entries {
		table.Append([]string{
			e.OccurredAt.Format("2006-01-02 15:04:05"),
			e.Kind,
			e.Policy,
			e.Actor,
			e.Subject,
			strconv.Itoa(e.Points),
			e.Cell,
			outcomeLabel(e.Outcome),
		})
	}
	table.Render()
	return nil
}

// outcomeLabel colors outcomes that need a manual fix.
func outcomeLabel(outcome string) string {
	switch outcome {
	case core.OutcomeCommitted:
		return color.GreenString(outcome)
	case core.OutcomeCompensationFailed, core.OutcomeAuditFailed:
		return color.RedString(outcome)
	default:
		return color.YellowString(outcome)
	}
}

func (a *app) table(header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(a.out)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	return t
}
