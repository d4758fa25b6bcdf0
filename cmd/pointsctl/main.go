package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	_ "time/tzdata"

	"github.com/fatih/color"

	"pointsledger/internal/backend"
	"pointsledger/internal/cli"
	"pointsledger/internal/config"
	"pointsledger/internal/core"
	"pointsledger/internal/services"
	"pointsledger/internal/storage"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	cli.LoadEnvFile()
	cfg := config.Load()
	// Logs go to stderr so tables stay clean on stdout.
	logger := cli.SetupLogger(cfg, os.Stderr)
	if err := cfg.Validate(); err != nil {
		color.Red("Invalid configuration: %v", err)
		return 1
	}

	ctx := context.Background()
	weeks, err := cfg.Weeks()
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	clock, err := core.NewCivilClock(cfg.Timezone)
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		color.Red("%v", err)
		return 1
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		color.Red("%v", err)
		return 1
	}

	policies := backend.Policies(cfg, weeks)
	svc, err := services.NewLedgerService(services.LedgerDeps{
		Store:    res.Store,
		Clock:    clock,
		Policies: policies,
		CheckIn:  backend.CheckInConfig(cfg, weeks),
		Journal:  res.Journal,
		Logger:   logger,
		Closers:  res.Closers,
	})
	if err != nil {
		_ = res.Close()
		color.Red("%v", err)
		return 1
	}
	defer svc.Close()

	rcfg := services.DefaultRosterConfig()
	rcfg.StudentsTable = cfg.StudentsTable

	var closeJournal io.Closer
	a := &app{
		ledger: svc,
		roster: services.NewRosterService(res.Store, clock, policies, rcfg, logger),
		out:    os.Stdout,
		journal: func() (journalAPI, error) {
			if res.Repository != nil {
				return res.Repository, nil
			}
			repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
			if err != nil {
				return nil, err
			}
			closeJournal = repo
			return repo, nil
		},
	}
	err = a.run(ctx, args)
	if closeJournal != nil {
		_ = closeJournal.Close()
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		color.Red("%v", err)
		fmt.Fprint(os.Stderr, usage)
		return 2
	default:
		color.Red("%s", core.Message(err))
		return 1
	}
}
