package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"pointsledger/internal/backend"
	"pointsledger/internal/cli"
	"pointsledger/internal/core"
	apphttp "pointsledger/internal/http"
	"pointsledger/internal/log"
	"pointsledger/internal/services"
)

func main() {
	cfg, logger := cli.LoadConfig()
	cli.MustValidate(logger, cfg.Validate)

	weeks, err := cfg.Weeks()
	if err != nil {
		logger.Error("Invalid week schedule", log.FieldError, err)
		os.Exit(1)
	}
	clock, err := core.NewCivilClock(cfg.Timezone)
	if err != nil {
		logger.Error("Invalid timezone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "store", bcfg.Store, "journal", bcfg.Journal)
		os.Exit(1)
	}

	policies := backend.Policies(cfg, weeks)
	ledgerSvc, err := services.NewLedgerService(services.LedgerDeps{
		Store:    res.Store,
		Clock:    clock,
		Policies: policies,
		CheckIn:  backend.CheckInConfig(cfg, weeks),
		Journal:  res.Journal,
		Logger:   logger,
		Closers:  res.Closers,
	})
	if err != nil {
		logger.Error("Failed to create ledger service", log.FieldError, err)
		_ = res.Close()
		os.Exit(1)
	}

	rcfg := services.DefaultRosterConfig()
	rcfg.CacheTTL = cfg.RosterCacheTTL
	rcfg.StudentsTable = cfg.StudentsTable
	roster := services.NewRosterService(res.Store, clock, policies, rcfg, logger)

	checks := map[string]apphttp.Check{
		"store": func(ctx context.Context) error {
			_, err := res.Store.Get(ctx, cfg.RABalanceTable+"!A1:A1")
			return err
		},
	}
	if res.Repository != nil {
		checks["journal"] = res.Repository.Ping
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              ":" + cfg.Port,
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		LegacyStatusCodes: cfg.LegacyStatusCodes,
		ReadyChecks:       checks,
		Logger:            logger,
	}, ledgerSvc, roster)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := ledgerSvc.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	logger.Info("Starting points ledger",
		"port", cfg.Port,
		"store", bcfg.Store,
		"journal", bcfg.Journal,
		"policies", ledgerSvc.Policies(),
		"week", weeks.Select(clock.Now()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = ledgerSvc.Close()
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
