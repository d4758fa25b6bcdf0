package backend

import (
	"fmt"

	"pointsledger/internal/config"
	"pointsledger/internal/core"
	"pointsledger/internal/ledger"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg := Config{
		Store:               StoreType(app.DataBackend),
		Journal:             JournalType(app.JournalBackend),
		GoogleSpreadsheetID: app.GoogleSpreadsheetID,
		DataDirectory:       app.DataDir,
		SQLiteDBPath:        app.SQLiteDBPath,
		AMQPURL:             app.AMQPURL,
		AMQPExchange:        app.AMQPExchange,
		AMQPQueue:           app.AMQPQueue,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid store type: %s", c.Store)
	}
	if !c.Journal.IsValid() {
		return fmt.Errorf("invalid journal type: %s", c.Journal)
	}
	if c.Store == SheetsStore && c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("spreadsheet ID is required for sheets store")
	}
	switch c.Journal {
	case SQLiteJournal:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite journal")
		}
	case AMQPJournal:
		if c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP URL, exchange and queue are required for amqp journal")
		}
	}
	return nil
}

// Policies builds the RA and EXCOR policies with the configured tables.
func Policies(app *config.Config, weeks core.WeekSelector) ledger.Policies {
	ra := ledger.RAPolicy(weeks)
	ra.BalanceTable = app.RABalanceTable
	ra.PointColumnLabel = app.RAPointLabel
	ra.AuditTable = app.AuditTable

	excor := ledger.EXCORPolicy(weeks)
	excor.BalanceTable = app.EXCORBalanceTable
	excor.PointColumnLabel = app.EXCORPointLabel
	excor.AuditTable = app.AuditTable
	if len(app.CoordinatorRoles) > 0 {
		excor.Exclusion.CoordinatorRoles = app.CoordinatorRoles
	}
	return ledger.NewPolicies(ra, excor)
}

// CheckInConfig builds the attendance settings.
func CheckInConfig(app *config.Config, weeks core.WeekSelector) ledger.CheckInConfig {
	cfg := ledger.DefaultCheckInConfig(weeks)
	cfg.ScheduleRange = app.ScheduleRange
	cfg.AttendanceTable = app.AttendanceTable
	return cfg
}
