package core

import (
	"time"

	"github.com/google/uuid"
)

const (
	JournalKindMutation = "mutation"
	JournalKindCheckIn  = "checkin"
)

// Outcomes recorded in the journal.
const (
	OutcomeCommitted          = "committed"
	OutcomeRejected           = "rejected"
	OutcomeCompensated        = "compensated"
	OutcomeCompensationFailed = "compensation_failed"
	OutcomeAuditFailed        = "audit_failed"
	OutcomeFailed             = "failed"
)

// JournalEntry describes one ledger operation and how it ended. It is kept
// outside the spreadsheet so partial failures can be reconciled by hand.
type JournalEntry struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Policy        string    `json:"policy,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	Subject       string    `json:"subject"`
	Action        string    `json:"action,omitempty"`
	Points        int       `json:"points"`
	Table         string    `json:"table,omitempty"`
	Cell          string    `json:"cell,omitempty"`
	Outcome       string    `json:"outcome"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	Error         string    `json:"error,omitempty"`
	BalanceBefore *int      `json:"balance_before,omitempty"`
	BalanceAfter  *int      `json:"balance_after,omitempty"`
	CellBefore    *int      `json:"cell_before,omitempty"`
	CellAfter     *int      `json:"cell_after,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewJournalEntry stamps a fresh ID and time.
func NewJournalEntry(kind string, at time.Time) JournalEntry {
	return JournalEntry{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: at,
	}
}

// IntPtr is a helper for the optional journal fields.
func IntPtr(v int) *int { return &v }
