// Package payroll implements the payroll run approval workflow: a strict
// forward-only state machine gated by the permission matrix, with a
// mandatory audit trail for every transition.
package payroll

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/gajiflow/gajiflow/internal/permissions"
)

// Status is the lifecycle state of a payroll run.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusReview    Status = "review"
	StatusApproved  Status = "approved"
	StatusPublished Status = "published"
)

// NextStatus returns the single legal successor of current. The second
// return is false for published, the terminal state, and for anything
// outside the enum.
func NextStatus(current Status) (Status, bool) {
	switch current {
	case StatusDraft:
		return StatusReview, true
	case StatusReview:
		return StatusApproved, true
	case StatusApproved:
		return StatusPublished, true
	}
	return "", false
}

// requiredCapabilities maps a from-status to the capabilities that may
// advance it. Any single listed capability suffices: preparers who can
// create or edit payroll may send a draft to review. Kept as data so the
// business rule is testable on its own.
var requiredCapabilities = map[Status][]permissions.Capability{
	StatusDraft:    {permissions.CapabilityCreate, permissions.CapabilityEdit},
	StatusReview:   {permissions.CapabilityApprove},
	StatusApproved: {permissions.CapabilityPublish},
}

// RequiredCapabilities returns the capabilities that may advance a run out
// of the given status. Empty for the terminal state.
func RequiredCapabilities(from Status) []permissions.Capability {
	return requiredCapabilities[from]
}

// PayrollRun is one payroll cycle for one client within a firm.
type PayrollRun struct {
	ID          uuid.UUID  `json:"id"`
	FirmID      uuid.UUID  `json:"firm_id"`
	ClientID    uuid.UUID  `json:"client_id"`
	PayPeriod   string     `json:"pay_period"`
	PayDate     time.Time  `json:"pay_date"`
	Status      Status     `json:"status"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	ReviewedBy  *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ApprovedBy  *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	PublishedBy *uuid.UUID `json:"published_by,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// HistoryEntry is one immutable audit record of a status change. Current
// state lives solely on the run; history is for display only.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	RunID      uuid.UUID `json:"run_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ChangedBy  uuid.UUID `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
	Notes      string    `json:"notes,omitempty"`
}

var periodFolder = cases.Fold()

// NormalizePeriod canonicalizes a pay period label for uniqueness checks.
// "2026-01", " 2026-01 " and "2026-01" with odd casing all collide.
func NormalizePeriod(period string) string {
	return periodFolder.String(strings.Join(strings.Fields(period), " "))
}

var (
	// ErrNotFound indicates the payroll run does not exist.
	ErrNotFound = errors.New("payroll: run not found")
	// ErrTerminalState indicates a transition attempt from published.
	ErrTerminalState = errors.New("payroll: run is in a terminal state")
	// ErrDuplicatePeriod indicates a run already exists for the client and period.
	ErrDuplicatePeriod = errors.New("payroll: duplicate pay period for client")
	// ErrConcurrentModification indicates another caller advanced the run first.
	ErrConcurrentModification = errors.New("payroll: run was modified concurrently")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("payroll: invalid input")
)
