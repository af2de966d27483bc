package payroll

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gajiflow/gajiflow/internal/permissions"
	"github.com/gajiflow/gajiflow/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateRun(ctx context.Context, run PayrollRun) error
	GetRun(ctx context.Context, runID uuid.UUID) (PayrollRun, error)
	ListHistory(ctx context.Context, runID uuid.UUID) ([]HistoryEntry, error)
}

// AuthorizerPort is the single yes/no decision function gating every
// mutation. Implemented by permissions.Service.
type AuthorizerPort interface {
	Authorize(ctx context.Context, firmID uuid.UUID, roles []shared.Role, resource permissions.Resource, capability permissions.Capability) (bool, error)
}

// TransitionRecorder counts transition attempts for observability.
type TransitionRecorder interface {
	RecordTransition(toStatus, outcome string)
}

// Service is the workflow engine: it computes legal next states, checks
// authorization, applies the transition and appends the audit entry as one
// unit of work.
type Service struct {
	repo    RepositoryPort
	authz   AuthorizerPort
	logger  *slog.Logger
	metrics TransitionRecorder
	now     func() time.Time
}

// NewService constructs the workflow engine. metrics may be nil.
func NewService(repo RepositoryPort, authz AuthorizerPort, logger *slog.Logger, metrics TransitionRecorder) *Service {
	return &Service{repo: repo, authz: authz, logger: logger, metrics: metrics, now: func() time.Time { return time.Now().UTC() }}
}

// CreateRunInput describes the creation payload.
type CreateRunInput struct {
	FirmID    uuid.UUID
	ClientID  uuid.UUID
	PayPeriod string
	PayDate   time.Time
}

// CreateRun opens a new payroll cycle in draft for a client.
func (s *Service) CreateRun(ctx context.Context, input CreateRunInput, actor shared.Actor) (PayrollRun, error) {
	input.PayPeriod = strings.TrimSpace(input.PayPeriod)
	if input.FirmID == uuid.Nil || input.ClientID == uuid.Nil || input.PayPeriod == "" || input.PayDate.IsZero() {
		return PayrollRun{}, ErrValidation
	}
	allowed, err := s.authz.Authorize(ctx, input.FirmID, actor.Roles, permissions.ResourcePayroll, permissions.CapabilityCreate)
	if err != nil {
		return PayrollRun{}, err
	}
	if !allowed {
		return PayrollRun{}, shared.ErrPermissionDenied
	}
	run := PayrollRun{
		ID:        uuid.New(),
		FirmID:    input.FirmID,
		ClientID:  input.ClientID,
		PayPeriod: input.PayPeriod,
		PayDate:   input.PayDate,
		Status:    StatusDraft,
		CreatedBy: actor.UserID,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return PayrollRun{}, err
	}
	s.logger.Info("payroll run created",
		slog.String("run_id", run.ID.String()),
		slog.String("firm_id", run.FirmID.String()),
		slog.String("pay_period", run.PayPeriod))
	return run, nil
}

// RequestTransition advances the run to its next status. The status update
// and the history append either both happen or neither does; on any failure
// path there are zero side effects.
func (s *Service) RequestTransition(ctx context.Context, runID uuid.UUID, actor shared.Actor, notes string) (PayrollRun, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return PayrollRun{}, err
	}
	next, ok := NextStatus(run.Status)
	if !ok {
		s.countTransition("", "terminal")
		return PayrollRun{}, ErrTerminalState
	}
	allowed, err := s.authorizeTransition(ctx, run, actor)
	if err != nil {
		return PayrollRun{}, err
	}
	if !allowed {
		s.countTransition(next, "denied")
		return PayrollRun{}, shared.ErrPermissionDenied
	}
	at := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.AdvanceStatus(ctx, run.ID, run.Status, next, actor.UserID, at); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, HistoryEntry{
			RunID:      run.ID,
			FromStatus: run.Status,
			ToStatus:   next,
			ChangedBy:  actor.UserID,
			ChangedAt:  at,
			Notes:      notes,
		})
	})
	if err != nil {
		s.countTransition(next, "failed")
		return PayrollRun{}, err
	}
	s.countTransition(next, "accepted")
	s.logger.Info("payroll run transitioned",
		slog.String("run_id", run.ID.String()),
		slog.String("from", string(run.Status)),
		slog.String("to", string(next)),
		slog.String("actor", actor.UserID.String()))
	return s.applyTransition(run, next, actor.UserID, at), nil
}

// GetRun returns the current state of a run.
func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (PayrollRun, error) {
	return s.repo.GetRun(ctx, runID)
}

// ListHistory returns the run's audit trail, oldest first. Display only;
// never consulted for authorization or current state.
func (s *Service) ListHistory(ctx context.Context, runID uuid.UUID) ([]HistoryEntry, error) {
	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, runID)
}

// authorizeTransition grants the move when any required capability is held.
func (s *Service) authorizeTransition(ctx context.Context, run PayrollRun, actor shared.Actor) (bool, error) {
	for _, capability := range RequiredCapabilities(run.Status) {
		allowed, err := s.authz.Authorize(ctx, run.FirmID, actor.Roles, permissions.ResourcePayroll, capability)
		if err != nil {
			return false, err
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}

// applyTransition mirrors the database stamps onto the in-memory run so the
// caller gets the updated value without a re-read.
func (s *Service) applyTransition(run PayrollRun, next Status, actorID uuid.UUID, at time.Time) PayrollRun {
	run.Status = next
	switch next {
	case StatusReview:
		run.ReviewedBy, run.ReviewedAt = &actorID, &at
	case StatusApproved:
		run.ApprovedBy, run.ApprovedAt = &actorID, &at
	case StatusPublished:
		run.PublishedBy, run.PublishedAt = &actorID, &at
	}
	return run
}

func (s *Service) countTransition(to Status, outcome string) {
	if s.metrics == nil {
		return
	}
	label := string(to)
	if label == "" {
		label = "none"
	}
	s.metrics.RecordTransition(label, outcome)
}
