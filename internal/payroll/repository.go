package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gajiflow/gajiflow/internal/platform/db"
	"github.com/gajiflow/gajiflow/internal/shared"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// TxRepository exposes the mutations that must share one transaction.
type TxRepository interface {
	AdvanceStatus(ctx context.Context, runID uuid.UUID, from, to Status, actorID uuid.UUID, at time.Time) error
	AppendHistory(ctx context.Context, entry HistoryEntry) error
}

// Repository provides PostgreSQL backed persistence for payroll runs and
// their workflow history.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a single transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const runColumns = `id, firm_id, client_id, pay_period, pay_date, status, created_by, created_at,
reviewed_by, reviewed_at, approved_by, approved_at, published_by, published_at`

// CreateRun inserts a new run in draft. A duplicate (client, period) pair
// maps to ErrDuplicatePeriod via the unique constraint.
func (r *Repository) CreateRun(ctx context.Context, run PayrollRun) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payroll_runs
(id, firm_id, client_id, pay_period, pay_period_norm, pay_date, status, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.FirmID, run.ClientID, run.PayPeriod, NormalizePeriod(run.PayPeriod),
		run.PayDate, string(run.Status), run.CreatedBy, run.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicatePeriod
		}
		return shared.StorageError("payroll: create run", err)
	}
	return nil
}

// GetRun loads a run by id, scoped to its firm by the service layer.
func (r *Repository) GetRun(ctx context.Context, runID uuid.UUID) (PayrollRun, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM payroll_runs WHERE id=$1`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PayrollRun{}, ErrNotFound
		}
		return PayrollRun{}, shared.StorageError("payroll: get run", err)
	}
	return run, nil
}

// ListHistory returns the audit trail for a run, oldest first.
func (r *Repository) ListHistory(ctx context.Context, runID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, run_id, from_status, to_status, changed_by, changed_at, notes
FROM workflow_history WHERE run_id=$1 ORDER BY changed_at ASC, id ASC`, runID)
	if err != nil {
		return nil, shared.StorageError("payroll: list history", err)
	}
	defer rows.Close()
	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var from, to string
		if err := rows.Scan(&entry.ID, &entry.RunID, &from, &to, &entry.ChangedBy, &entry.ChangedAt, &entry.Notes); err != nil {
			return nil, shared.StorageError("payroll: scan history", err)
		}
		entry.FromStatus = Status(from)
		entry.ToStatus = Status(to)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("payroll: list history", err)
	}
	return entries, nil
}

type txRepository struct {
	tx pgx.Tx
}

// AdvanceStatus moves a run forward with a compare-and-set on the expected
// from-status, stamping the actor field that belongs to the target status.
// Runs are never deleted, so zero affected rows after a successful load
// means another caller advanced the run first.
func (t *txRepository) AdvanceStatus(ctx context.Context, runID uuid.UUID, from, to Status, actorID uuid.UUID, at time.Time) error {
	var stampBy, stampAt string
	switch to {
	case StatusReview:
		stampBy, stampAt = "reviewed_by", "reviewed_at"
	case StatusApproved:
		stampBy, stampAt = "approved_by", "approved_at"
	case StatusPublished:
		stampBy, stampAt = "published_by", "published_at"
	default:
		return ErrValidation
	}
	tag, err := t.tx.Exec(ctx, `UPDATE payroll_runs SET status=$1, `+stampBy+`=$2, `+stampAt+`=$3
WHERE id=$4 AND status=$5`,
		string(to), actorID, at, runID, string(from))
	if err != nil {
		return shared.StorageError("payroll: advance status", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// AppendHistory inserts one audit record. Insert-only by contract; there is
// no update or delete path anywhere in this package.
func (t *txRepository) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO workflow_history (run_id, from_status, to_status, changed_by, changed_at, notes)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.RunID, string(entry.FromStatus), string(entry.ToStatus), entry.ChangedBy, entry.ChangedAt, entry.Notes)
	if err != nil {
		return shared.StorageError("payroll: append history", err)
	}
	return nil
}

func scanRun(row pgx.Row) (PayrollRun, error) {
	var run PayrollRun
	var status string
	err := row.Scan(&run.ID, &run.FirmID, &run.ClientID, &run.PayPeriod, &run.PayDate, &status,
		&run.CreatedBy, &run.CreatedAt,
		&run.ReviewedBy, &run.ReviewedAt, &run.ApprovedBy, &run.ApprovedAt,
		&run.PublishedBy, &run.PublishedAt)
	if err != nil {
		return PayrollRun{}, err
	}
	run.Status = Status(status)
	return run, nil
}
