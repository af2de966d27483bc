package permissions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gajiflow/gajiflow/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the permission matrix.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const matrixColumns = `firm_id, role, resource, can_view, can_create, can_edit, can_delete, can_approve, can_publish, created_at, updated_at`

// ListMatrix returns every permission row for the firm.
func (r *Repository) ListMatrix(ctx context.Context, firmID uuid.UUID) ([]RolePermission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+matrixColumns+` FROM role_permissions WHERE firm_id=$1 ORDER BY role, resource`, firmID)
	if err != nil {
		return nil, shared.StorageError("permissions: list matrix", err)
	}
	defer rows.Close()
	var matrix []RolePermission
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, shared.StorageError("permissions: scan row", err)
		}
		matrix = append(matrix, row)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("permissions: list matrix", err)
	}
	return matrix, nil
}

// InsertDefaults persists the bootstrap rows. The ON CONFLICT clause makes
// concurrent first access idempotent: whichever caller loses the race leaves
// the winner's rows untouched.
func (r *Repository) InsertDefaults(ctx context.Context, rows []RolePermission) error {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`INSERT INTO role_permissions (firm_id, role, resource, can_view, can_create, can_edit, can_delete, can_approve, can_publish)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (firm_id, role, resource) DO NOTHING`,
			row.FirmID, string(row.Role), string(row.Resource),
			row.Capabilities.View, row.Capabilities.Create, row.Capabilities.Edit,
			row.Capabilities.Delete, row.Capabilities.Approve, row.Capabilities.Publish)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return shared.StorageError("permissions: insert defaults", err)
		}
	}
	return nil
}

// ReplaceCapabilities overwrites the capability set for one existing row.
func (r *Repository) ReplaceCapabilities(ctx context.Context, firmID uuid.UUID, role shared.Role, resource Resource, caps CapabilitySet) error {
	tag, err := r.pool.Exec(ctx, `UPDATE role_permissions
SET can_view=$4, can_create=$5, can_edit=$6, can_delete=$7, can_approve=$8, can_publish=$9, updated_at=NOW()
WHERE firm_id=$1 AND role=$2 AND resource=$3`,
		firmID, string(role), string(resource),
		caps.View, caps.Create, caps.Edit, caps.Delete, caps.Approve, caps.Publish)
	if err != nil {
		return shared.StorageError("permissions: replace capabilities", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRow(rows pgx.Rows) (RolePermission, error) {
	var row RolePermission
	var role, resource string
	err := rows.Scan(&row.FirmID, &role, &resource,
		&row.Capabilities.View, &row.Capabilities.Create, &row.Capabilities.Edit,
		&row.Capabilities.Delete, &row.Capabilities.Approve, &row.Capabilities.Publish,
		&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return RolePermission{}, err
	}
	row.Role = shared.Role(role)
	row.Resource = Resource(resource)
	return row, nil
}
