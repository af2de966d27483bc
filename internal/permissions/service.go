package permissions

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/gajiflow/gajiflow/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListMatrix(ctx context.Context, firmID uuid.UUID) ([]RolePermission, error)
	InsertDefaults(ctx context.Context, rows []RolePermission) error
	ReplaceCapabilities(ctx context.Context, firmID uuid.UUID, role shared.Role, resource Resource, caps CapabilitySet) error
}

// Service owns the permission matrix and the authorization decision.
type Service struct {
	repo      RepositoryPort
	cache     *MatrixCache
	logger    *slog.Logger
	bootstrap singleflight.Group
}

// NewService constructs a permissions service.
func NewService(repo RepositoryPort, cache *MatrixCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// GetMatrix returns all permission rows for the firm, bootstrapping the
// default matrix on first access. The database upsert is idempotent; the
// singleflight group only collapses concurrent first reads within this
// process so a cold firm does not fan out identical bootstrap batches.
func (s *Service) GetMatrix(ctx context.Context, firmID uuid.UUID) ([]RolePermission, error) {
	if cached, ok := s.cache.Get(ctx, firmID); ok {
		return cached, nil
	}
	matrix, err := s.repo.ListMatrix(ctx, firmID)
	if err != nil {
		return nil, err
	}
	if len(matrix) == 0 {
		matrix, err = s.bootstrapFirm(ctx, firmID)
		if err != nil {
			return nil, err
		}
	}
	s.cache.Set(ctx, firmID, matrix)
	return matrix, nil
}

// BootstrapDefaults synthesizes and persists the default matrix. Safe to
// call defensively before GetMatrix; existing rows are never overwritten.
func (s *Service) BootstrapDefaults(ctx context.Context, firmID uuid.UUID) ([]RolePermission, error) {
	return s.bootstrapFirm(ctx, firmID)
}

func (s *Service) bootstrapFirm(ctx context.Context, firmID uuid.UUID) ([]RolePermission, error) {
	result, err, _ := s.bootstrap.Do(firmID.String(), func() (any, error) {
		if err := s.repo.InsertDefaults(ctx, DefaultMatrix(firmID)); err != nil {
			return nil, err
		}
		if err := s.cache.Invalidate(ctx, firmID); err != nil && s.logger != nil {
			s.logger.Warn("bootstrap cache invalidate", slog.Any("error", err))
		}
		matrix, err := s.repo.ListMatrix(ctx, firmID)
		if err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Info("bootstrapped default permissions", slog.String("firm_id", firmID.String()), slog.Int("rows", len(matrix)))
		}
		return matrix, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]RolePermission), nil
}

// UpdatePermission replaces the capability set for one (role, resource) row.
// super_admin rows are immutable regardless of caller identity.
func (s *Service) UpdatePermission(ctx context.Context, firmID uuid.UUID, role shared.Role, resource Resource, caps CapabilitySet) error {
	if role == shared.RoleSuperAdmin {
		return ErrImmutableRole
	}
	if _, ok := shared.ParseRole(string(role)); !ok {
		return ErrUnknownRole
	}
	if _, ok := ParseResource(string(resource)); !ok {
		return ErrUnknownResource
	}
	// Ensure the firm's matrix exists so the row is there to replace.
	if _, err := s.GetMatrix(ctx, firmID); err != nil {
		return err
	}
	if err := s.repo.ReplaceCapabilities(ctx, firmID, role, resource, caps); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, firmID)
}

// Authorize answers whether any of the actor's roles grants the capability
// on the resource within the firm. A multi-role actor gets the union of
// their roles' grants. The decision fails closed: storage errors propagate
// instead of defaulting to allowed, and unknown roles grant nothing.
func (s *Service) Authorize(ctx context.Context, firmID uuid.UUID, roles []shared.Role, resource Resource, capability Capability) (bool, error) {
	for _, role := range roles {
		if role == shared.RoleSuperAdmin {
			return true, nil
		}
	}
	if len(roles) == 0 {
		return false, nil
	}
	matrix, err := s.GetMatrix(ctx, firmID)
	if err != nil {
		return false, err
	}
	held := make(map[shared.Role]struct{}, len(roles))
	for _, role := range roles {
		held[role] = struct{}{}
	}
	for _, row := range matrix {
		if _, ok := held[row.Role]; !ok {
			continue
		}
		if row.Resource == resource && row.Capabilities.Has(capability) {
			return true, nil
		}
	}
	return false, nil
}
