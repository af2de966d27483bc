// Package permissions implements the per-firm role/resource permission
// matrix and the authorization decision used by every mutating operation.
package permissions

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gajiflow/gajiflow/internal/shared"
)

// Resource names a protected entity class. The set is closed; extending it
// means adding a constant here, never accepting user-defined strings.
type Resource string

const (
	ResourceFirm      Resource = "firm"
	ResourceClients   Resource = "clients"
	ResourceEmployees Resource = "employees"
	ResourcePayslips  Resource = "payslips"
	ResourcePayroll   Resource = "payroll"
	ResourceUsers     Resource = "users"
)

// Resources lists every protected resource in a stable order.
func Resources() []Resource {
	return []Resource{ResourceFirm, ResourceClients, ResourceEmployees, ResourcePayslips, ResourcePayroll, ResourceUsers}
}

// ParseResource normalizes raw into a known resource.
func ParseResource(raw string) (Resource, bool) {
	candidate := Resource(strings.ToLower(strings.TrimSpace(raw)))
	for _, r := range Resources() {
		if candidate == r {
			return r, true
		}
	}
	return "", false
}

// Capability names one of the six permission flags.
type Capability string

const (
	CapabilityView    Capability = "view"
	CapabilityCreate  Capability = "create"
	CapabilityEdit    Capability = "edit"
	CapabilityDelete  Capability = "delete"
	CapabilityApprove Capability = "approve"
	CapabilityPublish Capability = "publish"
)

// CapabilitySet holds the six orthogonal flags for one (role, resource) pair.
type CapabilitySet struct {
	View    bool `json:"view"`
	Create  bool `json:"create"`
	Edit    bool `json:"edit"`
	Delete  bool `json:"delete"`
	Approve bool `json:"approve"`
	Publish bool `json:"publish"`
}

// AllCapabilities returns a set with every flag granted.
func AllCapabilities() CapabilitySet {
	return CapabilitySet{View: true, Create: true, Edit: true, Delete: true, Approve: true, Publish: true}
}

// Has reports whether the set grants the capability. Unknown capabilities
// grant nothing; authorization fails closed.
func (c CapabilitySet) Has(capability Capability) bool {
	switch capability {
	case CapabilityView:
		return c.View
	case CapabilityCreate:
		return c.Create
	case CapabilityEdit:
		return c.Edit
	case CapabilityDelete:
		return c.Delete
	case CapabilityApprove:
		return c.Approve
	case CapabilityPublish:
		return c.Publish
	}
	return false
}

// RolePermission is one row of the firm's permission matrix.
type RolePermission struct {
	FirmID       uuid.UUID     `json:"firm_id"`
	Role         shared.Role   `json:"role"`
	Resource     Resource      `json:"resource"`
	Capabilities CapabilitySet `json:"capabilities"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

var (
	// ErrImmutableRole rejects any edit of super_admin rows, regardless of caller.
	ErrImmutableRole = errors.New("permissions: super_admin permissions are immutable")
	// ErrNotFound indicates the requested matrix row does not exist.
	ErrNotFound = errors.New("permissions: not found")
	// ErrUnknownRole indicates a role outside the fixed enum.
	ErrUnknownRole = errors.New("permissions: unknown role")
	// ErrUnknownResource indicates a resource outside the fixed enum.
	ErrUnknownResource = errors.New("permissions: unknown resource")
)
