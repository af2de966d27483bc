package permissions

import (
	"github.com/google/uuid"

	"github.com/gajiflow/gajiflow/internal/shared"
)

// DefaultMatrix synthesizes the full role x resource matrix for a new firm.
// The policy is deterministic: calling it twice for the same firm yields
// identical rows, which is what makes bootstrap-on-read safe to retry.
func DefaultMatrix(firmID uuid.UUID) []RolePermission {
	rows := make([]RolePermission, 0, len(shared.Roles())*len(Resources()))
	for _, role := range shared.Roles() {
		for _, resource := range Resources() {
			rows = append(rows, RolePermission{
				FirmID:       firmID,
				Role:         role,
				Resource:     resource,
				Capabilities: defaultCapabilities(role, resource),
			})
		}
	}
	return rows
}

// defaultCapabilities encodes the default policy. The super_admin row values
// are cosmetic: the evaluator short-circuits that role to all-true.
func defaultCapabilities(role shared.Role, resource Resource) CapabilitySet {
	switch role {
	case shared.RoleSuperAdmin:
		return AllCapabilities()
	case shared.RoleAdmin:
		caps := CapabilitySet{View: true, Create: true, Edit: true, Delete: true}
		if resource == ResourcePayroll {
			caps.Approve = true
			caps.Publish = true
		}
		return caps
	case shared.RolePreparer:
		var caps CapabilitySet
		switch resource {
		case ResourceClients:
			caps.View = true
		case ResourceEmployees:
			caps.View = true
			caps.Create = true
			caps.Edit = true
		case ResourcePayslips, ResourcePayroll:
			caps.Create = true
			caps.Edit = true
		}
		return caps
	case shared.RoleApproverL1:
		return approverCapabilities(resource, false)
	case shared.RoleApproverL2:
		return approverCapabilities(resource, true)
	case shared.RoleUser:
		var caps CapabilitySet
		if resource == ResourceClients || resource == ResourceEmployees {
			caps.View = true
		}
		return caps
	}
	return CapabilitySet{}
}

func approverCapabilities(resource Resource, canPublish bool) CapabilitySet {
	var caps CapabilitySet
	switch resource {
	case ResourceClients, ResourceEmployees:
		caps.View = true
	case ResourcePayroll:
		caps.Approve = true
		caps.Publish = canPublish
	}
	return caps
}
