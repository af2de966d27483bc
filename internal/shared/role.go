package shared

import "strings"

// Role is a firm-scoped role held by a user. Role membership is managed by
// the identity layer; this engine only reads it.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RolePreparer   Role = "preparer"
	RoleApproverL1 Role = "approver_l1"
	RoleApproverL2 Role = "approver_l2"
	RoleUser       Role = "user"
)

// Roles lists every known role in a stable order.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RolePreparer, RoleApproverL1, RoleApproverL2, RoleUser}
}

// ParseRole normalizes raw into a known role. The second return is false for
// anything outside the enum; unknown roles never grant permissions.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	case RoleAdmin:
		return RoleAdmin, true
	case RolePreparer:
		return RolePreparer, true
	case RoleApproverL1:
		return RoleApproverL1, true
	case RoleApproverL2:
		return RoleApproverL2, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}
