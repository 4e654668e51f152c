package policy

import "pawnshop/common"

// Rank orders roles for staff management. Unknown roles rank lowest.
func Rank(r common.Role) int {
	switch r {
	case common.RoleSuperAdmin:
		return 5
	case common.RoleOwner:
		return 4
	case common.RoleBranchAdmin:
		return 3
	case common.RoleManager:
		return 2
	case common.RoleStaff:
		return 1
	}
	return 0
}

// CanManage reports whether actor may create, delete or re-credential a staff
// member holding target. Changing one's own credential is handled by the caller.
func CanManage(actor, target common.Role) bool {
	return Rank(actor) > Rank(target)
}
