package common

import (
	"strings"

	json "github.com/json-iterator/go"

	"pawnshop/internal/apperr"
)

// Role is the closed set of actor roles. External spellings are parsed into it
// with ParseRole at every boundary (request bodies, token claims, seed files).
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleBranchAdmin Role = "BRANCH_ADMIN"
	RoleManager     Role = "MANAGER"
	RoleStaff       Role = "STAFF"
	RoleOwner       Role = "OWNER"
)

// Roles lists every role, highest rank first.
var Roles = []Role{RoleSuperAdmin, RoleOwner, RoleBranchAdmin, RoleManager, RoleStaff}

// ParseRole accepts the spellings seen across clients ("Super Admin", "super",
// "SHOP_ADMIN", "branch admin", ...) and returns the canonical role.
func ParseRole(s string) (Role, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)

	switch norm {
	case "SUPER_ADMIN", "SUPERADMIN", "SUPER", "PLATFORM_ADMIN":
		return RoleSuperAdmin, nil
	case "BRANCH_ADMIN", "BRANCHADMIN", "SHOP_ADMIN", "ADMIN":
		return RoleBranchAdmin, nil
	case "MANAGER":
		return RoleManager, nil
	case "STAFF":
		return RoleStaff, nil
	case "OWNER", "SHOP_OWNER":
		return RoleOwner, nil
	}
	return "", apperr.InvalidInput("unknown role %q", s)
}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

// Label is the human form used by the navigation catalog ("Branch Admin").
func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleBranchAdmin:
		return "Branch Admin"
	case RoleManager:
		return "Manager"
	case RoleStaff:
		return "Staff"
	case RoleOwner:
		return "Owner"
	}
	return string(r)
}

// UnmarshalJSON normalizes any accepted spelling on decode. An unknown
// spelling fails with an InvalidInput error naming it.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*r = ""
		return nil
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
