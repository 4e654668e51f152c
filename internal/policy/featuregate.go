package policy

import (
	"slices"

	"pawnshop/common"
)

// Scope separates platform administration from the day-to-day operations of
// a single branch.
type Scope string

const (
	ScopePlatform    Scope = "PLATFORM"
	ScopeOperational Scope = "OPERATIONAL"
)

// Operation is one navigable capability of the back office.
type Operation struct {
	Key     string        `json:"key"`
	Label   string        `json:"label"`
	Scope   Scope         `json:"scope"`
	Roles   []common.Role `json:"roles"`
	Feature string        `json:"feature,omitempty"`
}

const (
	OpPlatformControl = "platform-control"
	OpSystemSettings  = "system-settings"
	OpBranches        = "branches"
	OpDashboard       = "dashboard"
	OpLoans           = "loans"
	OpCRM             = "crm"
	OpInventory       = "inventory"
	OpRedemption      = "redemption"
	OpFinance         = "finance"
	OpHR              = "hr"
	OpAuction         = "auction"
	OpDecision        = "decision"
)

var (
	superAdmin = []common.Role{common.RoleSuperAdmin}
	ba         = common.RoleBranchAdmin
)

// DefaultCatalog is the operation set of the back office.
var DefaultCatalog = []Operation{
	{Key: OpPlatformControl, Label: "Platform Control", Scope: ScopePlatform, Roles: superAdmin},
	{Key: OpSystemSettings, Label: "System Settings", Scope: ScopePlatform, Roles: superAdmin},
	{Key: OpBranches, Label: "Branches", Scope: ScopePlatform, Roles: superAdmin},

	{Key: OpDashboard, Label: "Dashboard", Scope: ScopeOperational,
		Roles: []common.Role{ba, common.RoleStaff, common.RoleManager}},
	{Key: OpLoans, Label: "Loans", Scope: ScopeOperational,
		Roles: []common.Role{ba, common.RoleStaff}},
	{Key: OpCRM, Label: "Customers", Scope: ScopeOperational, Feature: common.FeatureCRM,
		Roles: []common.Role{ba, common.RoleStaff}},
	{Key: OpInventory, Label: "Vault", Scope: ScopeOperational, Feature: common.FeatureVault,
		Roles: []common.Role{ba, common.RoleManager}},
	{Key: OpRedemption, Label: "Redemption", Scope: ScopeOperational,
		Roles: []common.Role{ba, common.RoleStaff, common.RoleManager}},
	{Key: OpFinance, Label: "Finance", Scope: ScopeOperational, Feature: common.FeatureFinance,
		Roles: []common.Role{ba, common.RoleOwner}},
	{Key: OpHR, Label: "Staff", Scope: ScopeOperational, Feature: common.FeatureHR,
		Roles: []common.Role{ba, common.RoleManager}},
	{Key: OpAuction, Label: "Auction", Scope: ScopeOperational, Feature: common.FeatureAuction,
		Roles: []common.Role{ba, common.RoleManager}},
	{Key: OpDecision, Label: "Decision Support", Scope: ScopeOperational, Feature: common.FeatureDecision,
		Roles: []common.Role{ba, common.RoleManager, common.RoleOwner}},
}

// Actor is who is asking. Impersonating is only meaningful for super admins.
type Actor struct {
	Role          common.Role
	Impersonating bool
}

// Visible returns the operations actor may see given the branch feature flags.
// A super admin outside impersonation sees the platform scope only; while
// impersonating they are evaluated as the branch admin of that branch.
func Visible(catalog []Operation, actor Actor, flags map[string]bool) []Operation {
	role := actor.Role
	scope := ScopeOperational
	if role == common.RoleSuperAdmin {
		if !actor.Impersonating {
			scope = ScopePlatform
		} else {
			role = common.RoleBranchAdmin
		}
	}

	out := make([]Operation, 0, len(catalog))
	for _, op := range catalog {
		if op.Scope != scope || !slices.Contains(op.Roles, role) {
			continue
		}
		if scope == ScopeOperational && op.Feature != "" && !flags[op.Feature] {
			continue
		}
		out = append(out, op)
	}
	return out
}

// Allowed reports whether key is among the operations visible to actor.
func Allowed(catalog []Operation, actor Actor, flags map[string]bool, key string) bool {
	return slices.ContainsFunc(Visible(catalog, actor, flags), func(op Operation) bool {
		return op.Key == key
	})
}
