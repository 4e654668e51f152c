package auth

import (
	"github.com/gin-gonic/gin"

	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/internal/policy"
)

const actorKey = "actor"

// Actor is the authenticated caller of a request. BranchID is the branch the
// request acts on: the staff member's own branch, or the branch a super admin
// impersonates. It is empty for a super admin at platform level.
type Actor struct {
	StaffID       string
	Name          string
	Role          common.Role
	BranchID      string
	Impersonating bool
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == common.RoleSuperAdmin
}

// Gate is the view of the actor the feature gate evaluates.
func (a Actor) Gate() policy.Actor {
	return policy.Actor{Role: a.Role, Impersonating: a.Impersonating}
}

// Branch resolves the branch a branch-scoped request works on. A super admin
// at platform level may name one explicitly (requested), everybody else is
// pinned to their effective branch.
func (a Actor) Branch(requested string) (string, error) {
	if a.IsSuperAdmin() && !a.Impersonating {
		return requested, nil
	}
	if requested != "" && requested != a.BranchID {
		return "", apperr.PermissionDenied("branch %s is outside your scope", requested)
	}
	if a.BranchID == "" {
		return "", apperr.PermissionDenied("no branch assigned")
	}
	return a.BranchID, nil
}

func SetActor(c *gin.Context, a Actor) {
	c.Set(actorKey, a)
}

func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}

// MustActor panics when the auth middleware did not run for the route.
func MustActor(c *gin.Context) Actor {
	return c.MustGet(actorKey).(Actor)
}
