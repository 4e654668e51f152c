package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/middleware"
)

// ImpersonateHeader carries the branch a super admin acts on for one request.
const ImpersonateHeader = "X-Impersonate-Branch"

var (
	errMissingToken     = errors.New("authorization header must be 'Bearer <token>'")
	errImpersonateScope = errors.New("only a super admin may impersonate a branch")
	errStaffGone        = errors.New("the staff member behind this token no longer exists")
)

// StaffLookup reports whether the staff row a token names still exists.
type StaffLookup func(ctx context.Context, staffID string) (bool, error)

// Middleware authenticates the bearer token and stores the Actor. Tokens of
// deleted staff are refused even before they expire.
func Middleware(issuer *Issuer, exists StaffLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		send := c.MustGet("send").(func(middleware.Response))

		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			send(middleware.Response{Code: http.StatusUnauthorized, Message: "Unauthorized", Error: errMissingToken})
			return
		}

		claims, err := issuer.Parse(parts[1])
		if err != nil {
			send(middleware.Response{Code: http.StatusUnauthorized, Message: "Unauthorized", Error: err})
			return
		}

		found, err := exists(c.Request.Context(), claims.StaffID)
		if err != nil {
			send(middleware.Fail(apperr.FromDB(err, "staff member")))
			return
		}
		if !found {
			send(middleware.Response{Code: http.StatusUnauthorized, Message: "Unauthorized", Error: errStaffGone})
			return
		}

		actor := Actor{StaffID: claims.StaffID, Name: claims.Name, Role: claims.Role}
		if claims.BranchID != nil {
			actor.BranchID = *claims.BranchID
		}

		if branch := strings.TrimSpace(c.GetHeader(ImpersonateHeader)); branch != "" {
			if !actor.IsSuperAdmin() {
				send(middleware.Response{Code: http.StatusForbidden, Message: "Forbidden", Error: errImpersonateScope})
				return
			}
			actor.BranchID = branch
			actor.Impersonating = true
		}

		SetActor(c, actor)
		c.Next()
	}
}

// RequireRole lets the request through when the actor holds one of roles.
func RequireRole(roles ...common.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !slices.Contains(roles, actor.Role) {
			send := c.MustGet("send").(func(middleware.Response))
			send(middleware.Response{
				Code:    http.StatusForbidden,
				Message: "Forbidden",
				Error:   errors.New("your role may not perform this action"),
			})
			return
		}
		c.Next()
	}
}
