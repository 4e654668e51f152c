package staff

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pawnshop/application/activity"
	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/internal/auth"
	"pawnshop/internal/policy"
)

var errBadCredentials = apperr.PermissionDenied("invalid email or password")

type CreateRequest struct {
	FullName string      `json:"full_name" binding:"required,max=100"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required"`
	Role     common.Role `json:"role" binding:"required"`
	BranchID string      `json:"branch_id"`
}

type CredentialRequest struct {
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// BootstrapRequest creates the first platform administrator.
type BootstrapRequest struct {
	FullName string `json:"full_name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AcceptInviteRequest struct {
	FullName string `json:"full_name" binding:"required,max=100"`
	Password string `json:"password" binding:"required"`
}

// Session is returned by every sign-in path.
type Session struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Staff     *common.Staff `json:"staff"`
}

type Service struct {
	repo   *Repository
	issuer *auth.Issuer
	log    *zap.Logger
	now    func() time.Time
}

// NewService creates a new Service
func NewService(repo *Repository, issuer *auth.Issuer, log *zap.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, log: log, now: time.Now}
}

// Emails are compared case-insensitively. Format is checked by the binding tags.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newMember trims the common fields and hashes the password.
func newMember(fullName, email, password string, role common.Role) (*common.Staff, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, apperr.InvalidInput("full_name must not be blank")
	}
	email = normalizeEmail(email)
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &common.Staff{FullName: fullName, Email: email, PasswordHash: hash, Role: role}, nil
}

func (s *Service) session(member *common.Staff) (*Session, error) {
	token, expires, err := s.issuer.Issue(member)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, Staff: member}, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*common.Staff, error) {
	if !req.Role.Valid() {
		return nil, apperr.InvalidInput("role is required")
	}
	if !policy.CanManage(actor.Role, req.Role) {
		return nil, apperr.PermissionDenied("a %s cannot create a %s", actor.Role.Label(), req.Role.Label())
	}
	member, err := newMember(req.FullName, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}

	branchID, err := actor.Branch(req.BranchID)
	if err != nil {
		return nil, err
	}
	if branchID == "" {
		return nil, apperr.InvalidInput("branch_id is required")
	}
	member.BranchID = &branchID

	err = s.repo.WithTx(ctx, func(tx *Repository) error {
		if _, err := tx.FindBranch(ctx, branchID); err != nil {
			return apperr.FromDB(err, "branch "+branchID)
		}
		if err := tx.Create(ctx, member); err != nil {
			return apperr.FromDB(err, "staff member with this email")
		}
		return activity.Record(tx.DB().WithContext(ctx), actor, activity.Event{
			Action:     activity.StaffCreate,
			EntityType: "staff",
			EntityID:   member.ID,
			BranchID:   branchID,
			Detail:     map[string]any{"email": member.Email, "role": member.Role},
		})
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, branchID string) ([]common.Staff, error) {
	branchID, err := actor.Branch(branchID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.List(ctx, branchID)
	if err != nil {
		return nil, apperr.FromDB(err, "staff")
	}
	if members == nil {
		members = []common.Staff{}
	}
	return members, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if id == actor.StaffID {
		return apperr.InvalidInput("you cannot delete your own account")
	}
	branchID, err := actor.Branch("")
	if err != nil {
		return err
	}

	return s.repo.WithTx(ctx, func(tx *Repository) error {
		member, err := tx.Get(ctx, id, branchID)
		if err != nil {
			return apperr.FromDB(err, "staff member "+id)
		}
		if !policy.CanManage(actor.Role, member.Role) {
			return apperr.PermissionDenied("a %s cannot remove a %s", actor.Role.Label(), member.Role.Label())
		}
		if err := tx.Delete(ctx, id); err != nil {
			return apperr.FromDB(err, "staff member "+id)
		}
		return activity.Record(tx.DB().WithContext(ctx), actor, activity.Event{
			Action:     activity.StaffDelete,
			EntityType: "staff",
			EntityID:   id,
			BranchID:   ptrValue(member.BranchID),
			Detail:     map[string]any{"email": member.Email, "role": member.Role},
		})
	})
}

// ChangeCredential sets a new password. Anybody may change their own.
func (s *Service) ChangeCredential(ctx context.Context, actor auth.Actor, id string, req CredentialRequest) error {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	branchID := ""
	if id != actor.StaffID {
		if branchID, err = actor.Branch(""); err != nil {
			return err
		}
	}

	return s.repo.WithTx(ctx, func(tx *Repository) error {
		member, err := tx.Get(ctx, id, branchID)
		if err != nil {
			return apperr.FromDB(err, "staff member "+id)
		}
		if id != actor.StaffID && !policy.CanManage(actor.Role, member.Role) {
			return apperr.PermissionDenied("a %s cannot change the credential of a %s", actor.Role.Label(), member.Role.Label())
		}
		if err := tx.SetPassword(ctx, id, hash); err != nil {
			return apperr.FromDB(err, "staff member "+id)
		}
		return activity.Record(tx.DB().WithContext(ctx), actor, activity.Event{
			Action:     activity.StaffCredential,
			EntityType: "staff",
			EntityID:   id,
			BranchID:   ptrValue(member.BranchID),
		})
	})
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	member, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, apperr.FromDB(err, "staff")
	}
	if !auth.CheckPassword(member.PasswordHash, req.Password) {
		s.log.Warn("failed sign-in", zap.String("staffId", member.ID))
		return nil, errBadCredentials
	}
	return s.session(member)
}

// Bootstrap creates the first Super Admin. It is refused once one exists.
func (s *Service) Bootstrap(ctx context.Context, req BootstrapRequest) (*Session, error) {
	member, err := newMember(req.FullName, req.Email, req.Password, common.RoleSuperAdmin)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(tx *Repository) error {
		n, err := tx.CountRole(ctx, common.RoleSuperAdmin)
		if err != nil {
			return apperr.FromDB(err, "staff")
		}
		if n > 0 {
			return apperr.PermissionDenied("platform is already bootstrapped")
		}
		if err := tx.Create(ctx, member); err != nil {
			return apperr.FromDB(err, "staff member with this email")
		}
		return activity.Record(tx.DB().WithContext(ctx), actorOf(member), activity.Event{
			Action:     activity.PlatformBootstrap,
			EntityType: "staff",
			EntityID:   member.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("platform bootstrapped", zap.String("staffId", member.ID))
	return s.session(member)
}

// AcceptInvite turns a pending branch invite into a staff account.
func (s *Service) AcceptInvite(ctx context.Context, token string, req AcceptInviteRequest) (*Session, error) {
	now := s.now().UTC()

	var member *common.Staff
	err := s.repo.WithTx(ctx, func(tx *Repository) error {
		inv, err := tx.FindInvite(ctx, token)
		if err != nil {
			return apperr.FromDB(err, "invite")
		}
		if inv.AcceptedAt.Valid {
			return apperr.InvalidTransition("invite already accepted")
		}
		if !now.Before(inv.ExpiresAt) {
			return apperr.InvalidTransition("invite expired")
		}

		member, err = newMember(req.FullName, inv.Email, req.Password, inv.Role)
		if err != nil {
			return err
		}
		member.BranchID = &inv.BranchID

		ok, err := tx.MarkInviteAccepted(ctx, inv.ID, now)
		if err != nil {
			return apperr.FromDB(err, "invite")
		}
		if !ok {
			return apperr.InvalidTransition("invite already accepted")
		}
		if err := tx.Create(ctx, member); err != nil {
			return apperr.FromDB(err, "staff member with this email")
		}
		return activity.Record(tx.DB().WithContext(ctx), actorOf(member), activity.Event{
			Action:     activity.InviteAccept,
			EntityType: "staff",
			EntityID:   member.ID,
			BranchID:   inv.BranchID,
			Detail:     map[string]any{"invite_id": inv.ID, "role": inv.Role},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.session(member)
}

func actorOf(m *common.Staff) auth.Actor {
	return auth.Actor{StaffID: m.ID, Name: m.FullName, Role: m.Role, BranchID: ptrValue(m.BranchID)}
}

func ptrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
