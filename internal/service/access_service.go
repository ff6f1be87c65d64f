package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ameenhub/internal/model"
	"ameenhub/internal/rbac"
	"ameenhub/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Change scopes published after a committed grant mutation
const (
	ScopeRole = "role"
	ScopeUser = "user"
)

// ChangeNotifier is told about committed grant changes so connected admin
// panels can refresh. Delivery is best effort.
type ChangeNotifier interface {
	PermissionsChanged(scope, id string)
}

type noopNotifier struct{}

func (noopNotifier) PermissionsChanged(string, string) {}

// --- DTOs ---

type SetRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

type SetUserRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

type CustomPermissionRequest struct {
	IsGranted *bool `json:"is_granted" binding:"required"`
}

type UserRoleResponse struct {
	RoleID     string `json:"role_id"`
	Code       string `json:"code"`
	NameEn     string `json:"name_en"`
	NameAr     string `json:"name_ar"`
	IsActive   bool   `json:"is_active"`
	AssignedBy string `json:"assigned_by,omitempty"`
	AssignedAt string `json:"assigned_at"`
}

type CustomPermissionResponse struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	PermissionID string              `json:"permission_id"`
	Permission   *PermissionResponse `json:"permission,omitempty"`
	IsGranted    bool                `json:"is_granted"`
	AssignedBy   string              `json:"assigned_by,omitempty"`
	UpdatedAt    string              `json:"updated_at"`
}

type PermissionCheckResponse struct {
	UserID   string `json:"user_id"`
	Code     string `json:"code"`
	Allowed  bool   `json:"allowed"`
	Decision string `json:"decision"`
}

// --- Interface ---

// AccessService answers authorization questions and mutates the grant graph.
// Every answer is computed from committed state; nothing is cached.
type AccessService interface {
	HasPermission(ctx context.Context, userID, code string) (bool, error)
	CheckPermission(ctx context.Context, userID, code string) (*PermissionCheckResponse, error)
	EffectivePermissions(ctx context.Context, userID string) (rbac.EffectiveSet, error)
	GetUserPermissions(ctx context.Context, userID string) ([]PermissionResponse, error)

	SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string, grantedBy string) error
	AssignPermissionToRole(ctx context.Context, roleID, permissionID, grantedBy string) error
	RemovePermissionFromRole(ctx context.Context, roleID, permissionID, removedBy string) (bool, error)

	ListUserRoles(ctx context.Context, userID string) ([]UserRoleResponse, error)
	SetUserRoles(ctx context.Context, userID string, roleIDs []string, assignedBy string) error
	AssignRoleToUser(ctx context.Context, userID, roleID, assignedBy string) error
	RemoveRoleFromUser(ctx context.Context, userID, roleID, removedBy string) (bool, error)

	ListCustomPermissions(ctx context.Context, userID string) ([]CustomPermissionResponse, error)
	AssignCustomPermissionToUser(ctx context.Context, userID, permissionID string, isGranted bool, assignedBy string) (*CustomPermissionResponse, error)
	RemoveCustomPermissionFromUser(ctx context.Context, userID, permissionID, removedBy string) (bool, error)
}

type accessService struct {
	tx       repository.TransactionManager
	users    repository.UserRepository
	roles    repository.RoleRepository
	perms    repository.PermissionRepository
	access   repository.AccessRepository
	audit    repository.AuditRepository
	notifier ChangeNotifier
	logger   *zap.Logger
}

type AccessServiceDeps struct {
	Tx          repository.TransactionManager
	Users       repository.UserRepository
	Roles       repository.RoleRepository
	Permissions repository.PermissionRepository
	Access      repository.AccessRepository
	Audit       repository.AuditRepository
	Notifier    ChangeNotifier
	Logger      *zap.Logger
}

func NewAccessService(deps AccessServiceDeps) AccessService {
	s := &accessService{
		tx:       deps.Tx,
		users:    deps.Users,
		roles:    deps.Roles,
		perms:    deps.Permissions,
		access:   deps.Access,
		audit:    deps.Audit,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// --- Resolution ---

// EffectivePermissions resolves the user's current grant set. An unknown,
// deleted or inactive user resolves to the empty set. Store failures are
// returned as errors together with the empty set.
func (s *accessService) EffectivePermissions(ctx context.Context, userID string) (rbac.EffectiveSet, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return rbac.EffectiveSet{}, nil
	}

	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rbac.EffectiveSet{}, nil
	}
	if err != nil {
		s.logger.Error("permission resolution: user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return rbac.EffectiveSet{}, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return rbac.EffectiveSet{}, nil
	}

	roleGranted, err := s.access.RoleGrantedCodes(ctx, id)
	if err != nil {
		s.logger.Error("permission resolution: role grants query failed", zap.String("user_id", userID), zap.Error(err))
		return rbac.EffectiveSet{}, fmt.Errorf("failed to load role permissions: %w", err)
	}

	overrides, err := s.access.Overrides(ctx, id)
	if err != nil {
		s.logger.Error("permission resolution: overrides query failed", zap.String("user_id", userID), zap.Error(err))
		return rbac.EffectiveSet{}, fmt.Errorf("failed to load custom permissions: %w", err)
	}

	return rbac.Resolve(roleGranted, overrides), nil
}

// HasPermission is false on any error.
func (s *accessService) HasPermission(ctx context.Context, userID, code string) (bool, error) {
	set, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return set.Allows(code), nil
}

// CheckPermission matches code exactly, like HasPermission and the route guards.
func (s *accessService) CheckPermission(ctx context.Context, userID, code string) (*PermissionCheckResponse, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: permission code is required", ErrInvalidInput)
	}

	set, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	decision := set.Decide(code)
	return &PermissionCheckResponse{
		UserID:   userID,
		Code:     code,
		Allowed:  decision.Allowed(),
		Decision: decision.String(),
	}, nil
}

// GetUserPermissions returns catalog metadata for every effective code.
func (s *accessService) GetUserPermissions(ctx context.Context, userID string) ([]PermissionResponse, error) {
	set, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	perms, err := s.perms.FindByCodes(ctx, set.Codes())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

// --- Role grants ---

func (s *accessService) SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string, grantedBy string) error {
	rid, err := parseID("role", roleID)
	if err != nil {
		return err
	}
	pids, err := parseIDs("permission", permissionIDs)
	if err != nil {
		return err
	}
	actor, err := parseActor(grantedBy)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.LockByID(txCtx, rid)
		if err != nil {
			return notFoundOr(err, "role")
		}
		if err := s.requirePermissions(txCtx, pids); err != nil {
			return err
		}
		if err := s.roles.ReplacePermissions(txCtx, rid, pids, actor); err != nil {
			return integrityOr(err, "failed to replace role permissions")
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionSetRolePermissions, rid.String(), role.Code,
			map[string]any{"permission_ids": uuidStrings(pids)})
	})
	if err != nil {
		return err
	}

	s.notifier.PermissionsChanged(ScopeRole, rid.String())
	return nil
}

func (s *accessService) AssignPermissionToRole(ctx context.Context, roleID, permissionID, grantedBy string) error {
	rid, err := parseID("role", roleID)
	if err != nil {
		return err
	}
	pid, err := parseID("permission", permissionID)
	if err != nil {
		return err
	}
	actor, err := parseActor(grantedBy)
	if err != nil {
		return err
	}

	changed := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.LockByID(txCtx, rid)
		if err != nil {
			return notFoundOr(err, "role")
		}
		perm, err := s.perms.FindByID(txCtx, pid)
		if err != nil {
			return notFoundOr(err, "permission")
		}
		changed, err = s.roles.AddPermission(txCtx, rid, pid, actor)
		if err != nil {
			return integrityOr(err, "failed to assign permission")
		}
		if !changed {
			return nil
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionAssignRolePermission, rid.String(), role.Code,
			map[string]any{"permission": perm.Code})
	})
	if err != nil {
		return err
	}

	if changed {
		s.notifier.PermissionsChanged(ScopeRole, rid.String())
	}
	return nil
}

func (s *accessService) RemovePermissionFromRole(ctx context.Context, roleID, permissionID, removedBy string) (bool, error) {
	rid, err := parseID("role", roleID)
	if err != nil {
		return false, err
	}
	pid, err := parseID("permission", permissionID)
	if err != nil {
		return false, err
	}
	actor, err := parseActor(removedBy)
	if err != nil {
		return false, err
	}

	removed := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.LockByID(txCtx, rid)
		if err != nil {
			return notFoundOr(err, "role")
		}
		removed, err = s.roles.RemovePermission(txCtx, rid, pid)
		if err != nil {
			return fmt.Errorf("failed to remove permission: %w", err)
		}
		if !removed {
			return nil
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionRemoveRolePermission, rid.String(), role.Code,
			map[string]any{"permission_id": pid.String()})
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.notifier.PermissionsChanged(ScopeRole, rid.String())
	}
	return removed, nil
}

// --- User roles ---

func (s *accessService) ListUserRoles(ctx context.Context, userID string) ([]UserRoleResponse, error) {
	uid, err := s.existingUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.access.ListUserRoles(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user roles: %w", err)
	}

	res := make([]UserRoleResponse, 0, len(assignments))
	for _, a := range assignments {
		res = append(res, toUserRoleResponse(a))
	}
	return res, nil
}

func (s *accessService) SetUserRoles(ctx context.Context, userID string, roleIDs []string, assignedBy string) error {
	uid, err := parseID("user", userID)
	if err != nil {
		return err
	}
	rids, err := parseIDs("role", roleIDs)
	if err != nil {
		return err
	}
	actor, err := parseActor(assignedBy)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.LockByID(txCtx, uid)
		if err != nil {
			return notFoundOr(err, "user")
		}
		roles, err := s.roles.FindByIDs(txCtx, rids)
		if err != nil {
			return fmt.Errorf("failed to fetch roles: %w", err)
		}
		if len(roles) != len(rids) {
			return fmt.Errorf("%w: role(s) %s", ErrNotFound, missingIDs(rids, roleIDsOf(roles)))
		}
		if err := s.access.ReplaceUserRoles(txCtx, uid, rids, actor); err != nil {
			return integrityOr(err, "failed to replace user roles")
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionSetUserRoles, uid.String(), user.Username,
			map[string]any{"role_ids": uuidStrings(rids)})
	})
	if err != nil {
		return err
	}

	s.notifier.PermissionsChanged(ScopeUser, uid.String())
	return nil
}

func (s *accessService) AssignRoleToUser(ctx context.Context, userID, roleID, assignedBy string) error {
	uid, err := parseID("user", userID)
	if err != nil {
		return err
	}
	rid, err := parseID("role", roleID)
	if err != nil {
		return err
	}
	actor, err := parseActor(assignedBy)
	if err != nil {
		return err
	}

	changed := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.LockByID(txCtx, uid)
		if err != nil {
			return notFoundOr(err, "user")
		}
		role, err := s.roles.FindByID(txCtx, rid)
		if err != nil {
			return notFoundOr(err, "role")
		}
		changed, err = s.access.AddUserRole(txCtx, uid, rid, actor)
		if err != nil {
			return integrityOr(err, "failed to assign role")
		}
		if !changed {
			return nil
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionAssignUserRole, uid.String(), user.Username,
			map[string]any{"role": role.Code})
	})
	if err != nil {
		return err
	}

	if changed {
		s.notifier.PermissionsChanged(ScopeUser, uid.String())
	}
	return nil
}

func (s *accessService) RemoveRoleFromUser(ctx context.Context, userID, roleID, removedBy string) (bool, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return false, err
	}
	rid, err := parseID("role", roleID)
	if err != nil {
		return false, err
	}
	actor, err := parseActor(removedBy)
	if err != nil {
		return false, err
	}

	removed := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.LockByID(txCtx, uid)
		if err != nil {
			return notFoundOr(err, "user")
		}
		removed, err = s.access.RemoveUserRole(txCtx, uid, rid)
		if err != nil {
			return fmt.Errorf("failed to remove role: %w", err)
		}
		if !removed {
			return nil
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionRemoveUserRole, uid.String(), user.Username,
			map[string]any{"role_id": rid.String()})
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.notifier.PermissionsChanged(ScopeUser, uid.String())
	}
	return removed, nil
}

// --- Custom overrides ---

func (s *accessService) ListCustomPermissions(ctx context.Context, userID string) ([]CustomPermissionResponse, error) {
	uid, err := s.existingUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	overrides, err := s.access.ListCustomPermissions(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch custom permissions: %w", err)
	}

	res := make([]CustomPermissionResponse, 0, len(overrides))
	for _, o := range overrides {
		res = append(res, toCustomPermissionResponse(o))
	}
	return res, nil
}

// AssignCustomPermissionToUser creates or flips the user's single override
// for the permission.
func (s *accessService) AssignCustomPermissionToUser(ctx context.Context, userID, permissionID string, isGranted bool, assignedBy string) (*CustomPermissionResponse, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("permission", permissionID)
	if err != nil {
		return nil, err
	}
	actor, err := parseActor(assignedBy)
	if err != nil {
		return nil, err
	}

	var stored *model.UserCustomPermission
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.LockByID(txCtx, uid)
		if err != nil {
			return notFoundOr(err, "user")
		}
		perm, err := s.perms.FindByID(txCtx, pid)
		if err != nil {
			return notFoundOr(err, "permission")
		}

		override := &model.UserCustomPermission{
			UserID:       uid,
			PermissionID: pid,
			IsGranted:    isGranted,
			AssignedBy:   actor,
		}
		if err := s.access.UpsertCustomPermission(txCtx, override); err != nil {
			return integrityOr(err, "failed to save custom permission")
		}

		stored, err = s.access.FindCustomPermission(txCtx, uid, pid)
		if err != nil {
			return fmt.Errorf("failed to reload custom permission: %w", err)
		}
		if stored == nil {
			return fmt.Errorf("%w: custom permission vanished after upsert", ErrIntegrity)
		}

		return writeAudit(txCtx, s.audit, actor, model.ActionAssignCustomPermission, uid.String(), user.Username,
			map[string]any{"permission": perm.Code, "is_granted": isGranted})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.PermissionsChanged(ScopeUser, uid.String())
	resp := toCustomPermissionResponse(*stored)
	return &resp, nil
}

func (s *accessService) RemoveCustomPermissionFromUser(ctx context.Context, userID, permissionID, removedBy string) (bool, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return false, err
	}
	pid, err := parseID("permission", permissionID)
	if err != nil {
		return false, err
	}
	actor, err := parseActor(removedBy)
	if err != nil {
		return false, err
	}

	removed := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.LockByID(txCtx, uid)
		if err != nil {
			return notFoundOr(err, "user")
		}
		removed, err = s.access.DeleteCustomPermission(txCtx, uid, pid)
		if err != nil {
			return fmt.Errorf("failed to remove custom permission: %w", err)
		}
		if !removed {
			return nil
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionRemoveCustomPermission, uid.String(), user.Username,
			map[string]any{"permission_id": pid.String()})
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.notifier.PermissionsChanged(ScopeUser, uid.String())
	}
	return removed, nil
}

// --- Helpers ---

func (s *accessService) existingUser(ctx context.Context, userID string) (uuid.UUID, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := s.users.GetByID(ctx, uid); err != nil {
		return uuid.Nil, notFoundOr(err, "user")
	}
	return uid, nil
}

func (s *accessService) requirePermissions(ctx context.Context, ids []uuid.UUID) error {
	perms, err := s.perms.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch permissions: %w", err)
	}
	if len(perms) == len(ids) {
		return nil
	}

	found := make([]uuid.UUID, 0, len(perms))
	for _, p := range perms {
		found = append(found, p.ID)
	}
	return fmt.Errorf("%w: permission(s) %s", ErrNotFound, missingIDs(ids, found))
}

func missingIDs(want, found []uuid.UUID) string {
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	return strings.Join(missing, ", ")
}

func roleIDsOf(roles []model.Role) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return ids
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func toUserRoleResponse(a model.UserRole) UserRoleResponse {
	res := UserRoleResponse{
		RoleID:     a.RoleID.String(),
		AssignedBy: optionalID(a.AssignedBy),
		AssignedAt: a.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if a.Role != nil {
		res.Code = a.Role.Code
		res.NameEn = a.Role.NameEn
		res.NameAr = a.Role.NameAr
		res.IsActive = a.Role.IsActive
	}
	return res
}

func toCustomPermissionResponse(o model.UserCustomPermission) CustomPermissionResponse {
	res := CustomPermissionResponse{
		ID:           o.ID.String(),
		UserID:       o.UserID.String(),
		PermissionID: o.PermissionID.String(),
		IsGranted:    o.IsGranted,
		AssignedBy:   optionalID(o.AssignedBy),
		UpdatedAt:    o.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if o.Permission != nil {
		p := toPermissionResponse(*o.Permission)
		res.Permission = &p
	}
	return res
}
