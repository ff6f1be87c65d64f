package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"ameenhub/internal/model"
	"ameenhub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Code          string   `json:"code" binding:"required"`
	NameEn        string   `json:"name_en" binding:"required"`
	NameAr        string   `json:"name_ar"`
	DescriptionEn string   `json:"description_en"`
	DescriptionAr string   `json:"description_ar"`
	IsActive      *bool    `json:"is_active"`
	Permissions   []string `json:"permissions"` // Permission UUIDs
}

type UpdateRoleRequest struct {
	NameEn        string `json:"name_en" binding:"required"`
	NameAr        string `json:"name_ar"`
	DescriptionEn string `json:"description_en"`
	DescriptionAr string `json:"description_ar"`
	IsActive      *bool  `json:"is_active"`
}

type RoleResponse struct {
	ID            string               `json:"id"`
	Code          string               `json:"code"`
	NameEn        string               `json:"name_en"`
	NameAr        string               `json:"name_ar"`
	DescriptionEn string               `json:"description_en"`
	DescriptionAr string               `json:"description_ar"`
	IsActive      bool                 `json:"is_active"`
	IsSystem      bool                 `json:"is_system"`
	Permissions   []PermissionResponse `json:"permissions"`
	CreatedAt     string               `json:"created_at"`
}

type PermissionResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Module        string `json:"module"`
	Category      string `json:"category"`
	NameEn        string `json:"name_en"`
	NameAr        string `json:"name_ar"`
	DescriptionEn string `json:"description_en"`
	DescriptionAr string `json:"description_ar"`
	IsSystem      bool   `json:"is_system"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest, createdBy string) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest, updatedBy string) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string, deletedBy string) error
	ListPermissions(ctx context.Context, module string) ([]PermissionResponse, error)
}

type roleService struct {
	tx       repository.TransactionManager
	roles    repository.RoleRepository
	perms    repository.PermissionRepository
	audit    repository.AuditRepository
	notifier ChangeNotifier
}

func NewRoleService(
	tx repository.TransactionManager,
	roles repository.RoleRepository,
	perms repository.PermissionRepository,
	audit repository.AuditRepository,
	notifier ChangeNotifier,
) RoleService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &roleService{tx: tx, roles: roles, perms: perms, audit: audit, notifier: notifier}
}

var roleCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,49}$`)

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roles.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := parseID("role", id)
	if err != nil {
		return nil, err
	}

	role, err := s.roles.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		return nil, notFoundOr(err, "role")
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest, createdBy string) (*RoleResponse, error) {
	if !roleCodePattern.MatchString(req.Code) {
		return nil, fmt.Errorf("%w: role code must be lowercase snake_case", ErrInvalidInput)
	}
	permIDs, err := parseIDs("permission", req.Permissions)
	if err != nil {
		return nil, err
	}
	actor, err := parseActor(createdBy)
	if err != nil {
		return nil, err
	}

	role := model.Role{
		Code:          req.Code,
		NameEn:        req.NameEn,
		NameAr:        req.NameAr,
		DescriptionEn: req.DescriptionEn,
		DescriptionAr: req.DescriptionAr,
		IsActive:      req.IsActive == nil || *req.IsActive,
		IsSystem:      false,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.roles.FindByCode(txCtx, req.Code); err == nil {
			return fmt.Errorf("%w: role '%s'", ErrConflict, req.Code)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check role code: %w", err)
		}

		if err := s.roles.Create(txCtx, &role); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: role '%s'", ErrConflict, req.Code)
			}
			return fmt.Errorf("failed to create role: %w", err)
		}

		if len(permIDs) > 0 {
			perms, err := s.perms.FindByIDs(txCtx, permIDs)
			if err != nil {
				return fmt.Errorf("failed to fetch permissions: %w", err)
			}
			if len(perms) != len(permIDs) {
				found := make([]uuid.UUID, 0, len(perms))
				for _, p := range perms {
					found = append(found, p.ID)
				}
				return fmt.Errorf("%w: permission(s) %s", ErrNotFound, missingIDs(permIDs, found))
			}
			if err := s.roles.ReplacePermissions(txCtx, role.ID, permIDs, actor); err != nil {
				return integrityOr(err, "failed to assign permissions")
			}
		}

		return writeAudit(txCtx, s.audit, actor, model.ActionCreateRole, role.ID.String(), role.Code,
			map[string]any{"permission_ids": uuidStrings(permIDs), "is_active": role.IsActive})
	})
	if err != nil {
		return nil, err
	}

	// Reload with permissions
	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest, updatedBy string) (*RoleResponse, error) {
	roleID, err := parseID("role", id)
	if err != nil {
		return nil, err
	}
	actor, err := parseActor(updatedBy)
	if err != nil {
		return nil, err
	}

	activityChanged := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.LockByID(txCtx, roleID)
		if err != nil {
			return notFoundOr(err, "role")
		}

		role.NameEn = req.NameEn
		role.NameAr = req.NameAr
		role.DescriptionEn = req.DescriptionEn
		role.DescriptionAr = req.DescriptionAr
		if req.IsActive != nil && *req.IsActive != role.IsActive {
			role.IsActive = *req.IsActive
			activityChanged = true
		}

		if err := s.roles.Update(txCtx, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionUpdateRole, role.ID.String(), role.Code,
			map[string]any{"name_en": role.NameEn, "is_active": role.IsActive})
	})
	if err != nil {
		return nil, err
	}

	// Deactivating a role withdraws its grants from every holder
	if activityChanged {
		s.notifier.PermissionsChanged(ScopeRole, roleID.String())
	}
	return s.GetRole(ctx, id)
}

// DeleteRole removes a non-system role. System roles and their grants are
// left untouched.
func (s *roleService) DeleteRole(ctx context.Context, id string, deletedBy string) error {
	roleID, err := parseID("role", id)
	if err != nil {
		return err
	}
	actor, err := parseActor(deletedBy)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.LockByID(txCtx, roleID)
		if err != nil {
			return notFoundOr(err, "role")
		}

		if role.IsSystem {
			return fmt.Errorf("%w: cannot delete system role '%s'", ErrSystemProtected, role.Code)
		}

		if err := s.roles.Delete(txCtx, roleID); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionDeleteRole, role.ID.String(), role.Code, nil)
	})
	if err != nil {
		return err
	}

	s.notifier.PermissionsChanged(ScopeRole, roleID.String())
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context, module string) ([]PermissionResponse, error) {
	perms, err := s.perms.ListAll(ctx, module)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:            r.ID.String(),
		Code:          r.Code,
		NameEn:        r.NameEn,
		NameAr:        r.NameAr,
		DescriptionEn: r.DescriptionEn,
		DescriptionAr: r.DescriptionAr,
		IsActive:      r.IsActive,
		IsSystem:      r.IsSystem,
		Permissions:   perms,
		CreatedAt:     r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:            p.ID.String(),
		Code:          p.Code,
		Module:        p.Module,
		Category:      p.Category,
		NameEn:        p.NameEn,
		NameAr:        p.NameAr,
		DescriptionEn: p.DescriptionEn,
		DescriptionAr: p.DescriptionAr,
		IsSystem:      p.IsSystem,
	}
}
