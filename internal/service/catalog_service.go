package service

import (
	"context"
	"errors"
	"fmt"

	"ameenhub/internal/catalog"
	"ameenhub/internal/model"
	"ameenhub/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SyncResult struct {
	Version     int  `json:"version"`
	Applied     bool `json:"applied"`
	Permissions int  `json:"permissions"`
	Roles       int  `json:"roles"`
}

// CatalogService applies the versioned permission catalog seed.
type CatalogService interface {
	Sync(ctx context.Context, force bool, actorID string) (*SyncResult, error)
}

type catalogService struct {
	tx       repository.TransactionManager
	perms    repository.PermissionRepository
	roles    repository.RoleRepository
	audit    repository.AuditRepository
	notifier ChangeNotifier
	logger   *zap.Logger

	version  int
	permDefs []catalog.PermissionDef
	roleDefs []catalog.RoleDef
}

func NewCatalogService(
	tx repository.TransactionManager,
	perms repository.PermissionRepository,
	roles repository.RoleRepository,
	audit repository.AuditRepository,
	notifier ChangeNotifier,
	logger *zap.Logger,
) CatalogService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &catalogService{
		tx:       tx,
		perms:    perms,
		roles:    roles,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
		version:  catalog.Version,
		permDefs: catalog.Permissions,
		roleDefs: catalog.Roles,
	}
}

// Sync upserts every catalog permission by code, upserts the built-in roles
// by code and resets their grants to the seed. A version that was already
// applied is skipped unless force is set.
func (s *catalogService) Sync(ctx context.Context, force bool, actorID string) (*SyncResult, error) {
	if err := catalog.Validate(s.permDefs, s.roleDefs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	actor, err := parseActor(actorID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Version: s.version}
	var touchedRoles []uuid.UUID

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		applied, err := s.perms.LatestCatalogVersion(txCtx)
		if err != nil {
			return fmt.Errorf("failed to read catalog version: %w", err)
		}
		if applied >= s.version && !force {
			s.logger.Info("permission catalog up to date", zap.Int("version", applied))
			return nil
		}

		idByCode := make(map[string]uuid.UUID, len(s.permDefs))
		for _, def := range s.permDefs {
			perm := &model.Permission{
				Code:          def.Code,
				Module:        def.Module,
				Category:      def.Category,
				NameEn:        def.NameEn,
				NameAr:        def.NameAr,
				DescriptionEn: def.DescriptionEn,
				IsSystem:      true,
			}
			if err := s.perms.UpsertByCode(txCtx, perm); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", def.Code, err)
			}
			idByCode[def.Code] = perm.ID
		}

		for _, def := range s.roleDefs {
			role, err := s.upsertSystemRole(txCtx, def)
			if err != nil {
				return err
			}

			permIDs := make([]uuid.UUID, 0, len(def.Permissions))
			for _, code := range def.Permissions {
				permIDs = append(permIDs, idByCode[code])
			}
			if err := s.roles.ReplacePermissions(txCtx, role.ID, permIDs, actor); err != nil {
				return fmt.Errorf("failed to assign permissions to role '%s': %w", def.Code, err)
			}
			touchedRoles = append(touchedRoles, role.ID)
		}

		if err := s.perms.RecordCatalogVersion(txCtx, s.version); err != nil {
			return fmt.Errorf("failed to record catalog version: %w", err)
		}

		result.Applied = true
		result.Permissions = len(s.permDefs)
		result.Roles = len(s.roleDefs)
		return writeAudit(txCtx, s.audit, actor, model.ActionSyncCatalog, fmt.Sprint(s.version), "permission catalog",
			map[string]any{"forced": force, "previous_version": applied})
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.logger.Info("permission catalog applied",
			zap.Int("version", result.Version),
			zap.Int("permissions", result.Permissions),
			zap.Int("roles", result.Roles))
		for _, id := range touchedRoles {
			s.notifier.PermissionsChanged(ScopeRole, id.String())
		}
	}
	return result, nil
}

func (s *catalogService) upsertSystemRole(ctx context.Context, def catalog.RoleDef) (*model.Role, error) {
	role, err := s.roles.FindByCode(ctx, def.Code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		role = &model.Role{
			Code:          def.Code,
			NameEn:        def.NameEn,
			NameAr:        def.NameAr,
			DescriptionEn: def.DescriptionEn,
			IsActive:      true,
			IsSystem:      true,
		}
		if err := s.roles.Create(ctx, role); err != nil {
			return nil, fmt.Errorf("failed to seed role '%s': %w", def.Code, err)
		}
		return role, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load role '%s': %w", def.Code, err)
	}

	role.NameEn = def.NameEn
	role.NameAr = def.NameAr
	role.DescriptionEn = def.DescriptionEn
	role.IsSystem = true
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role '%s': %w", def.Code, err)
	}
	return role, nil
}
