package repository

import (
	"context"
	"errors"
	"time"

	"ameenhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionRepository reads the permission catalog and applies its seed.
type PermissionRepository interface {
	ListAll(ctx context.Context, module string) ([]model.Permission, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Permission, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Permission, error)
	FindByCodes(ctx context.Context, codes []string) ([]model.Permission, error)
	UpsertByCode(ctx context.Context, perm *model.Permission) error
	LatestCatalogVersion(ctx context.Context) (int, error)
	RecordCatalogVersion(ctx context.Context, version int) error
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) ListAll(ctx context.Context, module string) ([]model.Permission, error) {
	var perms []model.Permission
	query := GetDB(ctx, r.db)
	if module != "" {
		query = query.Where("module = ?", module)
	}
	if err := query.Order("module asc, code asc").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	var perm model.Permission
	if err := GetDB(ctx, r.db).First(&perm, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *permissionRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Permission, error) {
	var perms []model.Permission
	if len(ids) == 0 {
		return perms, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Order("code asc").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) FindByCodes(ctx context.Context, codes []string) ([]model.Permission, error) {
	var perms []model.Permission
	if len(codes) == 0 {
		return perms, nil
	}
	if err := GetDB(ctx, r.db).Where("code IN ?", codes).Order("module asc, code asc").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// UpsertByCode inserts the permission or refreshes its descriptive columns.
// perm.ID is set to the stored row's id.
func (r *permissionRepository) UpsertByCode(ctx context.Context, perm *model.Permission) error {
	db := GetDB(ctx, r.db)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"module", "category", "name_en", "name_ar",
			"description_en", "description_ar", "is_system", "updated_at",
		}),
	}).Create(perm).Error
	if err != nil {
		return err
	}

	var stored model.Permission
	if err := db.Select("id").First(&stored, "code = ?", perm.Code).Error; err != nil {
		return err
	}
	perm.ID = stored.ID
	return nil
}

func (r *permissionRepository) LatestCatalogVersion(ctx context.Context) (int, error) {
	var v model.CatalogVersion
	err := GetDB(ctx, r.db).Order("version desc").First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v.Version, nil
}

func (r *permissionRepository) RecordCatalogVersion(ctx context.Context, version int) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "version"}},
		DoUpdates: clause.AssignmentColumns([]string{"applied_at"}),
	}).Create(&model.CatalogVersion{Version: version, AppliedAt: time.Now()}).Error
}
