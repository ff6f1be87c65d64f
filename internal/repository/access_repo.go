package repository

import (
	"context"
	"errors"
	"time"

	"ameenhub/internal/model"
	"ameenhub/internal/rbac"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccessRepository covers the user side of the grant graph: role
// assignments, custom overrides, and the two reads resolution needs.
type AccessRepository interface {
	RoleGrantedCodes(ctx context.Context, userID uuid.UUID) ([]string, error)
	Overrides(ctx context.Context, userID uuid.UUID) ([]rbac.Override, error)

	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]model.UserRole, error)
	ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID, assignedBy *uuid.UUID) error
	AddUserRole(ctx context.Context, userID, roleID uuid.UUID, assignedBy *uuid.UUID) (bool, error)
	RemoveUserRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error)

	ListCustomPermissions(ctx context.Context, userID uuid.UUID) ([]model.UserCustomPermission, error)
	FindCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) (*model.UserCustomPermission, error)
	UpsertCustomPermission(ctx context.Context, override *model.UserCustomPermission) error
	DeleteCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error)
}

type accessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepository{db: db}
}

// RoleGrantedCodes returns the codes granted through the user's active roles.
func (r *accessRepository) RoleGrantedCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var codes []string
	err := GetDB(ctx, r.db).Raw(`
		SELECT DISTINCT p.code FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		INNER JOIN roles r ON r.id = rp.role_id
		INNER JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ? AND r.is_active = ?
	`, userID, true).Scan(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *accessRepository) Overrides(ctx context.Context, userID uuid.UUID) ([]rbac.Override, error) {
	var rows []struct {
		Code      string
		IsGranted bool
	}
	err := GetDB(ctx, r.db).Raw(`
		SELECT p.code, ucp.is_granted FROM user_custom_permissions ucp
		INNER JOIN permissions p ON p.id = ucp.permission_id
		WHERE ucp.user_id = ?
	`, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	overrides := make([]rbac.Override, 0, len(rows))
	for _, row := range rows {
		overrides = append(overrides, rbac.Override{Code: row.Code, Granted: row.IsGranted})
	}
	return overrides, nil
}

func (r *accessRepository) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]model.UserRole, error) {
	var assignments []model.UserRole
	err := GetDB(ctx, r.db).
		Preload("Role").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// ReplaceUserRoles makes roleIDs the complete role set of the user.
// Callers run it inside a transaction holding the user lock.
func (r *accessRepository) ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID, assignedBy *uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}

	rows := make([]model.UserRole, 0, len(roleIDs))
	for _, rid := range roleIDs {
		rows = append(rows, model.UserRole{UserID: userID, RoleID: rid, AssignedBy: assignedBy})
	}
	return db.Omit("Role").Create(&rows).Error
}

func (r *accessRepository) AddUserRole(ctx context.Context, userID, roleID uuid.UUID, assignedBy *uuid.UUID) (bool, error) {
	row := model.UserRole{UserID: userID, RoleID: roleID, AssignedBy: assignedBy}
	res := GetDB(ctx, r.db).Omit("Role").Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *accessRepository) RemoveUserRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&model.UserRole{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *accessRepository) ListCustomPermissions(ctx context.Context, userID uuid.UUID) ([]model.UserCustomPermission, error) {
	var overrides []model.UserCustomPermission
	err := GetDB(ctx, r.db).
		Preload("Permission").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

// FindCustomPermission returns nil, nil when no override exists for the pair.
func (r *accessRepository) FindCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) (*model.UserCustomPermission, error) {
	var override model.UserCustomPermission
	err := GetDB(ctx, r.db).
		Preload("Permission").
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

// UpsertCustomPermission writes the override keyed on (user_id, permission_id).
// A second write for the same pair replaces is_granted instead of adding a row.
func (r *accessRepository) UpsertCustomPermission(ctx context.Context, override *model.UserCustomPermission) error {
	override.UpdatedAt = time.Now()
	return GetDB(ctx, r.db).
		Omit("Permission").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_granted", "assigned_by", "updated_at"}),
		}).
		Create(override).Error
}

func (r *accessRepository) DeleteCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Delete(&model.UserCustomPermission{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
