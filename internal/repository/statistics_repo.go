package repository

import (
	"context"
	"fmt"
	"time"

	"ameenhub/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountUsers(ctx context.Context) (total, active int64, err error)
	CountRoles(ctx context.Context) (total, active int64, err error)
	CountPermissions(ctx context.Context) (int64, error)
	CountOverrides(ctx context.Context) (grants, denies int64, err error)
	GetTopRoles(ctx context.Context, limit int) ([]model.RoleRanking, error)
	GetActionCounts(ctx context.Context, start, end time.Time) ([]model.ActionCount, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// CountUsers ignores soft-deleted accounts.
func (r *statisticsRepository) CountUsers(ctx context.Context) (int64, int64, error) {
	var result struct {
		Total  int64
		Active int64
	}
	if err := GetDB(ctx, r.db).Model(&model.User{}).
		Select("COUNT(*) as total, COUNT(CASE WHEN is_active THEN 1 END) as active").
		Scan(&result).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count users: %w", err)
	}
	return result.Total, result.Active, nil
}

func (r *statisticsRepository) CountRoles(ctx context.Context) (int64, int64, error) {
	var result struct {
		Total  int64
		Active int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Role{}).
		Select("COUNT(*) as total, COUNT(CASE WHEN is_active THEN 1 END) as active").
		Scan(&result).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count roles: %w", err)
	}
	return result.Total, result.Active, nil
}

func (r *statisticsRepository) CountPermissions(ctx context.Context) (int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.Permission{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count permissions: %w", err)
	}
	return total, nil
}

// CountOverrides counts per-user grants and denies held by live users.
func (r *statisticsRepository) CountOverrides(ctx context.Context) (int64, int64, error) {
	var result struct {
		Grants int64
		Denies int64
	}
	if err := GetDB(ctx, r.db).Table("user_custom_permissions").
		Select("COUNT(CASE WHEN user_custom_permissions.is_granted THEN 1 END) as grants, " +
			"COUNT(CASE WHEN NOT user_custom_permissions.is_granted THEN 1 END) as denies").
		Joins("JOIN users ON users.id = user_custom_permissions.user_id AND users.deleted_at IS NULL").
		Scan(&result).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count custom permissions: %w", err)
	}
	return result.Grants, result.Denies, nil
}

func (r *statisticsRepository) GetTopRoles(ctx context.Context, limit int) ([]model.RoleRanking, error) {
	var rankings []model.RoleRanking
	if err := GetDB(ctx, r.db).Table("user_roles").
		Select("roles.id as role_id, roles.code as role_code, roles.is_active as is_active, COUNT(user_roles.user_id) as user_count").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Joins("JOIN users ON users.id = user_roles.user_id AND users.deleted_at IS NULL").
		Group("roles.id, roles.code, roles.is_active").
		Order("user_count DESC, roles.code ASC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top roles: %w", err)
	}
	return rankings, nil
}

func (r *statisticsRepository) GetActionCounts(ctx context.Context, start, end time.Time) ([]model.ActionCount, error) {
	var counts []model.ActionCount
	if err := GetDB(ctx, r.db).Model(&model.AuditLog{}).
		Select("action, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("action").
		Order("count DESC, action ASC").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to query audit activity: %w", err)
	}
	return counts, nil
}
