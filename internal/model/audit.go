package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateUser = "CREATE_USER"
	ActionUpdateUser = "UPDATE_USER"
	ActionDeleteUser = "DELETE_USER"

	ActionCreateRole = "CREATE_ROLE"
	ActionUpdateRole = "UPDATE_ROLE"
	ActionDeleteRole = "DELETE_ROLE"

	// Grant graph mutations
	ActionSetRolePermissions     = "SET_ROLE_PERMISSIONS"
	ActionAssignRolePermission   = "ASSIGN_ROLE_PERMISSION"
	ActionRemoveRolePermission   = "REMOVE_ROLE_PERMISSION"
	ActionSetUserRoles           = "SET_USER_ROLES"
	ActionAssignUserRole         = "ASSIGN_USER_ROLE"
	ActionRemoveUserRole         = "REMOVE_USER_ROLE"
	ActionAssignCustomPermission = "ASSIGN_CUSTOM_PERMISSION"
	ActionRemoveCustomPermission = "REMOVE_CUSTOM_PERMISSION"

	ActionSyncCatalog = "SYNC_PERMISSION_CATALOG"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nil for seed and other automated changes
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
