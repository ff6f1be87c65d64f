package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission categories
const (
	CategoryPage    = "page"
	CategoryAPI     = "api"
	CategoryButton  = "button"
	CategoryMenu    = "menu"
	CategoryFeature = "feature"
)

// ValidCategory reports whether c is one of the known permission categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryPage, CategoryAPI, CategoryButton, CategoryMenu, CategoryFeature:
		return true
	}
	return false
}

// Role is a named bundle of permission grants
type Role struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	NameEn        string       `gorm:"type:varchar(255);not null" json:"name_en"`
	NameAr        string       `gorm:"type:varchar(255)" json:"name_ar"`
	DescriptionEn string       `gorm:"type:text" json:"description_en"`
	DescriptionAr string       `gorm:"type:text" json:"description_ar"`
	IsActive      bool         `gorm:"not null" json:"is_active"`
	IsSystem      bool         `gorm:"not null" json:"is_system"` // Prevent deletion of built-in roles
	Permissions   []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Permission is a single capability in the catalog, keyed by Code
type Permission struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"` // e.g. "messages.send_broadcast"
	Module        string    `gorm:"type:varchar(50);not null;index" json:"module"`      // "users", "roles", "messages"...
	Category      string    `gorm:"type:varchar(20);not null" json:"category"`
	NameEn        string    `gorm:"type:varchar(255);not null" json:"name_en"`
	NameAr        string    `gorm:"type:varchar(255)" json:"name_ar"`
	DescriptionEn string    `gorm:"type:text" json:"description_en"`
	DescriptionAr string    `gorm:"type:text" json:"description_ar"`
	IsSystem      bool      `gorm:"not null" json:"is_system"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RolePermission is the join row behind Role.Permissions. Roles only grant.
type RolePermission struct {
	RoleID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"role_id"`
	PermissionID uuid.UUID  `gorm:"type:uuid;primaryKey;index" json:"permission_id"`
	GrantedBy    *uuid.UUID `gorm:"type:uuid" json:"granted_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CatalogVersion records each applied permission catalog seed
type CatalogVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false" json:"version"`
	AppliedAt time.Time `gorm:"not null" json:"applied_at"`
}
