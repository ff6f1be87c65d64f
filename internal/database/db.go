package database

import (
	"fmt"
	"time"

	"ameenhub/internal/model"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the PostgreSQL pool through GORM and migrates the schema
func NewConnection(dsn string, log *zap.Logger) (*gorm.DB, error) {
	stdLog, err := zap.NewStdLogAt(log.Named("gorm"), zapcore.WarnLevel)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.New(
			stdLog,
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				ParameterizedQueries:      true,
			},
		),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate registers the explicit join tables and auto-migrates every model.
// Join tables must be set up before AutoMigrate sees the many2many fields.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Role{}, "Permissions", &model.RolePermission{}); err != nil {
		return fmt.Errorf("failed to set up role_permissions join table: %w", err)
	}

	err := db.AutoMigrate(
		&model.User{},
		&model.Permission{},
		&model.Role{},
		&model.RolePermission{},
		&model.UserRole{},
		&model.UserCustomPermission{},
		&model.RefreshToken{},
		&model.AuditLog{},
		&model.CatalogVersion{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}

	// Usernames and emails are unique among live users only, so the
	// full-table indexes of older schemas must go.
	for _, name := range []string{"idx_users_username", "idx_users_email"} {
		if db.Migrator().HasIndex(&model.User{}, name) {
			if err := db.Migrator().DropIndex(&model.User{}, name); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", name, err)
			}
		}
	}
	return nil
}
