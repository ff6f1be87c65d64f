package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ameenhub/internal/auth"
	"ameenhub/internal/database"
	"ameenhub/internal/model"
	"ameenhub/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) PermissionsChanged(scope, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, scope+":"+id)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type fixture struct {
	db       *gorm.DB
	tx       repository.TransactionManager
	users    repository.UserRepository
	roles    repository.RoleRepository
	perms    repository.PermissionRepository
	access   repository.AccessRepository
	tokens   repository.RefreshTokenRepository
	audit    repository.AuditRepository
	notifier *recordingNotifier

	accessSvc  AccessService
	roleSvc    RoleService
	userSvc    UserService
	catalogSvc CatalogService
	auditSvc   AuditService
}

// newTestDB opens a private in-memory SQLite database. A single connection
// keeps every statement, transactional or not, on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{
		db:       db,
		tx:       repository.NewTransactionManager(db),
		users:    repository.NewUserRepository(db),
		roles:    repository.NewRoleRepository(db),
		perms:    repository.NewPermissionRepository(db),
		access:   repository.NewAccessRepository(db),
		tokens:   repository.NewRefreshTokenRepository(db),
		audit:    repository.NewAuditRepository(db),
		notifier: &recordingNotifier{},
	}

	f.accessSvc = NewAccessService(AccessServiceDeps{
		Tx:          f.tx,
		Users:       f.users,
		Roles:       f.roles,
		Permissions: f.perms,
		Access:      f.access,
		Audit:       f.audit,
		Notifier:    f.notifier,
	})
	f.roleSvc = NewRoleService(f.tx, f.roles, f.perms, f.audit, f.notifier)
	tokenMgr := auth.NewTokenManager([]byte("test-secret"), "ameenhub-test", time.Hour, 24*time.Hour)
	f.userSvc = NewUserService(f.tx, f.users, f.tokens, f.audit, tokenMgr, f.notifier)
	f.catalogSvc = NewCatalogService(f.tx, f.perms, f.roles, f.audit, f.notifier, nil)
	f.auditSvc = NewAuditService(f.audit)
	return f
}

func (f *fixture) permission(t *testing.T, code string) *model.Permission {
	t.Helper()
	perm := &model.Permission{
		Code:     code,
		Module:   strings.SplitN(code, ".", 2)[0],
		Category: model.CategoryFeature,
		NameEn:   code,
	}
	require.NoError(t, f.perms.UpsertByCode(context.Background(), perm))
	return perm
}

// role creates a role granting the given codes, registering any code not yet
// in the catalog.
func (f *fixture) role(t *testing.T, code string, active bool, codes ...string) *model.Role {
	t.Helper()
	ctx := context.Background()
	role := &model.Role{Code: code, NameEn: code, IsActive: active}
	require.NoError(t, f.roles.Create(ctx, role))

	ids := make([]uuid.UUID, 0, len(codes))
	for _, c := range codes {
		ids = append(ids, f.permission(t, c).ID)
	}
	require.NoError(t, f.roles.ReplacePermissions(ctx, role.ID, ids, nil))
	return role
}

func (f *fixture) user(t *testing.T, username string, active bool) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    username + "@ameenhub.test",
		Password: "not-a-real-hash",
		IsActive: active,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) assign(t *testing.T, user *model.User, roles ...*model.Role) {
	t.Helper()
	for _, r := range roles {
		_, err := f.access.AddUserRole(context.Background(), user.ID, r.ID, nil)
		require.NoError(t, err)
	}
}

func (f *fixture) override(t *testing.T, user *model.User, code string, granted bool) {
	t.Helper()
	perm := f.permission(t, code)
	_, err := f.accessSvc.AssignCustomPermissionToUser(context.Background(), user.ID.String(), perm.ID.String(), granted, "")
	require.NoError(t, err)
}

func (f *fixture) has(t *testing.T, user *model.User, code string) bool {
	t.Helper()
	ok, err := f.accessSvc.HasPermission(context.Background(), user.ID.String(), code)
	require.NoError(t, err)
	return ok
}

func (f *fixture) codes(t *testing.T, user *model.User) []string {
	t.Helper()
	set, err := f.accessSvc.EffectivePermissions(context.Background(), user.ID.String())
	require.NoError(t, err)
	return set.Codes()
}

func (f *fixture) countRows(t *testing.T, table, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Table(table).Where(where, args...).Count(&n).Error)
	return n
}

func mustUser(t *testing.T, f *fixture, id uuid.UUID) *model.User {
	t.Helper()
	user, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}
