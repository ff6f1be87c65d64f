package service

import (
	"context"
	"testing"

	"ameenhub/internal/catalog"
	"ameenhub/internal/model"
	"ameenhub/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.catalogSvc.Sync(ctx, false, "")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, catalog.Version, res.Version)
	assert.Equal(t, len(catalog.Permissions), res.Permissions)

	perms, err := f.roleSvc.ListPermissions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, perms, len(catalog.Permissions))

	superAdmin, err := f.roles.FindByCode(ctx, "super_admin")
	require.NoError(t, err)
	assert.True(t, superAdmin.IsSystem)
	codes, err := f.roles.ListPermissionCodes(ctx, superAdmin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.Wildcard}, codes)

	assert.Len(t, f.notifier.Events(), len(catalog.Roles))
	assert.Equal(t, int64(1), f.countRows(t, "audit_logs", "action = ?", model.ActionSyncCatalog))
}

func TestCatalogSync_SkipsAppliedVersionUnlessForced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalogSvc.Sync(ctx, false, "")
	require.NoError(t, err)

	res, err := f.catalogSvc.Sync(ctx, false, "")
	require.NoError(t, err)
	assert.False(t, res.Applied)

	res, err = f.catalogSvc.Sync(ctx, true, "")
	require.NoError(t, err)
	assert.True(t, res.Applied)

	perms, err := f.roleSvc.ListPermissions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, perms, len(catalog.Permissions), "re-applying does not duplicate")
	assert.Equal(t, int64(2), f.countRows(t, "audit_logs", "action = ?", model.ActionSyncCatalog))
}

func TestCatalogSync_ResetsSystemRoleGrantsButKeepsCustomRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalogSvc.Sync(ctx, false, "")
	require.NoError(t, err)

	viewer, err := f.roles.FindByCode(ctx, "viewer")
	require.NoError(t, err)
	extra := f.permission(t, "backup.restore")
	_, err = f.roles.AddPermission(ctx, viewer.ID, extra.ID, nil)
	require.NoError(t, err)
	custom := f.role(t, "night_shift", true, "messages.view")

	_, err = f.catalogSvc.Sync(ctx, true, "")
	require.NoError(t, err)

	codes, err := f.roles.ListPermissionCodes(ctx, viewer.ID)
	require.NoError(t, err)
	assert.NotContains(t, codes, "backup.restore")

	codes, err = f.roles.ListPermissionCodes(ctx, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"messages.view"}, codes)
}

func TestCatalogSync_SeededUserResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.catalogSvc.Sync(ctx, false, "")
	require.NoError(t, err)

	agentRole, err := f.roles.FindByCode(ctx, "agent")
	require.NoError(t, err)
	u := f.user(t, "agent1", true)
	f.assign(t, u, agentRole)

	assert.True(t, f.has(t, u, "customers.support"))
	assert.False(t, f.has(t, u, "backup.restore"))
}
