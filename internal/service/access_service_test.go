package service

import (
	"context"
	"testing"

	"ameenhub/internal/model"
	"ameenhub/internal/rbac"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission_NoRolesNoOverrides(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "nobody", true)
	f.permission(t, "messages.send")

	assert.False(t, f.has(t, u, "messages.send"))
	assert.False(t, f.has(t, u, "never.registered"))
	assert.Empty(t, f.codes(t, u))
}

func TestHasPermission_RoleGrant(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "agent", true)
	f.assign(t, u, f.role(t, "agent", true, "customers.view", "messages.send"))

	assert.True(t, f.has(t, u, "customers.view"))
	assert.True(t, f.has(t, u, "messages.send"))
	assert.False(t, f.has(t, u, "backup.restore"))
}

func TestHasPermission_DenyBeatsRoleGrant(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "agent", true)
	f.assign(t, u, f.role(t, "agent", true, "messages.send"))
	f.override(t, u, "messages.send", false)

	assert.False(t, f.has(t, u, "messages.send"))
}

func TestHasPermission_CustomGrantFillsGap(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "reporter", true)
	f.permission(t, "reports.export")
	f.override(t, u, "reports.view", true)

	assert.True(t, f.has(t, u, "reports.view"))
	assert.False(t, f.has(t, u, "reports.export"))
}

func TestHasPermission_Wildcard(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "root", true)
	f.assign(t, u, f.role(t, "super_admin", true, rbac.Wildcard))
	f.permission(t, "backup.restore")

	assert.True(t, f.has(t, u, "backup.restore"))
	assert.True(t, f.has(t, u, "not.in.catalog"))

	f.override(t, u, "backup.restore", false)
	assert.False(t, f.has(t, u, "backup.restore"), "specific deny overrides the wildcard")
	assert.True(t, f.has(t, u, "users.view"), "other codes still pass")

	res, err := f.accessSvc.CheckPermission(context.Background(), u.ID.String(), "users.view")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, "granted_by_wildcard", res.Decision)
}

func TestHasPermission_CaseSensitive(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "agent", true)
	f.assign(t, u, f.role(t, "agent", true, "messages.send"))

	assert.False(t, f.has(t, u, "Messages.Send"))
}

func TestGetUserPermissions_DenyRemovesRoleGrant(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "clerk", true)
	f.assign(t, u, f.role(t, "orders", true, "orders.view", "orders.edit"))
	f.override(t, u, "orders.edit", false)

	perms, err := f.accessSvc.GetUserPermissions(context.Background(), u.ID.String())
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "orders.view", perms[0].Code)
	assert.Equal(t, "orders", perms[0].Module)
}

func TestEffectivePermissions_UnionAcrossRoles(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "multi", true)
	f.assign(t, u,
		f.role(t, "hr", true, "hr.employees.view", "messages.send"),
		f.role(t, "sales", true, "customers.view", "messages.send"),
	)

	assert.Equal(t, []string{"customers.view", "hr.employees.view", "messages.send"}, f.codes(t, u))
}

func TestEffectivePermissions_InactiveRoleGrantsNothing(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "agent", true)
	f.assign(t, u, f.role(t, "retired", false, "messages.send"))

	assert.False(t, f.has(t, u, "messages.send"))
}

func TestEffectivePermissions_UnknownOrInactiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "agent", true, "messages.send")

	inactive := f.user(t, "disabled", false)
	f.assign(t, inactive, r)
	assert.False(t, f.has(t, inactive, "messages.send"))

	deleted := f.user(t, "gone", true)
	f.assign(t, deleted, r)
	require.NoError(t, f.users.Delete(ctx, deleted.ID))
	assert.False(t, f.has(t, deleted, "messages.send"))

	for _, id := range []string{uuid.NewString(), "not-a-uuid", ""} {
		ok, err := f.accessSvc.HasPermission(ctx, id, "messages.send")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestEffectivePermissions_StoreFailureDenies(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "agent", true)
	f.assign(t, u, f.role(t, "agent", true, "messages.send"))

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	ok, err := f.accessSvc.HasPermission(context.Background(), u.ID.String(), "messages.send")
	assert.Error(t, err)
	assert.False(t, ok)

	set, err := f.accessSvc.EffectivePermissions(context.Background(), u.ID.String())
	assert.Error(t, err)
	assert.Zero(t, set.Len())
}

func TestEffectivePermissions_SeesCommittedChangesImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "agent", true)
	r := f.role(t, "agent", true, "messages.send")
	f.assign(t, u, r)
	require.True(t, f.has(t, u, "messages.send"))

	perm := f.permission(t, "messages.send")
	removed, err := f.accessSvc.RemovePermissionFromRole(ctx, r.ID.String(), perm.ID.String(), "")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, f.has(t, u, "messages.send"))
}

func TestCheckPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "agent", true)
	f.assign(t, u, f.role(t, "agent", true, "messages.send", "customers.view"))
	f.override(t, u, "customers.view", false)

	res, err := f.accessSvc.CheckPermission(ctx, u.ID.String(), "messages.send")
	require.NoError(t, err)
	assert.Equal(t, &PermissionCheckResponse{UserID: u.ID.String(), Code: "messages.send", Allowed: true, Decision: "granted"}, res)

	res, err = f.accessSvc.CheckPermission(ctx, u.ID.String(), "customers.view")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, "denied", res.Decision)

	res, err = f.accessSvc.CheckPermission(ctx, u.ID.String(), "backup.create")
	require.NoError(t, err)
	assert.Equal(t, "not_granted", res.Decision)

	_, err = f.accessSvc.CheckPermission(ctx, u.ID.String(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckPermission_AgreesWithHasPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "agent", true)
	f.assign(t, u, f.role(t, "agent", true, "messages.send"))

	for _, code := range []string{"messages.send", " messages.send", "messages.send ", "Messages.Send", "  "} {
		has, err := f.accessSvc.HasPermission(ctx, u.ID.String(), code)
		require.NoError(t, err)
		res, err := f.accessSvc.CheckPermission(ctx, u.ID.String(), code)
		require.NoError(t, err)
		assert.Equal(t, has, res.Allowed, "code %q", code)
		assert.Equal(t, code, res.Code)
	}
	assert.False(t, f.has(t, u, " messages.send"))
}

func TestSetRolePermissions_FullReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "editor", true)
	a, b, c := f.permission(t, "a.view"), f.permission(t, "b.view"), f.permission(t, "c.view")

	require.NoError(t, f.accessSvc.SetRolePermissions(ctx, r.ID.String(), []string{a.ID.String(), b.ID.String()}, ""))
	require.NoError(t, f.accessSvc.SetRolePermissions(ctx, r.ID.String(), []string{b.ID.String(), c.ID.String()}, ""))

	codes, err := f.roles.ListPermissionCodes(ctx, r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b.view", "c.view"}, codes)

	require.NoError(t, f.accessSvc.SetRolePermissions(ctx, r.ID.String(), nil, ""))
	codes, err = f.roles.ListPermissionCodes(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestSetRolePermissions_UnknownIDsLeaveGrantsUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "editor", true, "a.view")
	b := f.permission(t, "b.view")

	err := f.accessSvc.SetRolePermissions(ctx, r.ID.String(), []string{b.ID.String(), uuid.NewString()}, "")
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.accessSvc.SetRolePermissions(ctx, uuid.NewString(), []string{b.ID.String()}, "")
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.accessSvc.SetRolePermissions(ctx, r.ID.String(), []string{"junk"}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	codes, err := f.roles.ListPermissionCodes(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.view"}, codes)
}

func TestAssignPermissionToRole_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "editor", true)
	p := f.permission(t, "a.view")

	require.NoError(t, f.accessSvc.AssignPermissionToRole(ctx, r.ID.String(), p.ID.String(), ""))
	require.NoError(t, f.accessSvc.AssignPermissionToRole(ctx, r.ID.String(), p.ID.String(), ""))

	assert.Equal(t, int64(1), f.countRows(t, "role_permissions", "role_id = ?", r.ID))
	assert.Equal(t, int64(1), f.countRows(t, "audit_logs", "action = ?", model.ActionAssignRolePermission))
	assert.Equal(t, []string{"role:" + r.ID.String()}, f.notifier.Events())

	err := f.accessSvc.AssignPermissionToRole(ctx, r.ID.String(), uuid.NewString(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemovePermissionFromRole_Missing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "editor", true)

	removed, err := f.accessSvc.RemovePermissionFromRole(ctx, r.ID.String(), uuid.NewString(), "")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, f.notifier.Events())

	_, err = f.accessSvc.RemovePermissionFromRole(ctx, uuid.NewString(), uuid.NewString(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetUserRoles_FullReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "agent", true)
	r1 := f.role(t, "r1", true, "a.view")
	r2 := f.role(t, "r2", true, "b.view")
	r3 := f.role(t, "r3", true, "c.view")

	require.NoError(t, f.accessSvc.SetUserRoles(ctx, u.ID.String(), []string{r1.ID.String(), r2.ID.String()}, ""))
	require.NoError(t, f.accessSvc.SetUserRoles(ctx, u.ID.String(), []string{r2.ID.String(), r3.ID.String(), r3.ID.String()}, ""))

	roles, err := f.accessSvc.ListUserRoles(ctx, u.ID.String())
	require.NoError(t, err)
	got := make([]string, 0, len(roles))
	for _, r := range roles {
		got = append(got, r.Code)
	}
	assert.ElementsMatch(t, []string{"r2", "r3"}, got)
	assert.Equal(t, []string{"b.view", "c.view"}, f.codes(t, u))

	err = f.accessSvc.SetUserRoles(ctx, u.ID.String(), []string{uuid.NewString()}, "")
	assert.ErrorIs(t, err, ErrNotFound)
	err = f.accessSvc.SetUserRoles(ctx, uuid.NewString(), nil, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignAndRemoveUserRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin", true)
	u := f.user(t, "agent", true)
	r := f.role(t, "agent", true, "messages.send")

	require.NoError(t, f.accessSvc.AssignRoleToUser(ctx, u.ID.String(), r.ID.String(), admin.ID.String()))
	require.NoError(t, f.accessSvc.AssignRoleToUser(ctx, u.ID.String(), r.ID.String(), admin.ID.String()))
	assert.Equal(t, int64(1), f.countRows(t, "user_roles", "user_id = ?", u.ID))

	roles, err := f.accessSvc.ListUserRoles(ctx, u.ID.String())
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, admin.ID.String(), roles[0].AssignedBy)
	assert.True(t, f.has(t, u, "messages.send"))

	removed, err := f.accessSvc.RemoveRoleFromUser(ctx, u.ID.String(), r.ID.String(), admin.ID.String())
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, f.has(t, u, "messages.send"))

	removed, err = f.accessSvc.RemoveRoleFromUser(ctx, u.ID.String(), r.ID.String(), admin.ID.String())
	require.NoError(t, err)
	assert.False(t, removed)

	err = f.accessSvc.AssignRoleToUser(ctx, u.ID.String(), uuid.NewString(), "")
	assert.ErrorIs(t, err, ErrNotFound)
	err = f.accessSvc.AssignRoleToUser(ctx, uuid.NewString(), r.ID.String(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"user:" + u.ID.String(), "user:" + u.ID.String()}, f.notifier.Events())
}

func TestAssignCustomPermission_UpsertFlips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "agent", true)
	p := f.permission(t, "reports.view")

	first, err := f.accessSvc.AssignCustomPermissionToUser(ctx, u.ID.String(), p.ID.String(), true, "")
	require.NoError(t, err)
	assert.True(t, first.IsGranted)
	assert.True(t, f.has(t, u, "reports.view"))

	second, err := f.accessSvc.AssignCustomPermissionToUser(ctx, u.ID.String(), p.ID.String(), false, "")
	require.NoError(t, err)
	assert.False(t, second.IsGranted)
	assert.Equal(t, first.ID, second.ID, "the same row is updated")
	assert.False(t, f.has(t, u, "reports.view"))

	assert.Equal(t, int64(1), f.countRows(t, "user_custom_permissions", "user_id = ? AND permission_id = ?", u.ID, p.ID))

	overrides, err := f.accessSvc.ListCustomPermissions(ctx, u.ID.String())
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.NotNil(t, overrides[0].Permission)
	assert.Equal(t, "reports.view", overrides[0].Permission.Code)
	assert.False(t, overrides[0].IsGranted)
}

func TestAssignCustomPermission_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "agent", true)
	p := f.permission(t, "reports.view")

	_, err := f.accessSvc.AssignCustomPermissionToUser(ctx, uuid.NewString(), p.ID.String(), true, "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.accessSvc.AssignCustomPermissionToUser(ctx, u.ID.String(), uuid.NewString(), true, "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.accessSvc.AssignCustomPermissionToUser(ctx, u.ID.String(), "x", true, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.notifier.Events())
}

func TestRemoveCustomPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "agent", true)
	f.assign(t, u, f.role(t, "agent", true, "messages.send"))
	f.override(t, u, "messages.send", false)
	p := f.permission(t, "messages.send")
	require.False(t, f.has(t, u, "messages.send"))

	removed, err := f.accessSvc.RemoveCustomPermissionFromUser(ctx, u.ID.String(), p.ID.String(), "")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.True(t, f.has(t, u, "messages.send"), "role grant applies again")

	removed, err = f.accessSvc.RemoveCustomPermissionFromUser(ctx, u.ID.String(), p.ID.String(), "")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMutatorsWriteAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin", true)
	u := f.user(t, "agent", true)
	r := f.role(t, "agent", true)
	p := f.permission(t, "messages.send")

	require.NoError(t, f.accessSvc.SetRolePermissions(ctx, r.ID.String(), []string{p.ID.String()}, admin.ID.String()))
	require.NoError(t, f.accessSvc.SetUserRoles(ctx, u.ID.String(), []string{r.ID.String()}, admin.ID.String()))
	_, err := f.accessSvc.AssignCustomPermissionToUser(ctx, u.ID.String(), p.ID.String(), false, admin.ID.String())
	require.NoError(t, err)

	logs, total, err := f.auditSvc.GetAuditLogs(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
		assert.Equal(t, "admin", l.Username)
	}
	assert.ElementsMatch(t, []string{
		model.ActionSetRolePermissions,
		model.ActionSetUserRoles,
		model.ActionAssignCustomPermission,
	}, actions)

	filtered, total, err := f.auditSvc.GetAuditLogs(ctx, model.ActionSetUserRoles, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, u.ID.String(), filtered[0].EntityID)
}
