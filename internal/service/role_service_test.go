package service

import (
	"context"
	"testing"

	"ameenhub/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.permission(t, "a.view"), f.permission(t, "b.view")

	role, err := f.roleSvc.CreateRole(ctx, CreateRoleRequest{
		Code:        "support_lead",
		NameEn:      "Support lead",
		NameAr:      "قائد الدعم",
		Permissions: []string{b.ID.String(), a.ID.String()},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "support_lead", role.Code)
	assert.True(t, role.IsActive)
	assert.False(t, role.IsSystem)
	require.Len(t, role.Permissions, 2)
	assert.Equal(t, "a.view", role.Permissions[0].Code)

	_, err = f.roleSvc.CreateRole(ctx, CreateRoleRequest{Code: "support_lead", NameEn: "Again"}, "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateRole_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, code := range []string{"", "A", "Has Space", "1starts_with_digit", "dash-ed"} {
		_, err := f.roleSvc.CreateRole(ctx, CreateRoleRequest{Code: code, NameEn: "x"}, "")
		assert.ErrorIs(t, err, ErrInvalidInput, code)
	}

	_, err := f.roleSvc.CreateRole(ctx, CreateRoleRequest{Code: "valid", NameEn: "x", Permissions: []string{uuid.NewString()}}, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.roleSvc.GetRole(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	roles, err := f.roleSvc.ListRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles, "a failed create leaves nothing behind")
}

func TestUpdateRole_DeactivationRevokesGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "agent", true)
	r := f.role(t, "agent", true, "messages.send")
	f.assign(t, u, r)
	require.True(t, f.has(t, u, "messages.send"))

	inactive := false
	updated, err := f.roleSvc.UpdateRole(ctx, r.ID.String(), UpdateRoleRequest{NameEn: "Agent", IsActive: &inactive}, "")
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Agent", updated.NameEn)
	assert.False(t, f.has(t, u, "messages.send"))
	assert.Equal(t, []string{"role:" + r.ID.String()}, f.notifier.Events())

	_, err = f.roleSvc.UpdateRole(ctx, uuid.NewString(), UpdateRoleRequest{NameEn: "x"}, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRole_SystemRoleRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "root", true)
	r := f.role(t, "super_admin", true, "*", "users.view")
	r.IsSystem = true
	require.NoError(t, f.roles.Update(ctx, r))
	f.assign(t, u, r)

	err := f.roleSvc.DeleteRole(ctx, r.ID.String(), "")
	assert.ErrorIs(t, err, ErrSystemProtected)

	codes, err := f.roles.ListPermissionCodes(ctx, r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"*", "users.view"}, codes)
	assert.True(t, f.has(t, u, "anything.at.all"))
	assert.Empty(t, f.notifier.Events())
}

func TestDeleteRole_RemovesGrantsAndAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "agent", true)
	r := f.role(t, "temp", true, "messages.send")
	f.assign(t, u, r)

	require.NoError(t, f.roleSvc.DeleteRole(ctx, r.ID.String(), ""))

	assert.Equal(t, int64(0), f.countRows(t, "role_permissions", "role_id = ?", r.ID))
	assert.Equal(t, int64(0), f.countRows(t, "user_roles", "role_id = ?", r.ID))
	assert.Equal(t, int64(1), f.countRows(t, "audit_logs", "action = ?", model.ActionDeleteRole))
	assert.False(t, f.has(t, u, "messages.send"))

	err := f.roleSvc.DeleteRole(ctx, r.ID.String(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPermissions_FilterByModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.permission(t, "messages.send")
	f.permission(t, "messages.view")
	f.permission(t, "backup.create")

	all, err := f.roleSvc.ListPermissions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	msgs, err := f.roleSvc.ListPermissions(ctx, "messages")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "messages.send", msgs[0].Code)
}
