package catalog

import (
	"testing"

	"ameenhub/internal/model"
	"ameenhub/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsValid(t *testing.T) {
	require.NoError(t, Validate(Permissions, Roles))
}

func TestSeedDeclaresWildcard(t *testing.T) {
	var found bool
	for _, p := range Permissions {
		if p.Code == rbac.Wildcard {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate(t *testing.T) {
	perm := PermissionDef{Code: "a.view", Module: "a", Category: model.CategoryPage, NameEn: "A"}

	t.Run("duplicate code", func(t *testing.T) {
		err := Validate([]PermissionDef{perm, perm}, nil)
		assert.ErrorContains(t, err, "declared twice")
	})

	t.Run("unknown category", func(t *testing.T) {
		bad := perm
		bad.Category = "widget"
		err := Validate([]PermissionDef{bad}, nil)
		assert.ErrorContains(t, err, "unknown category")
	})

	t.Run("role grants unknown code", func(t *testing.T) {
		err := Validate([]PermissionDef{perm}, []RoleDef{{Code: "r", Permissions: []string{"b.view"}}})
		assert.ErrorContains(t, err, "unknown permission")
	})

	t.Run("duplicate role", func(t *testing.T) {
		err := Validate([]PermissionDef{perm}, []RoleDef{{Code: "r"}, {Code: "r"}})
		assert.ErrorContains(t, err, "role \"r\" declared twice")
	})
}
