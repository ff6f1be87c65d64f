package handler

import (
	"net/http"

	"ameenhub/internal/middleware"
	"ameenhub/internal/service"
	"ameenhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService    service.RoleService
	accessService  service.AccessService
	catalogService service.CatalogService
	auth           *middleware.Auth
}

func NewRoleHandler(
	roleService service.RoleService,
	accessService service.AccessService,
	catalogService service.CatalogService,
	auth *middleware.Auth,
) *RoleHandler {
	return &RoleHandler{
		roleService:    roleService,
		accessService:  accessService,
		catalogService: catalogService,
		auth:           auth,
	}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/api/roles")
	roles.Use(h.auth.Authenticate())
	{
		roles.GET("", h.auth.RequirePermission("roles.view"), h.ListRoles)
		roles.GET("/:id", h.auth.RequirePermission("roles.view"), h.GetRole)
		roles.POST("", h.auth.RequirePermission("roles.manage"), h.CreateRole)
		roles.PUT("/:id", h.auth.RequirePermission("roles.manage"), h.UpdateRole)
		roles.DELETE("/:id", h.auth.RequirePermission("roles.manage"), h.DeleteRole)
		roles.PUT("/:id/permissions", h.auth.RequirePermission("roles.manage"), h.SetRolePermissions)
		roles.POST("/:id/permissions/:permissionId", h.auth.RequirePermission("roles.manage"), h.AssignRolePermission)
		roles.DELETE("/:id/permissions/:permissionId", h.auth.RequirePermission("roles.manage"), h.RemoveRolePermission)
	}

	perms := router.Group("/api/permissions")
	perms.Use(h.auth.Authenticate())
	{
		perms.GET("", h.auth.RequireAnyPermission("permissions.view", "roles.manage"), h.ListPermissions)
		perms.POST("/sync", h.auth.RequirePermission("permissions.sync"), h.SyncCatalog)
	}
}

// ListRoles returns all roles with their permissions
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.RoleResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// GetRole returns a single role by ID
// @Summary      Get role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RoleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roleService.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// CreateRole creates a new custom role
// @Summary      Create role
// @Description  Creates a non-system role, optionally with an initial permission set
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRoleRequest  true  "Role"
// @Success      201      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// UpdateRole updates a role's names, descriptions and active flag
// @Summary      Update role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Role ID"
// @Param        payload  body      service.UpdateRoleRequest  true  "Role"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// DeleteRole deletes a non-system role
// @Summary      Delete role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.roleService.DeleteRole(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Role deleted successfully"}))
}

// SetRolePermissions replaces all permissions for a role
// @Summary      Replace role permissions
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                             true  "Role ID"
// @Param        payload  body      service.SetRolePermissionsRequest  true  "Permission IDs"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/roles/{id}/permissions [put]
func (h *RoleHandler) SetRolePermissions(c *gin.Context) {
	var req service.SetRolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.accessService.SetRolePermissions(ctx, c.Param("id"), req.PermissionIDs, middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}

	role, err := h.roleService.GetRole(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// AssignRolePermission grants one permission to a role
// @Summary      Grant permission to role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string  true  "Role ID"
// @Param        permissionId  path      string  true  "Permission ID"
// @Success      200           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Router       /api/roles/{id}/permissions/{permissionId} [post]
func (h *RoleHandler) AssignRolePermission(c *gin.Context) {
	err := h.accessService.AssignPermissionToRole(c.Request.Context(), c.Param("id"), c.Param("permissionId"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Permission granted"}))
}

// RemoveRolePermission revokes one permission from a role
// @Summary      Revoke permission from role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string  true  "Role ID"
// @Param        permissionId  path      string  true  "Permission ID"
// @Success      200           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Router       /api/roles/{id}/permissions/{permissionId} [delete]
func (h *RoleHandler) RemoveRolePermission(c *gin.Context) {
	removed, err := h.accessService.RemovePermissionFromRole(c.Request.Context(), c.Param("id"), c.Param("permissionId"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"removed": removed}))
}

// ListPermissions returns the permission catalog
// @Summary      List permissions
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Param        module  query     string  false  "Filter by module"
// @Success      200     {object}  response.Response{data=[]service.PermissionResponse}
// @Router       /api/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleService.ListPermissions(c.Request.Context(), c.Query("module"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}

// SyncCatalog applies the bundled permission catalog
// @Summary      Sync permission catalog
// @Description  Upserts catalog permissions and built-in roles. Skipped when the version is already applied unless force=true.
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Param        force  query     bool  false  "Re-apply the current version"
// @Success      200    {object}  response.Response{data=service.SyncResult}
// @Router       /api/permissions/sync [post]
func (h *RoleHandler) SyncCatalog(c *gin.Context) {
	force := c.Query("force") == "true"
	result, err := h.catalogService.Sync(c.Request.Context(), force, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
