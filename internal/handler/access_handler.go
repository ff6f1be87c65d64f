package handler

import (
	"net/http"

	"ameenhub/internal/middleware"
	"ameenhub/internal/service"
	"ameenhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccessHandler exposes a user's role assignments, custom overrides and
// effective permissions.
type AccessHandler struct {
	accessService service.AccessService
	auth          *middleware.Auth
}

func NewAccessHandler(accessService service.AccessService, auth *middleware.Auth) *AccessHandler {
	return &AccessHandler{accessService: accessService, auth: auth}
}

func (h *AccessHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/api/users/:id")
	users.Use(h.auth.Authenticate())

	read := h.auth.RequireAnyPermission("users.view", "users.manage_access")
	manage := h.auth.RequirePermission("users.manage_access")
	{
		users.GET("/roles", read, h.ListUserRoles)
		users.PUT("/roles", manage, h.SetUserRoles)
		users.POST("/roles/:roleId", manage, h.AssignUserRole)
		users.DELETE("/roles/:roleId", manage, h.RemoveUserRole)

		users.GET("/custom-permissions", read, h.ListCustomPermissions)
		users.PUT("/custom-permissions/:permissionId", manage, h.SetCustomPermission)
		users.DELETE("/custom-permissions/:permissionId", manage, h.RemoveCustomPermission)

		users.GET("/permissions", read, h.GetUserPermissions)
		users.GET("/permissions/check", read, h.CheckPermission)
	}
}

// ListUserRoles
// @Summary      List a user's roles
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=[]service.UserRoleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id}/roles [get]
func (h *AccessHandler) ListUserRoles(c *gin.Context) {
	roles, err := h.accessService.ListUserRoles(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// SetUserRoles replaces every role assignment of a user
// @Summary      Replace a user's roles
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "User ID"
// @Param        payload  body      service.SetUserRolesRequest  true  "Role IDs"
// @Success      200      {object}  response.Response{data=[]service.UserRoleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/users/{id}/roles [put]
func (h *AccessHandler) SetUserRoles(c *gin.Context) {
	var req service.SetUserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.accessService.SetUserRoles(ctx, c.Param("id"), req.RoleIDs, middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}

	roles, err := h.accessService.ListUserRoles(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// AssignUserRole
// @Summary      Assign a role to a user
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true  "User ID"
// @Param        roleId  path      string  true  "Role ID"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/users/{id}/roles/{roleId} [post]
func (h *AccessHandler) AssignUserRole(c *gin.Context) {
	if err := h.accessService.AssignRoleToUser(c.Request.Context(), c.Param("id"), c.Param("roleId"), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Role assigned"}))
}

// RemoveUserRole
// @Summary      Remove a role from a user
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true  "User ID"
// @Param        roleId  path      string  true  "Role ID"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/users/{id}/roles/{roleId} [delete]
func (h *AccessHandler) RemoveUserRole(c *gin.Context) {
	removed, err := h.accessService.RemoveRoleFromUser(c.Request.Context(), c.Param("id"), c.Param("roleId"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"removed": removed}))
}

// ListCustomPermissions
// @Summary      List a user's custom permission overrides
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=[]service.CustomPermissionResponse}
// @Router       /api/users/{id}/custom-permissions [get]
func (h *AccessHandler) ListCustomPermissions(c *gin.Context) {
	overrides, err := h.accessService.ListCustomPermissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, overrides))
}

// SetCustomPermission grants or denies one permission for a user, replacing
// any earlier override for the same permission
// @Summary      Set a custom permission override
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string                           true  "User ID"
// @Param        permissionId  path      string                           true  "Permission ID"
// @Param        payload       body      service.CustomPermissionRequest  true  "Grant or deny"
// @Success      200           {object}  response.Response{data=service.CustomPermissionResponse}
// @Failure      400           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Router       /api/users/{id}/custom-permissions/{permissionId} [put]
func (h *AccessHandler) SetCustomPermission(c *gin.Context) {
	var req service.CustomPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	override, err := h.accessService.AssignCustomPermissionToUser(
		c.Request.Context(), c.Param("id"), c.Param("permissionId"), *req.IsGranted, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, override))
}

// RemoveCustomPermission
// @Summary      Remove a custom permission override
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string  true  "User ID"
// @Param        permissionId  path      string  true  "Permission ID"
// @Success      200           {object}  response.Response
// @Router       /api/users/{id}/custom-permissions/{permissionId} [delete]
func (h *AccessHandler) RemoveCustomPermission(c *gin.Context) {
	removed, err := h.accessService.RemoveCustomPermissionFromUser(c.Request.Context(), c.Param("id"), c.Param("permissionId"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"removed": removed}))
}

// GetUserPermissions
// @Summary      Effective permissions of a user
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=[]service.PermissionResponse}
// @Router       /api/users/{id}/permissions [get]
func (h *AccessHandler) GetUserPermissions(c *gin.Context) {
	perms, err := h.accessService.GetUserPermissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}

// CheckPermission
// @Summary      Check one permission for a user
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "User ID"
// @Param        code  query     string  true  "Permission code"
// @Success      200   {object}  response.Response{data=service.PermissionCheckResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/users/{id}/permissions/check [get]
func (h *AccessHandler) CheckPermission(c *gin.Context) {
	res, err := h.accessService.CheckPermission(c.Request.Context(), c.Param("id"), c.Query("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
