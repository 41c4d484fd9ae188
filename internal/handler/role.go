package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/service"
)

// RoleHandler serves /roles and the role edges to users and permissions.
type RoleHandler struct {
	Roles *service.RoleService
}

func NewRoleHandler(r *service.RoleService) *RoleHandler {
	return &RoleHandler{Roles: r}
}

type createRoleReq struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	HierarchyLevel int    `json:"hierarchy_level"`
}

type updateRoleReq struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	HierarchyLevel *int    `json:"hierarchy_level"`
}

type roleUserReq struct {
	UserID string `json:"user_id"`
}

type rolePermissionReq struct {
	PermissionID string `json:"permission_id"`
}

func (h *RoleHandler) Create(c echo.Context) error {
	var req createRoleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Roles.Create(ctx, middleware.Token(c), service.RoleInput{
		Name:           req.Name,
		Description:    req.Description,
		HierarchyLevel: req.HierarchyLevel,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newRoleResp(r))
}

func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	roles, err := h.Roles.List(ctx, middleware.Token(c))
	if err != nil {
		return err
	}
	out := make([]roleResp, 0, len(roles))
	for _, r := range roles {
		out = append(out, newRoleResp(r))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RoleHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Roles.Get(ctx, middleware.Token(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newRoleResp(r))
}

func (h *RoleHandler) Update(c echo.Context) error {
	var req updateRoleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Roles.Update(ctx, middleware.Token(c), c.Param("id"), service.RoleUpdate{
		Name:           req.Name,
		Description:    req.Description,
		HierarchyLevel: req.HierarchyLevel,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newRoleResp(r))
}

func (h *RoleHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Roles.Delete(ctx, middleware.Token(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignUser grants the role in the path to the user in the body.
func (h *RoleHandler) AssignUser(c echo.Context) error {
	var req roleUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Roles.AssignToUser(ctx, middleware.Token(c), c.Param("id"), req.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "Role assigned"})
}

func (h *RoleHandler) RemoveUser(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Roles.RemoveFromUser(ctx, middleware.Token(c), c.Param("id"), c.Param("user_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RoleHandler) Permissions(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	perms, err := h.Roles.Permissions(ctx, middleware.Token(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPermissionList(perms))
}

func (h *RoleHandler) AssignPermission(c echo.Context) error {
	var req rolePermissionReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Roles.AssignPermission(ctx, middleware.Token(c), c.Param("id"), req.PermissionID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "Permission assigned"})
}

func (h *RoleHandler) RemovePermission(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Roles.RemovePermission(ctx, middleware.Token(c), c.Param("id"), c.Param("permission_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
