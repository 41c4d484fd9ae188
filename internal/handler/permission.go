package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/service"
)

// PermissionHandler serves /permissions.
type PermissionHandler struct {
	Permissions *service.PermissionService
}

func NewPermissionHandler(p *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{Permissions: p}
}

type createPermissionReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

type updatePermissionReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Resource    *string `json:"resource"`
	Action      *string `json:"action"`
}

func (h *PermissionHandler) Create(c echo.Context) error {
	var req createPermissionReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Permissions.Create(ctx, middleware.Token(c), service.PermissionInput{
		Name:        req.Name,
		Description: req.Description,
		Resource:    req.Resource,
		Action:      req.Action,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newPermissionResp(p))
}

func (h *PermissionHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	perms, err := h.Permissions.List(ctx, middleware.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPermissionList(perms))
}

func (h *PermissionHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Permissions.Get(ctx, middleware.Token(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPermissionResp(p))
}

func (h *PermissionHandler) Update(c echo.Context) error {
	var req updatePermissionReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Permissions.Update(ctx, middleware.Token(c), c.Param("id"), service.PermissionUpdate{
		Name:        req.Name,
		Description: req.Description,
		Resource:    req.Resource,
		Action:      req.Action,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPermissionResp(p))
}

func (h *PermissionHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Permissions.Delete(ctx, middleware.Token(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
