package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/service"
)

// UserHandler serves /users.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(u *service.UserService) *UserHandler {
	return &UserHandler{Users: u}
}

type verificationReq struct {
	UserID     string `json:"user_id"`
	IsVerified *bool  `json:"is_verified"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
}

type disableReq struct {
	UserID string `json:"user_id"`
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Users.GetAll(ctx, middleware.Token(c))
	if err != nil {
		return err
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		r := newUserResp(u.User)
		r.Profile = newProfileResp(u.Profile)
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, out)
}

// SetVerification marks a user verified or unverified.  Without user_id it
// targets the caller.
func (h *UserHandler) SetVerification(c echo.Context) error {
	var req verificationReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.IsVerified == nil {
		return apperr.Validation("is_verified is required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.SetVerification(ctx, middleware.Token(c), req.UserID, *req.IsVerified)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newUserResp(u))
}

func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	err := h.Users.ChangePassword(ctx, middleware.Token(c), service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "Password changed"})
}

func (h *UserHandler) Disable(c echo.Context) error {
	var req disableReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Users.Disable(ctx, middleware.Token(c), req.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "User disabled"})
}
