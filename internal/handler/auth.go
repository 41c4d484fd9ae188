package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/service"
)

// AuthHandler serves /auth: register, login, logout and refresh.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserType  string `json:"user_type"` // customer | employee | admin | super_admin
	CreatedBy string `json:"created_by"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type registerResp struct {
	User                  userResp  `json:"user"`
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	ProfileStatus         string    `json:"profile_status"`
}

type loginResp struct {
	UserID                string    `json:"user_id"`
	Email                 string    `json:"email"`
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

func newLoginResp(r *service.LoginResult) loginResp {
	return loginResp{
		UserID:                r.UserID,
		Email:                 r.Email,
		AccessToken:           r.AccessToken,
		AccessTokenExpiresAt:  r.AccessTokenExpiresAt,
		RefreshToken:          r.RefreshToken,
		RefreshTokenExpiresAt: r.RefreshTokenExpiresAt,
	}
}

// Register creates an account and returns it with a fresh token pair.  An
// empty user_type registers a customer.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	userType := model.UserType(strings.TrimSpace(req.UserType))
	if userType == "" {
		userType = model.TypeCustomer
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		UserType:  userType,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, registerResp{
		User:                  newUserResp(res.User),
		AccessToken:           res.AccessToken.Token,
		AccessTokenExpiresAt:  res.AccessToken.ExpiresAt,
		RefreshToken:          res.RefreshToken.Token,
		RefreshTokenExpiresAt: res.RefreshToken.ExpiresAt,
		ProfileStatus:         string(res.ProfileStatus),
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newLoginResp(res))
}

// Logout ends every session of the bearer's owner.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, middleware.Token(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Message: "Logged out"})
}

// Refresh rotates a refresh token into a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newLoginResp(res))
}
