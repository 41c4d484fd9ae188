package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/service"
)

// ProfileHandler serves /profile.
type ProfileHandler struct {
	Profiles *service.ProfileService
}

func NewProfileHandler(p *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{Profiles: p}
}

type createProfileReq struct {
	FirstName        string                  `json:"first_name"`
	LastName         string                  `json:"last_name"`
	Phone            string                  `json:"phone"`
	Address          model.Address           `json:"address"`
	Position         *string                 `json:"position"`
	BirthDate        string                  `json:"birth_date"` // YYYY-MM-DD
	Avatar           *string                 `json:"avatar"`
	EmergencyContact *model.EmergencyContact `json:"emergency_contact"`
}

type updateProfileReq struct {
	FirstName        *string                 `json:"first_name"`
	LastName         *string                 `json:"last_name"`
	Phone            *string                 `json:"phone"`
	Address          *model.Address          `json:"address"`
	Position         *string                 `json:"position"`
	BirthDate        *string                 `json:"birth_date"`
	Avatar           *string                 `json:"avatar"`
	EmergencyContact *model.EmergencyContact `json:"emergency_contact"`
}

func parseBirthDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Validation("birth_date is required")
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("birth_date must be YYYY-MM-DD")
	}
	return d, nil
}

func (h *ProfileHandler) Create(c echo.Context) error {
	var req createProfileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	birth, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Profiles.Create(ctx, middleware.Token(c), service.CreateProfileInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Address:          req.Address,
		Position:         req.Position,
		BirthDate:        birth,
		Avatar:           req.Avatar,
		EmergencyContact: req.EmergencyContact,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newProfileResp(p))
}

// Mine returns the caller's active profile.
func (h *ProfileHandler) Mine(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Profiles.Mine(ctx, middleware.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newProfileResp(p))
}

func (h *ProfileHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Profiles.Get(ctx, middleware.Token(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newProfileResp(p))
}

func (h *ProfileHandler) Update(c echo.Context) error {
	var req updateProfileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	in := service.UpdateProfileInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Address:          req.Address,
		Position:         req.Position,
		Avatar:           req.Avatar,
		EmergencyContact: req.EmergencyContact,
	}
	if req.BirthDate != nil {
		d, err := parseBirthDate(*req.BirthDate)
		if err != nil {
			return err
		}
		in.BirthDate = &d
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Profiles.Update(ctx, middleware.Token(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newProfileResp(p))
}

func (h *ProfileHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Profiles.Delete(ctx, middleware.Token(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
