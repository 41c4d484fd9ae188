package handler

import (
	"time"

	"github.com/iliyamo/identity-service/internal/model"
)

const dateLayout = "2006-01-02"

// ----- responses -----

type userResp struct {
	ID                  string       `json:"id"`
	Email               string       `json:"email"`
	UserType            string       `json:"user_type"`
	Status              string       `json:"status"`
	IsVerified          bool         `json:"is_verified"`
	IsActive            bool         `json:"is_active"`
	FailedLoginAttempts int          `json:"failed_login_attempts"`
	LastLogin           *time.Time   `json:"last_login"`
	LockedUntil         *time.Time   `json:"locked_until"`
	Roles               []string     `json:"roles"`
	Permissions         []string     `json:"permissions,omitempty"`
	Profile             *profileResp `json:"profile,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
}

func newUserResp(u *model.User) userResp {
	return userResp{
		ID:                  u.ID.Key,
		Email:               u.Email,
		UserType:            string(u.Type),
		Status:              string(u.Status),
		IsVerified:          u.IsVerified,
		IsActive:            u.IsActive,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LastLogin:           u.LastLogin,
		LockedUntil:         u.LockedUntil,
		Roles:               u.RoleNames(),
		Permissions:         u.PermissionNames(),
		CreatedAt:           u.CreatedAt,
	}
}

type roleResp struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	HierarchyLevel int       `json:"hierarchy_level"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func newRoleResp(r *model.Role) roleResp {
	return roleResp{
		ID:             r.ID.Key,
		Name:           r.Name,
		Description:    r.Description,
		HierarchyLevel: r.HierarchyLevel,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
	}
}

type permissionResp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPermissionResp(p *model.Permission) permissionResp {
	return permissionResp{
		ID:          p.ID.Key,
		Name:        p.Name,
		Description: p.Description,
		Resource:    string(p.Resource),
		Action:      string(p.Action),
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}

func newPermissionList(ps []*model.Permission) []permissionResp {
	out := make([]permissionResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, newPermissionResp(p))
	}
	return out
}

type profileResp struct {
	ID               string                  `json:"id"`
	UserID           string                  `json:"user_id"`
	FirstName        string                  `json:"first_name"`
	LastName         string                  `json:"last_name"`
	Phone            string                  `json:"phone"`
	Address          model.Address           `json:"address"`
	Position         *string                 `json:"position"`
	BirthDate        string                  `json:"birth_date"`
	Avatar           *string                 `json:"avatar"`
	EmergencyContact *model.EmergencyContact `json:"emergency_contact"`
	IsActive         bool                    `json:"is_active"`
	CreatedAt        time.Time               `json:"created_at"`
}

func newProfileResp(p *model.Profile) *profileResp {
	if p == nil {
		return nil
	}
	return &profileResp{
		ID:               p.ID.Key,
		UserID:           p.UserID.Key,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Phone:            p.Phone,
		Address:          p.Address,
		Position:         p.Position,
		BirthDate:        p.BirthDate.Format(dateLayout),
		Avatar:           p.Avatar,
		EmergencyContact: p.EmergencyContact,
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt,
	}
}

type messageResp struct {
	Message string `json:"message"`
}
