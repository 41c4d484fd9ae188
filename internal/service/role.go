package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
)

type RoleInput struct {
	Name           string
	Description    string
	HierarchyLevel int
}

// RoleService manages roles, their holders and their permissions.  Reads
// need any authenticated user, writes an admin.
type RoleService struct {
	auth  *Authorizer
	roles RoleStore
	perms PermissionStore
	users UserStore
	now   func() time.Time
}

func NewRoleService(auth *Authorizer, roles RoleStore, perms PermissionStore, users UserStore) *RoleService {
	return &RoleService{
		auth:  auth,
		roles: roles,
		perms: perms,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (in RoleInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name is required")
	}
	if in.HierarchyLevel < 0 {
		return apperr.Validation("hierarchy_level must not be negative")
	}
	return nil
}

func (s *RoleService) Create(ctx context.Context, token string, in RoleInput) (*model.Role, error) {
	if _, err := s.auth.Authorize(ctx, token, Admins); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	r := &model.Role{
		ID:             model.NewID(model.TableRole),
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		HierarchyLevel: in.HierarchyLevel,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.roles.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RoleService) List(ctx context.Context, token string) ([]*model.Role, error) {
	if _, err := s.auth.Authorize(ctx, token, AnyUser); err != nil {
		return nil, err
	}
	return s.roles.FindAll(ctx)
}

func (s *RoleService) Get(ctx context.Context, token, id string) (*model.Role, error) {
	if _, err := s.auth.Authorize(ctx, token, AnyUser); err != nil {
		return nil, err
	}
	rid, err := parseRoleID(id)
	if err != nil {
		return nil, err
	}
	return s.roles.FindByID(ctx, rid)
}

// RoleUpdate is a partial update: nil fields keep their value.
type RoleUpdate struct {
	Name           *string
	Description    *string
	HierarchyLevel *int
}

func (s *RoleService) Update(ctx context.Context, token, id string, in RoleUpdate) (*model.Role, error) {
	if _, err := s.auth.Authorize(ctx, token, Admins); err != nil {
		return nil, err
	}
	rid, err := parseRoleID(id)
	if err != nil {
		return nil, err
	}
	r, err := s.roles.FindByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	next := RoleInput{Name: r.Name, Description: r.Description, HierarchyLevel: r.HierarchyLevel}
	if in.Name != nil {
		next.Name = *in.Name
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.HierarchyLevel != nil {
		next.HierarchyLevel = *in.HierarchyLevel
	}
	if err := next.validate(); err != nil {
		return nil, err
	}
	r.Name = strings.TrimSpace(next.Name)
	r.Description = strings.TrimSpace(next.Description)
	r.HierarchyLevel = next.HierarchyLevel
	r.UpdatedAt = s.now()
	if err := s.roles.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete deactivates a role.  Its edges stay but are ignored by reads.
func (s *RoleService) Delete(ctx context.Context, token, id string) error {
	if _, err := s.auth.Authorize(ctx, token, Admins); err != nil {
		return err
	}
	rid, err := parseRoleID(id)
	if err != nil {
		return err
	}
	return s.roles.Delete(ctx, rid)
}

func (s *RoleService) AssignToUser(ctx context.Context, token, roleID, userID string) error {
	actor, err := s.auth.Authorize(ctx, token, Admins)
	if err != nil {
		return err
	}
	role, user, err := s.roleAndUser(ctx, roleID, userID)
	if err != nil {
		return err
	}
	return s.roles.AssignToUser(ctx, user.ID, role.ID, actor.ID)
}

func (s *RoleService) RemoveFromUser(ctx context.Context, token, roleID, userID string) error {
	if _, err := s.auth.Authorize(ctx, token, Admins); err != nil {
		return err
	}
	role, user, err := s.roleAndUser(ctx, roleID, userID)
	if err != nil {
		return err
	}
	return s.roles.RemoveFromUser(ctx, user.ID, role.ID)
}

func (s *RoleService) Permissions(ctx context.Context, token, roleID string) ([]*model.Permission, error) {
	if _, err := s.auth.Authorize(ctx, token, AnyUser); err != nil {
		return nil, err
	}
	rid, err := parseRoleID(roleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.roles.FindByID(ctx, rid); err != nil {
		return nil, err
	}
	return s.perms.FindRolePermissions(ctx, rid)
}

func (s *RoleService) AssignPermission(ctx context.Context, token, roleID, permissionID string) error {
	actor, err := s.auth.Authorize(ctx, token, Admins)
	if err != nil {
		return err
	}
	role, perm, err := s.roleAndPermission(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	return s.perms.AssignToRole(ctx, role.ID, perm.ID, actor.ID)
}

func (s *RoleService) RemovePermission(ctx context.Context, token, roleID, permissionID string) error {
	if _, err := s.auth.Authorize(ctx, token, Admins); err != nil {
		return err
	}
	role, perm, err := s.roleAndPermission(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	return s.perms.RemoveFromRole(ctx, role.ID, perm.ID)
}

func (s *RoleService) roleAndUser(ctx context.Context, roleID, userID string) (*model.Role, *model.User, error) {
	rid, err := parseRoleID(roleID)
	if err != nil {
		return nil, nil, err
	}
	uid, err := model.ParseID(model.TableUser, userID)
	if err != nil {
		return nil, nil, apperr.InvalidInput("malformed user id")
	}
	role, err := s.roles.FindByID(ctx, rid)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	return role, user, nil
}

func (s *RoleService) roleAndPermission(ctx context.Context, roleID, permissionID string) (*model.Role, *model.Permission, error) {
	rid, err := parseRoleID(roleID)
	if err != nil {
		return nil, nil, err
	}
	pid, err := parsePermissionID(permissionID)
	if err != nil {
		return nil, nil, err
	}
	role, err := s.roles.FindByID(ctx, rid)
	if err != nil {
		return nil, nil, err
	}
	perm, err := s.perms.FindByID(ctx, pid)
	if err != nil {
		return nil, nil, err
	}
	return role, perm, nil
}

func parseRoleID(s string) (model.ID, error) {
	id, err := model.ParseID(model.TableRole, s)
	if err != nil {
		return model.ID{}, apperr.InvalidInput("malformed role id")
	}
	return id, nil
}
