package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
)

type PermissionInput struct {
	Name        string
	Description string
	Resource    string
	Action      string
}

// parse validates the input and returns the typed resource and action.
func (in PermissionInput) parse() (model.Resource, model.Action, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", "", apperr.Validation("name is required")
	}
	res, ok := model.ParseResource(in.Resource)
	if !ok {
		return "", "", apperr.ErrInvalidResource
	}
	act, ok := model.ParseAction(in.Action)
	if !ok {
		return "", "", apperr.ErrInvalidAction
	}
	return res, act, nil
}

type PermissionService struct {
	auth  *Authorizer
	perms PermissionStore
	now   func() time.Time
}

func NewPermissionService(auth *Authorizer, perms PermissionStore) *PermissionService {
	return &PermissionService{auth: auth, perms: perms, now: func() time.Time { return time.Now().UTC() }}
}

func (s *PermissionService) Create(ctx context.Context, token string, in PermissionInput) (*model.Permission, error) {
	if _, err := s.auth.Authorize(ctx, token, Admins); err != nil {
		return nil, err
	}
	res, act, err := in.parse()
	if err != nil {
		return nil, err
	}
	now := s.now()
	p := &model.Permission{
		ID:          model.NewID(model.TablePermission),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Resource:    res,
		Action:      act,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.perms.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PermissionService) List(ctx context.Context, token string) ([]*model.Permission, error) {
	if _, err := s.auth.Authorize(ctx, token, AnyUser); err != nil {
		return nil, err
	}
	return s.perms.FindAll(ctx)
}

func (s *PermissionService) Get(ctx context.Context, token, id string) (*model.Permission, error) {
	if _, err := s.auth.Authorize(ctx, token, AnyUser); err != nil {
		return nil, err
	}
	pid, err := parsePermissionID(id)
	if err != nil {
		return nil, err
	}
	return s.perms.FindByID(ctx, pid)
}

// PermissionUpdate is a partial update: nil fields keep their value.
type PermissionUpdate struct {
	Name        *string
	Description *string
	Resource    *string
	Action      *string
}

func (s *PermissionService) Update(ctx context.Context, token, id string, in PermissionUpdate) (*model.Permission, error) {
	if _, err := s.auth.Authorize(ctx, token, Admins); err != nil {
		return nil, err
	}
	pid, err := parsePermissionID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.perms.FindByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	next := PermissionInput{
		Name:        p.Name,
		Description: p.Description,
		Resource:    string(p.Resource),
		Action:      string(p.Action),
	}
	if in.Name != nil {
		next.Name = *in.Name
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Resource != nil {
		next.Resource = *in.Resource
	}
	if in.Action != nil {
		next.Action = *in.Action
	}
	res, act, err := next.parse()
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(next.Name)
	p.Description = strings.TrimSpace(next.Description)
	p.Resource = res
	p.Action = act
	p.UpdatedAt = s.now()
	if err := s.perms.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PermissionService) Delete(ctx context.Context, token, id string) error {
	if _, err := s.auth.Authorize(ctx, token, Admins); err != nil {
		return err
	}
	pid, err := parsePermissionID(id)
	if err != nil {
		return err
	}
	return s.perms.Delete(ctx, pid)
}

func parsePermissionID(s string) (model.ID, error) {
	id, err := model.ParseID(model.TablePermission, s)
	if err != nil {
		return model.ID{}, apperr.InvalidInput("malformed permission id")
	}
	return id, nil
}
