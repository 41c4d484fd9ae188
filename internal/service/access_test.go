package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/service"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestRolesAndPermissions(t *testing.T) {
	e := newEnv(t, service.AuthOptions{})
	ctx := context.Background()
	admin := e.seedUser(t, "admin@example.com", model.TypeAdmin)
	emp := e.seedUser(t, "emp@example.com", model.TypeEmployee)
	adminTok := e.login(t, admin.Email).AccessToken
	empTok := e.login(t, emp.Email).AccessToken

	_, err := e.roles.Create(ctx, empTok, service.RoleInput{Name: "cashier"})
	require.ErrorIs(t, err, apperr.ErrUnauthorizedAccess)

	role, err := e.roles.Create(ctx, adminTok, service.RoleInput{Name: "cashier", Description: "Till", HierarchyLevel: 20})
	require.NoError(t, err)
	_, err = e.roles.Create(ctx, adminTok, service.RoleInput{Name: "cashier"})
	require.ErrorIs(t, err, apperr.ErrConflict)

	got, err := e.roles.Get(ctx, empTok, role.ID.Key)
	require.NoError(t, err)
	require.Equal(t, "Till", got.Description)

	_, err = e.perms.Create(ctx, adminTok, service.PermissionInput{Name: "x", Resource: "spaceships", Action: "read"})
	require.ErrorIs(t, err, apperr.ErrInvalidResource)
	_, err = e.perms.Create(ctx, adminTok, service.PermissionInput{Name: "x", Resource: "orders", Action: "fly"})
	require.ErrorIs(t, err, apperr.ErrInvalidAction)

	perm, err := e.perms.Create(ctx, adminTok, service.PermissionInput{Name: "orders.read", Resource: "Orders", Action: "READ"})
	require.NoError(t, err)
	require.Equal(t, model.ResourceOrders, perm.Resource)
	require.Equal(t, model.ActionRead, perm.Action)

	require.NoError(t, e.roles.AssignPermission(ctx, adminTok, role.ID.Key, perm.ID.Key))
	require.NoError(t, e.roles.AssignToUser(ctx, adminTok, role.ID.Key, emp.ID.Key))

	perms, err := e.roles.Permissions(ctx, empTok, role.ID.Key)
	require.NoError(t, err)
	require.Len(t, perms, 1)

	claims, err := e.tokens.VerifyAccessToken(e.login(t, emp.Email).AccessToken)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"employee", "cashier"}, claims.Roles)
	require.Equal(t, []string{"orders.read"}, claims.Permissions)

	require.NoError(t, e.roles.RemovePermission(ctx, adminTok, role.ID.Key, perm.ID.Key))
	require.ErrorIs(t, e.roles.RemovePermission(ctx, adminTok, role.ID.Key, perm.ID.Key), apperr.ErrInvalidOperation)
	require.NoError(t, e.roles.RemoveFromUser(ctx, adminTok, role.ID.Key, emp.ID.Key))

	name := "senior_cashier"
	updated, err := e.roles.Update(ctx, adminTok, role.ID.Key, service.RoleUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "senior_cashier", updated.Name)
	require.Equal(t, "Till", updated.Description)
	require.Equal(t, 20, updated.HierarchyLevel)

	require.NoError(t, e.roles.Delete(ctx, adminTok, role.ID.Key))
	_, err = e.roles.Get(ctx, adminTok, role.ID.Key)
	require.ErrorIs(t, err, apperr.ErrRoleNotFound)

	bogus := "teleport"
	_, err = e.perms.Update(ctx, adminTok, perm.ID.Key, service.PermissionUpdate{Action: &bogus})
	require.ErrorIs(t, err, apperr.ErrInvalidAction)
	manage := "manage"
	p2, err := e.perms.Update(ctx, adminTok, perm.ID.Key, service.PermissionUpdate{Action: &manage})
	require.NoError(t, err)
	require.Equal(t, model.ActionManage, p2.Action)
	require.Equal(t, "orders.read", p2.Name)
	require.NoError(t, e.perms.Delete(ctx, adminTok, perm.ID.Key))
	all, err := e.perms.List(ctx, empTok)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestRoleLookupErrors(t *testing.T) {
	e := newEnv(t, service.AuthOptions{})
	ctx := context.Background()
	admin := e.seedUser(t, "admin@example.com", model.TypeAdmin)
	tok := e.login(t, admin.Email).AccessToken

	_, err := e.roles.Get(ctx, tok, model.NewID(model.TableRole).Key)
	require.ErrorIs(t, err, apperr.ErrRoleNotFound)
	_, err = e.roles.Get(ctx, tok, "user:abc")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = e.perms.Get(ctx, tok, model.NewID(model.TablePermission).Key)
	require.ErrorIs(t, err, apperr.ErrPermissionNotFound)

	roles, err := e.roles.List(ctx, tok)
	require.NoError(t, err)
	require.Len(t, roles, 4)
	require.Equal(t, "super_admin", roles[0].Name)
}

func TestProfiles(t *testing.T) {
	e := newEnv(t, service.AuthOptions{})
	ctx := context.Background()
	jane := e.seedUser(t, "jane@example.com", model.TypeCustomer)
	bob := e.seedUser(t, "bob@example.com", model.TypeCustomer)
	admin := e.seedUser(t, "admin@example.com", model.TypeAdmin)
	janeTok := e.login(t, jane.Email).AccessToken
	bobTok := e.login(t, bob.Email).AccessToken
	adminTok := e.login(t, admin.Email).AccessToken

	in := service.CreateProfileInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "+44 20 7946 0958",
		Address:   model.Address{City: "London", Country: "UK"},
		BirthDate: mustDate(t, "1990-05-17"),
	}

	_, err := e.profiles.Mine(ctx, janeTok)
	require.ErrorIs(t, err, apperr.ErrProfileNotFound)

	bad := in
	bad.Phone = "call me"
	_, err = e.profiles.Create(ctx, janeTok, bad)
	require.ErrorIs(t, err, apperr.ErrInvalidPhone)

	p, err := e.profiles.Create(ctx, janeTok, in)
	require.NoError(t, err)
	require.True(t, p.UserID.Equal(jane.ID))

	_, err = e.profiles.Create(ctx, janeTok, in)
	require.ErrorIs(t, err, apperr.ErrProfileAlreadyExists)

	mine, err := e.profiles.Mine(ctx, janeTok)
	require.NoError(t, err)
	require.Equal(t, "London", mine.Address.City)

	first := "Janet"
	_, err = e.profiles.Update(ctx, bobTok, p.ID.Key, service.UpdateProfileInput{FirstName: &first})
	require.ErrorIs(t, err, apperr.ErrUnauthorizedAccess)

	upd, err := e.profiles.Update(ctx, janeTok, p.ID.Key, service.UpdateProfileInput{FirstName: &first})
	require.NoError(t, err)
	require.Equal(t, "Janet", upd.FirstName)
	require.Equal(t, "Doe", upd.LastName)

	require.ErrorIs(t, e.profiles.Delete(ctx, bobTok, p.ID.Key), apperr.ErrUnauthorizedAccess)
	require.NoError(t, e.profiles.Delete(ctx, adminTok, p.ID.Key))
	_, err = e.profiles.Get(ctx, janeTok, p.ID.Key)
	require.ErrorIs(t, err, apperr.ErrProfileNotFound)

	// A new profile may be created once the old one is gone.
	_, err = e.profiles.Create(ctx, janeTok, in)
	require.NoError(t, err)
}
