package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/repository/memory"
	"github.com/iliyamo/identity-service/internal/service"
)

const testPassword = "correct-horse-1"

type env struct {
	store    *memory.Store
	tokens   *service.TokenService
	auth     *service.AuthService
	users    *service.UserService
	roles    *service.RoleService
	perms    *service.PermissionService
	profiles *service.ProfileService
}

func newEnv(t *testing.T, opts service.AuthOptions) *env {
	t.Helper()
	store := memory.New(0)
	tokens := service.NewTokenService(service.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
	})
	authz := service.NewAuthorizer(tokens, store.Users())
	return &env{
		store:    store,
		tokens:   tokens,
		auth:     service.NewAuthService(store.Stores(), store, tokens, nil, nil, opts),
		users:    service.NewUserService(authz, store.Users(), store.Profiles(), store.Tokens(), nil, nil),
		roles:    service.NewRoleService(authz, store.Roles(), store.Permissions(), store.Users()),
		perms:    service.NewPermissionService(authz, store.Permissions()),
		profiles: service.NewProfileService(authz, store.Profiles()),
	}
}

// seedUser inserts an account directly, bypassing registration rules, and
// gives it the default role of its type.
func (e *env) seedUser(t *testing.T, email string, typ model.UserType) *model.User {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	u := &model.User{
		ID:        model.NewID(model.TableUser),
		Email:     email,
		Status:    model.StatusActive,
		Type:      typ,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, e.store.Users().Create(ctx, u, testPassword))
	role, err := e.store.Roles().FindByName(ctx, string(typ))
	require.NoError(t, err)
	require.NoError(t, e.store.Roles().AssignToUser(ctx, u.ID, role.ID, u.ID))
	got, err := e.store.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	return got
}

func (e *env) login(t *testing.T, email string) *service.LoginResult {
	t.Helper()
	res, err := e.auth.Login(context.Background(), service.LoginInput{Email: email, Password: testPassword})
	require.NoError(t, err)
	return res
}
