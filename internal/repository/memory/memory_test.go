package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/service"
)

func seedAdmin(t *testing.T, s *Store) (*model.User, string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	u := &model.User{
		ID:        model.NewID(model.TableUser),
		Email:     "admin@example.com",
		Status:    model.StatusActive,
		Type:      model.TypeAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Users().Create(ctx, u, "correct-horse-1"))

	tokens := service.NewTokenService(service.TokenConfig{AccessSecret: "access-secret"})
	tok, err := tokens.GenerateAccessToken(u)
	require.NoError(t, err)
	return u, tok.Token
}

func profileInput() service.CreateProfileInput {
	return service.CreateProfileInput{
		FirstName: "Ada",
		LastName:  "Admin",
		Phone:     "+44 20 7946 0958",
		Address:   model.Address{City: "London", Country: "UK"},
		BirthDate: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
	}
}

func TestDeleteKeepsTheRecord(t *testing.T) {
	ctx := context.Background()
	s := New(0)
	_, tok := seedAdmin(t, s)

	authz := service.NewAuthorizer(service.NewTokenService(service.TokenConfig{AccessSecret: "access-secret"}), s.Users())
	roles := service.NewRoleService(authz, s.Roles(), s.Permissions(), s.Users())
	perms := service.NewPermissionService(authz, s.Permissions())
	profiles := service.NewProfileService(authz, s.Profiles())

	role, err := roles.Create(ctx, tok, service.RoleInput{Name: "cashier"})
	require.NoError(t, err)
	perm, err := perms.Create(ctx, tok, service.PermissionInput{Name: "orders.read", Resource: "orders", Action: "read"})
	require.NoError(t, err)
	prof, err := profiles.Create(ctx, tok, profileInput())
	require.NoError(t, err)

	require.NoError(t, roles.Delete(ctx, tok, role.ID.Key))
	require.NoError(t, perms.Delete(ctx, tok, perm.ID.Key))
	require.NoError(t, profiles.Delete(ctx, tok, prof.ID.Key))

	_, err = roles.Get(ctx, tok, role.ID.Key)
	require.ErrorIs(t, err, apperr.ErrRoleNotFound)
	_, err = perms.Get(ctx, tok, perm.ID.Key)
	require.ErrorIs(t, err, apperr.ErrPermissionNotFound)
	_, err = profiles.Get(ctx, tok, prof.ID.Key)
	require.ErrorIs(t, err, apperr.ErrProfileNotFound)

	s.mu.Lock()
	defer s.mu.Unlock()
	storedRole, ok := s.st.roles[role.ID.Key]
	require.True(t, ok)
	require.False(t, storedRole.IsActive)
	require.Equal(t, "cashier", storedRole.Name)

	storedPerm, ok := s.st.perms[perm.ID.Key]
	require.True(t, ok)
	require.False(t, storedPerm.IsActive)

	storedProf, ok := s.st.profiles[prof.ID.Key]
	require.True(t, ok)
	require.False(t, storedProf.IsActive)
	require.Equal(t, "Ada", storedProf.FirstName)
}

func TestProfilesOneActivePerUser(t *testing.T) {
	ctx := context.Background()
	s := New(0)
	owner := model.NewID(model.TableUser)
	newProfile := func() *model.Profile {
		return &model.Profile{ID: model.NewID(model.TableProfile), UserID: owner, IsActive: true, CreatedAt: time.Now()}
	}

	first := newProfile()
	require.NoError(t, s.Profiles().Create(ctx, first))
	require.ErrorIs(t, s.Profiles().Create(ctx, newProfile()), apperr.ErrProfileAlreadyExists)

	require.NoError(t, s.Profiles().Delete(ctx, first.ID))
	require.NoError(t, s.Profiles().Create(ctx, newProfile()))
}

func TestConcurrentProfileCreatesLeaveOneActive(t *testing.T) {
	ctx := context.Background()
	s := New(0)
	admin, tok := seedAdmin(t, s)
	authz := service.NewAuthorizer(service.NewTokenService(service.TokenConfig{AccessSecret: "access-secret"}), s.Users())
	profiles := service.NewProfileService(authz, s.Profiles())

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = profiles.Create(ctx, tok, profileInput())
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, apperr.ErrProfileAlreadyExists)
	}
	require.Equal(t, 1, ok)

	s.mu.Lock()
	defer s.mu.Unlock()
	var active int
	for _, p := range s.st.profiles {
		if p.UserID.Key == admin.ID.Key && p.IsActive {
			active++
		}
	}
	require.Equal(t, 1, active)
}
