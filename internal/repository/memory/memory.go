// Package memory is an in-process implementation of the service stores.  It
// mirrors the MySQL repositories closely enough for use-case and handler
// tests: soft deletes, active-only reads, unique e-mails and role names,
// and transactional rollback.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/service"
	"github.com/iliyamo/identity-service/internal/utils"
)

type edge struct{ from, to string }

type state struct {
	users     map[string]model.User
	roles     map[string]model.Role
	perms     map[string]model.Permission
	userRoles map[edge]model.Assignment
	rolePerms map[edge]model.Assignment
	profiles  map[string]model.Profile
	tokens    map[string]model.RefreshToken
}

func (st state) clone() state {
	c := state{
		users:     make(map[string]model.User, len(st.users)),
		roles:     make(map[string]model.Role, len(st.roles)),
		perms:     make(map[string]model.Permission, len(st.perms)),
		userRoles: make(map[edge]model.Assignment, len(st.userRoles)),
		rolePerms: make(map[edge]model.Assignment, len(st.rolePerms)),
		profiles:  make(map[string]model.Profile, len(st.profiles)),
		tokens:    make(map[string]model.RefreshToken, len(st.tokens)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.roles {
		c.roles[k] = v
	}
	for k, v := range st.perms {
		c.perms[k] = v
	}
	for k, v := range st.userRoles {
		c.userRoles[k] = v
	}
	for k, v := range st.rolePerms {
		c.rolePerms[k] = v
	}
	for k, v := range st.profiles {
		c.profiles[k] = v
	}
	for k, v := range st.tokens {
		c.tokens[k] = v
	}
	return c
}

// Store holds every table in memory.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   state
	cost int

	// FailNextTokenCreate makes the next TokenStore.Create fail; tests use
	// it to observe transactional rollback.
	FailNextTokenCreate bool
}

// New returns a store seeded with the default role of every user type.
// bcryptCost below bcrypt's minimum is raised to it, so tests can pass 0.
func New(bcryptCost int) *Store {
	if bcryptCost < 4 {
		bcryptCost = 4
	}
	s := &Store{cost: bcryptCost, st: state{}.clone()}
	now := time.Now().UTC()
	for i, t := range []model.UserType{model.TypeSuperAdmin, model.TypeAdmin, model.TypeEmployee, model.TypeCustomer} {
		r := model.Role{
			ID:             model.NewID(model.TableRole),
			Name:           string(t),
			HierarchyLevel: 100 - i*30,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.st.roles[r.ID.Key] = r
	}
	return s
}

func (s *Store) Users() *Users             { return &Users{s} }
func (s *Store) Roles() *Roles             { return &Roles{s} }
func (s *Store) Permissions() *Permissions { return &Permissions{s} }
func (s *Store) Profiles() *Profiles       { return &Profiles{s} }
func (s *Store) Tokens() *Tokens           { return &Tokens{s} }

func (s *Store) Stores() service.Stores {
	return service.Stores{Users: s.Users(), Roles: s.Roles(), Tokens: s.Tokens()}
}

// InTx runs fn and restores the previous state if it fails.  Transactions
// are serialized against each other.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, st service.Stores) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(ctx, s.Stores()); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Users implements service.UserStore.
type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, user *model.User, password string) error {
	hash, err := utils.HashPassword(password, u.s.cost)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, err)
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, x := range u.s.st.users {
		if x.Email == user.Email {
			return apperr.ErrUserAlreadyExists
		}
	}
	user.PasswordHash = hash
	row := *user
	row.Roles, row.Permissions = nil, nil
	u.s.st.users[user.ID.Key] = row
	return nil
}

func (u *Users) FindByID(_ context.Context, id model.ID) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	row, ok := u.s.st.users[id.Key]
	if !ok || !row.IsActive {
		return nil, apperr.ErrUserNotFound
	}
	return u.s.withAccess(row), nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, row := range u.s.st.users {
		if row.Email == email {
			c := row
			return &c, nil
		}
	}
	return nil, apperr.ErrUserNotFound
}

func (u *Users) FindAll(_ context.Context) ([]*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var out []*model.User
	for _, row := range u.s.st.users {
		if row.IsActive {
			out = append(out, u.s.withAccess(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Key < out[j].ID.Key
	})
	return out, nil
}

func (u *Users) Authenticate(_ context.Context, email, password string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	u.s.mu.Lock()
	var (
		row   model.User
		found bool
	)
	for _, x := range u.s.st.users {
		if x.Email == email && x.IsActive {
			row, found = x, true
			break
		}
	}
	u.s.mu.Unlock()

	if !found {
		utils.BurnPasswordCheck(password, u.s.cost)
		return nil, apperr.ErrInvalidCredentials
	}
	if !utils.VerifyPassword(row.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return u.s.withAccess(row), nil
}

func (u *Users) RecordLoginFailure(_ context.Context, email string, at time.Time, maxAttempts int, lockFor time.Duration) error {
	email = model.NormalizeEmail(email)
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	now := at.UTC()
	for k, row := range u.s.st.users {
		if row.Email != email || !row.IsActive {
			continue
		}
		if row.LockedUntil != nil && !now.Before(*row.LockedUntil) {
			row.FailedLoginAttempts = 0
			row.LockedUntil = nil
		}
		row.FailedLoginAttempts++
		if row.FailedLoginAttempts >= maxAttempts {
			until := now.Add(lockFor)
			row.LockedUntil = &until
		}
		row.UpdatedAt = now
		u.s.st.users[k] = row
	}
	return nil
}

func (u *Users) RecordLoginSuccess(_ context.Context, id model.ID, at time.Time) error {
	return u.update(id, false, func(row *model.User) {
		at := at.UTC()
		row.FailedLoginAttempts = 0
		row.LockedUntil = nil
		row.LastLogin = &at
	})
}

func (u *Users) ChangePassword(_ context.Context, id model.ID, password string) error {
	hash, err := utils.HashPassword(password, u.s.cost)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, err)
	}
	return u.update(id, true, func(row *model.User) { row.PasswordHash = hash })
}

func (u *Users) SetVerificationStatus(_ context.Context, id model.ID, verified bool) error {
	return u.update(id, true, func(row *model.User) {
		row.IsVerified = verified
		if verified {
			row.Status = model.StatusActive
		}
	})
}

func (u *Users) UpdateFailedLoginAttempts(_ context.Context, id model.ID, attempts int) error {
	return u.update(id, true, func(row *model.User) {
		row.FailedLoginAttempts = attempts
		if attempts == 0 {
			row.LockedUntil = nil
		}
	})
}

func (u *Users) Delete(_ context.Context, id model.ID) error {
	return u.update(id, true, func(row *model.User) {
		row.IsActive = false
		row.Status = model.StatusInactive
	})
}

// update applies fn to an active user.  With mustExist a missing user is
// ErrUserNotFound; otherwise it is ignored like a zero-row UPDATE.
func (u *Users) update(id model.ID, mustExist bool, fn func(*model.User)) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	row, ok := u.s.st.users[id.Key]
	if !ok || !row.IsActive {
		if mustExist {
			return apperr.ErrUserNotFound
		}
		return nil
	}
	fn(&row)
	row.UpdatedAt = time.Now().UTC()
	u.s.st.users[id.Key] = row
	return nil
}

// withAccess copies row and resolves its active roles and permissions.
// Callers hold s.mu.
func (s *Store) withAccess(row model.User) *model.User {
	u := row
	u.Roles = []model.Role{}
	u.Permissions = nil
	seen := map[string]bool{}
	for e := range s.st.userRoles {
		if e.from != row.ID.Key {
			continue
		}
		r, ok := s.st.roles[e.to]
		if !ok || !r.IsActive {
			continue
		}
		u.Roles = append(u.Roles, r)
		for pe := range s.st.rolePerms {
			if pe.from != r.ID.Key || seen[pe.to] {
				continue
			}
			if p, ok := s.st.perms[pe.to]; ok && p.IsActive {
				seen[pe.to] = true
				u.Permissions = append(u.Permissions, p)
			}
		}
	}
	sort.Slice(u.Roles, func(i, j int) bool {
		if u.Roles[i].HierarchyLevel != u.Roles[j].HierarchyLevel {
			return u.Roles[i].HierarchyLevel > u.Roles[j].HierarchyLevel
		}
		return u.Roles[i].Name < u.Roles[j].Name
	})
	sort.Slice(u.Permissions, func(i, j int) bool { return u.Permissions[i].Name < u.Permissions[j].Name })
	return &u
}

// Roles implements service.RoleStore.
type Roles struct{ s *Store }

func (r *Roles) Create(_ context.Context, role *model.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.st.roles {
		if x.Name == role.Name {
			return apperr.ErrConflict
		}
	}
	r.s.st.roles[role.ID.Key] = *role
	return nil
}

func (r *Roles) FindByID(_ context.Context, id model.ID) (*model.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.st.roles[id.Key]
	if !ok || !row.IsActive {
		return nil, apperr.ErrRoleNotFound
	}
	return &row, nil
}

func (r *Roles) FindByName(_ context.Context, name string) (*model.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.st.roles {
		if row.Name == name && row.IsActive {
			c := row
			return &c, nil
		}
	}
	return nil, apperr.ErrRoleNotFound
}

func (r *Roles) FindAll(_ context.Context) ([]*model.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Role
	for _, row := range r.s.st.roles {
		if row.IsActive {
			c := row
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HierarchyLevel != out[j].HierarchyLevel {
			return out[i].HierarchyLevel > out[j].HierarchyLevel
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Roles) Update(_ context.Context, role *model.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.st.roles[role.ID.Key]
	if !ok || !row.IsActive {
		return apperr.ErrRoleNotFound
	}
	for k, x := range r.s.st.roles {
		if k != role.ID.Key && x.Name == role.Name {
			return apperr.ErrConflict
		}
	}
	r.s.st.roles[role.ID.Key] = *role
	return nil
}

func (r *Roles) Delete(_ context.Context, id model.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.st.roles[id.Key]
	if !ok || !row.IsActive {
		return apperr.ErrRoleNotFound
	}
	row.IsActive = false
	row.UpdatedAt = time.Now().UTC()
	r.s.st.roles[id.Key] = row
	return nil
}

func (r *Roles) AssignToUser(_ context.Context, userID, roleID, assignedBy model.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.userRoles[edge{userID.Key, roleID.Key}] = model.Assignment{
		From: userID, To: roleID, AssignedAt: time.Now().UTC(), AssignedBy: assignedBy,
	}
	return nil
}

func (r *Roles) RemoveFromUser(_ context.Context, userID, roleID model.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e := edge{userID.Key, roleID.Key}
	if _, ok := r.s.st.userRoles[e]; !ok {
		return apperr.ErrInvalidOperation
	}
	delete(r.s.st.userRoles, e)
	return nil
}

// Permissions implements service.PermissionStore.
type Permissions struct{ s *Store }

func (p *Permissions) Create(_ context.Context, perm *model.Permission) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, x := range p.s.st.perms {
		if x.Name == perm.Name {
			return apperr.ErrConflict
		}
	}
	p.s.st.perms[perm.ID.Key] = *perm
	return nil
}

func (p *Permissions) FindByID(_ context.Context, id model.ID) (*model.Permission, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.st.perms[id.Key]
	if !ok || !row.IsActive {
		return nil, apperr.ErrPermissionNotFound
	}
	return &row, nil
}

func (p *Permissions) FindAll(_ context.Context) ([]*model.Permission, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	var out []*model.Permission
	for _, row := range p.s.st.perms {
		if row.IsActive {
			c := row
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *Permissions) Update(_ context.Context, perm *model.Permission) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.st.perms[perm.ID.Key]
	if !ok || !row.IsActive {
		return apperr.ErrPermissionNotFound
	}
	for k, x := range p.s.st.perms {
		if k != perm.ID.Key && x.Name == perm.Name {
			return apperr.ErrConflict
		}
	}
	p.s.st.perms[perm.ID.Key] = *perm
	return nil
}

func (p *Permissions) Delete(_ context.Context, id model.ID) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.st.perms[id.Key]
	if !ok || !row.IsActive {
		return apperr.ErrPermissionNotFound
	}
	row.IsActive = false
	row.UpdatedAt = time.Now().UTC()
	p.s.st.perms[id.Key] = row
	return nil
}

func (p *Permissions) FindRolePermissions(_ context.Context, roleID model.ID) ([]*model.Permission, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	var out []*model.Permission
	for e := range p.s.st.rolePerms {
		if e.from != roleID.Key {
			continue
		}
		if row, ok := p.s.st.perms[e.to]; ok && row.IsActive {
			c := row
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *Permissions) AssignToRole(_ context.Context, roleID, permissionID, assignedBy model.ID) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.st.rolePerms[edge{roleID.Key, permissionID.Key}] = model.Assignment{
		From: roleID, To: permissionID, AssignedAt: time.Now().UTC(), AssignedBy: assignedBy,
	}
	return nil
}

func (p *Permissions) RemoveFromRole(_ context.Context, roleID, permissionID model.ID) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	e := edge{roleID.Key, permissionID.Key}
	if _, ok := p.s.st.rolePerms[e]; !ok {
		return apperr.ErrInvalidOperation
	}
	delete(p.s.st.rolePerms, e)
	return nil
}

// Profiles implements service.ProfileStore.
type Profiles struct{ s *Store }

func (p *Profiles) Create(_ context.Context, prof *model.Profile) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if prof.IsActive {
		for _, row := range p.s.st.profiles {
			if row.IsActive && row.UserID.Key == prof.UserID.Key {
				return apperr.ErrProfileAlreadyExists
			}
		}
	}
	p.s.st.profiles[prof.ID.Key] = *prof
	return nil
}

func (p *Profiles) Update(_ context.Context, prof *model.Profile) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.st.profiles[prof.ID.Key]
	if !ok || !row.IsActive {
		return apperr.ErrProfileNotFound
	}
	p.s.st.profiles[prof.ID.Key] = *prof
	return nil
}

func (p *Profiles) Delete(_ context.Context, id model.ID) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.st.profiles[id.Key]
	if !ok || !row.IsActive {
		return apperr.ErrProfileNotFound
	}
	row.IsActive = false
	row.UpdatedAt = time.Now().UTC()
	p.s.st.profiles[id.Key] = row
	return nil
}

func (p *Profiles) FindByID(_ context.Context, id model.ID) (*model.Profile, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.st.profiles[id.Key]
	if !ok || !row.IsActive {
		return nil, apperr.ErrProfileNotFound
	}
	return &row, nil
}

func (p *Profiles) FindByUserID(_ context.Context, userID model.ID) (*model.Profile, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	var best *model.Profile
	for _, row := range p.s.st.profiles {
		if row.UserID.Key != userID.Key || !row.IsActive {
			continue
		}
		if best == nil || row.CreatedAt.After(best.CreatedAt) {
			c := row
			best = &c
		}
	}
	if best == nil {
		return nil, apperr.ErrProfileNotFound
	}
	return best, nil
}

// Tokens implements service.TokenStore.
type Tokens struct{ s *Store }

func (t *Tokens) Create(_ context.Context, tok *model.RefreshToken) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.FailNextTokenCreate {
		t.s.FailNextTokenCreate = false
		return apperr.ErrDatabase
	}
	for _, x := range t.s.st.tokens {
		if x.TokenHash == tok.TokenHash {
			return apperr.ErrConflict
		}
	}
	row := *tok
	row.Token = ""
	t.s.st.tokens[tok.ID.Key] = row
	return nil
}

func (t *Tokens) FindByHash(_ context.Context, hash string) (*model.RefreshToken, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, row := range t.s.st.tokens {
		if row.TokenHash == hash {
			c := row
			return &c, nil
		}
	}
	return nil, apperr.ErrInvalidToken
}

func (t *Tokens) Consume(_ context.Context, id model.ID) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	row, ok := t.s.st.tokens[id.Key]
	if !ok || row.Used || row.Invalidated {
		return apperr.ErrInvalidToken
	}
	row.Used, row.Invalidated = true, true
	t.s.st.tokens[id.Key] = row
	return nil
}

func (t *Tokens) InvalidateAllForUser(_ context.Context, userID model.ID) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var n int64
	for k, row := range t.s.st.tokens {
		if row.UserID.Key == userID.Key && !row.Invalidated {
			row.Invalidated = true
			t.s.st.tokens[k] = row
			n++
		}
	}
	return n, nil
}

func (t *Tokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var n int64
	for k, row := range t.s.st.tokens {
		if row.ExpiresAt.Before(before) {
			delete(t.s.st.tokens, k)
			n++
		}
	}
	return n, nil
}

// Count returns how many refresh tokens are stored.
func (t *Tokens) Count() int {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return len(t.s.st.tokens)
}
