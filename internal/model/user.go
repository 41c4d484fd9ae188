package model

import (
	"strings"
	"time"
)

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	StatusActive              UserStatus = "active"
	StatusInactive            UserStatus = "inactive"
	StatusSuspended           UserStatus = "suspended"
	StatusPendingVerification UserStatus = "pending_verification"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusPendingVerification:
		return true
	}
	return false
}

// UserType is the coarse privilege class of an account.  Privileged
// operations gate on it rather than on role names.
type UserType string

const (
	TypeCustomer   UserType = "customer"
	TypeEmployee   UserType = "employee"
	TypeAdmin      UserType = "admin"
	TypeSuperAdmin UserType = "super_admin"
)

// ParseUserType normalises s ("Admin", "super-admin", "SUPER_ADMIN") into a
// UserType.  The second result is false for unknown values.
func ParseUserType(s string) (UserType, bool) {
	t := UserType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch t {
	case TypeCustomer, TypeEmployee, TypeAdmin, TypeSuperAdmin:
		return t, true
	case "superadmin":
		return TypeSuperAdmin, true
	}
	return "", false
}

// IsAdmin reports whether t may create staff accounts and manage others.
func (t UserType) IsAdmin() bool { return t == TypeAdmin || t == TypeSuperAdmin }

// ProfileStatus tells a freshly registered user what is expected next.
type ProfileStatus string

const (
	ProfilePendingCompletion ProfileStatus = "pending_completion"
	ProfilePendingApproval   ProfileStatus = "pending_approval"
)

// ProfileStatusFor maps the registered user type to its follow-up state:
// customers complete their own profile, staff wait for approval.
func ProfileStatusFor(t UserType) ProfileStatus {
	if t == TypeCustomer {
		return ProfilePendingCompletion
	}
	return ProfilePendingApproval
}

// User represents an account as stored in the `users` table.  Roles and
// Permissions are not columns: repositories resolve them through the
// user_roles and role_permissions edges when the user is read.
//
// Fields:
//
//	ID                  – user:<uuid>.
//	Email               – unique, lower-cased address.
//	PasswordHash        – bcrypt hash; never leaves the service.
//	Status              – lifecycle state, see UserStatus.
//	Type                – privilege class, see UserType.
//	IsVerified          – set by an administrator.
//	IsActive            – false once soft-deleted.
//	FailedLoginAttempts – consecutive failed logins since the last success.
//	LastLogin           – time of the last successful login.
//	LockedUntil         – logins are refused until this time.
//	CreatedBy           – the admin that created a staff account.
type User struct {
	ID                  ID
	Email               string
	PasswordHash        string
	Status              UserStatus
	Type                UserType
	IsVerified          bool
	IsActive            bool
	FailedLoginAttempts int
	LastLogin           *time.Time
	LockedUntil         *time.Time
	CreatedBy           *ID
	Roles               []Role
	Permissions         []Permission
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the account is inside a lockout window at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RoleNames lists the names of the resolved roles.
func (u *User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

// PermissionNames lists the names of the resolved permissions, or nil when
// none were resolved.
func (u *User) PermissionNames() []string {
	if len(u.Permissions) == 0 {
		return nil
	}
	out := make([]string, 0, len(u.Permissions))
	for _, p := range u.Permissions {
		out = append(out, p.Name)
	}
	return out
}

// NormalizeEmail lower-cases and trims an e-mail address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
