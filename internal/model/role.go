package model

import (
	"strings"
	"time"
)

// Role is a named grouping of permissions.  HierarchyLevel is an ordering
// the application interprets; the service only stores it.
type Role struct {
	ID             ID
	Name           string
	Description    string
	HierarchyLevel int
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Resource is the closed set of things a permission can be about.
type Resource string

const (
	ResourceOrders       Resource = "orders"
	ResourceInventory    Resource = "inventory"
	ResourceUsers        Resource = "users"
	ResourceEmployees    Resource = "employees"
	ResourceReports      Resource = "reports"
	ResourceSettings     Resource = "settings"
	ResourceMenu         Resource = "menu"
	ResourceTransactions Resource = "transactions"
)

var resources = []Resource{
	ResourceOrders, ResourceInventory, ResourceUsers, ResourceEmployees,
	ResourceReports, ResourceSettings, ResourceMenu, ResourceTransactions,
}

// ParseResource is case-insensitive.
func ParseResource(s string) (Resource, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range resources {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Action is the closed set of verbs a permission grants.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionCancel  Action = "cancel"
	ActionManage  Action = "manage"
)

var actions = []Action{
	ActionCreate, ActionRead, ActionUpdate, ActionDelete,
	ActionApprove, ActionCancel, ActionManage,
}

// ParseAction is case-insensitive.
func ParseAction(s string) (Action, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range actions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// Permission is a (resource, action) grant with a display name.
type Permission struct {
	ID          ID
	Name        string
	Description string
	Resource    Resource
	Action      Action
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Assignment is an edge of the user_roles or role_permissions relation.
type Assignment struct {
	From       ID
	To         ID
	AssignedAt time.Time
	AssignedBy ID
}
