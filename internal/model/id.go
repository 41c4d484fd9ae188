package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Table names used as the first half of an ID.
const (
	TableUser         = "user"
	TableRole         = "role"
	TablePermission   = "permission"
	TableProfile      = "profile"
	TableRefreshToken = "refresh_token"
)

// ErrInvalidID is returned by ParseID for strings that are not "table:key".
var ErrInvalidID = errors.New("invalid record id")

// ID is the typed handle of any stored record: the table it lives in and
// its opaque key within that table.  Two IDs are equal when both halves
// match; the string form is "table:key".
type ID struct {
	Table string
	Key   string
}

// NewID returns an ID for table with a freshly generated random key.
func NewID(table string) ID {
	return ID{Table: table, Key: uuid.NewString()}
}

// IDFrom wraps an existing key.
func IDFrom(table, key string) ID {
	return ID{Table: table, Key: key}
}

// ParseID accepts either "table:key" or a bare key.  A bare key is bound to
// the expected table; a prefixed key must name the expected table.
func ParseID(table, s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}, ErrInvalidID
	}
	if tb, key, ok := strings.Cut(s, ":"); ok {
		if tb != table || key == "" {
			return ID{}, ErrInvalidID
		}
		return ID{Table: tb, Key: key}, nil
	}
	return ID{Table: table, Key: s}, nil
}

func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Table + ":" + id.Key
}

func (id ID) IsZero() bool { return id.Key == "" }

func (id ID) Equal(other ID) bool {
	return id.Table == other.Table && id.Key == other.Key
}
