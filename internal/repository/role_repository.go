package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
)

const (
	roleColumns  = "id,name,description,hierarchy_level,is_active,created_at,updated_at"
	roleColumnsR = "r.id,r.name,r.description,r.hierarchy_level,r.is_active,r.created_at,r.updated_at"
)

// RoleRepo persists the 'roles' table and the user_roles edge.
type RoleRepo struct{ db DBTX }

func NewRoleRepo(db DBTX) *RoleRepo { return &RoleRepo{db: db} }

func scanRole(row rowScanner) (*model.Role, error) {
	var (
		r  model.Role
		id string
	)
	if err := row.Scan(&id, &r.Name, &r.Description, &r.HierarchyLevel, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ID = model.IDFrom(model.TableRole, id)
	return &r, nil
}

// collectRoles drains and closes rows.
func collectRoles(rows *sql.Rows) ([]*model.Role, error) {
	defer rows.Close()
	var out []*model.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database(err)
	}
	return out, nil
}

// Create inserts r.  A duplicate name yields apperr.ErrConflict.
func (repo *RoleRepo) Create(ctx context.Context, r *model.Role) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO roles ("+roleColumns+") VALUES (?,?,?,?,?,?,?)",
		r.ID.Key, r.Name, r.Description, r.HierarchyLevel, r.IsActive, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	return classify(err, nil, apperr.ErrConflict)
}

func (repo *RoleRepo) FindByID(ctx context.Context, id model.ID) (*model.Role, error) {
	r, err := scanRole(repo.db.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE id=? AND is_active=1 LIMIT 1", id.Key))
	if err != nil {
		return nil, classify(err, apperr.ErrRoleNotFound, nil)
	}
	return r, nil
}

func (repo *RoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	r, err := scanRole(repo.db.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE name=? AND is_active=1 LIMIT 1", name))
	if err != nil {
		return nil, classify(err, apperr.ErrRoleNotFound, nil)
	}
	return r, nil
}

// FindAll lists active roles, highest hierarchy level first.
func (repo *RoleRepo) FindAll(ctx context.Context) ([]*model.Role, error) {
	rows, err := repo.db.QueryContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE is_active=1 ORDER BY hierarchy_level DESC, name")
	if err != nil {
		return nil, apperr.Database(err)
	}
	return collectRoles(rows)
}

func (repo *RoleRepo) Update(ctx context.Context, r *model.Role) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE roles SET name=?, description=?, hierarchy_level=?, updated_at=? WHERE id=? AND is_active=1",
		r.Name, r.Description, r.HierarchyLevel, r.UpdatedAt.UTC(), r.ID.Key)
	if err != nil {
		return classify(err, nil, apperr.ErrConflict)
	}
	return expectRows(res, apperr.ErrRoleNotFound)
}

// Delete soft-deletes the role.
func (repo *RoleRepo) Delete(ctx context.Context, id model.ID) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE roles SET is_active=0, updated_at=? WHERE id=? AND is_active=1",
		time.Now().UTC(), id.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrRoleNotFound)
}

// AssignToUser links userID to roleID.  Assigning twice refreshes the
// assignment metadata.
func (repo *RoleRepo) AssignToUser(ctx context.Context, userID, roleID, assignedBy model.ID) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id, assigned_at, assigned_by) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE assigned_at=VALUES(assigned_at), assigned_by=VALUES(assigned_by)`,
		userID.Key, roleID.Key, time.Now().UTC(), assignedBy.Key)
	return apperr.Database(err)
}

// RemoveFromUser fails with apperr.ErrInvalidOperation when the role was not
// assigned.
func (repo *RoleRepo) RemoveFromUser(ctx context.Context, userID, roleID model.ID) error {
	res, err := repo.db.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_id=? AND role_id=?", userID.Key, roleID.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrInvalidOperation)
}
