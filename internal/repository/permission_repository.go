package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
)

const (
	permissionColumns  = "id,name,description,resource,action,is_active,created_at,updated_at"
	permissionColumnsP = "p.id,p.name,p.description,p.resource,p.action,p.is_active,p.created_at,p.updated_at"
)

// PermissionRepo persists the 'permissions' table and the role_permissions
// edge.
type PermissionRepo struct{ db DBTX }

func NewPermissionRepo(db DBTX) *PermissionRepo { return &PermissionRepo{db: db} }

func scanPermission(row rowScanner) (*model.Permission, error) {
	var (
		p  model.Permission
		id string
	)
	if err := row.Scan(&id, &p.Name, &p.Description, &p.Resource, &p.Action, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = model.IDFrom(model.TablePermission, id)
	return &p, nil
}

// collectPermissions drains and closes rows.
func collectPermissions(rows *sql.Rows) ([]*model.Permission, error) {
	defer rows.Close()
	var out []*model.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database(err)
	}
	return out, nil
}

func (repo *PermissionRepo) Create(ctx context.Context, p *model.Permission) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO permissions ("+permissionColumns+") VALUES (?,?,?,?,?,?,?,?)",
		p.ID.Key, p.Name, p.Description, p.Resource, p.Action, p.IsActive, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return classify(err, nil, apperr.ErrConflict)
}

func (repo *PermissionRepo) FindByID(ctx context.Context, id model.ID) (*model.Permission, error) {
	p, err := scanPermission(repo.db.QueryRowContext(ctx,
		"SELECT "+permissionColumns+" FROM permissions WHERE id=? AND is_active=1 LIMIT 1", id.Key))
	if err != nil {
		return nil, classify(err, apperr.ErrPermissionNotFound, nil)
	}
	return p, nil
}

func (repo *PermissionRepo) FindAll(ctx context.Context) ([]*model.Permission, error) {
	rows, err := repo.db.QueryContext(ctx,
		"SELECT "+permissionColumns+" FROM permissions WHERE is_active=1 ORDER BY resource, action, name")
	if err != nil {
		return nil, apperr.Database(err)
	}
	return collectPermissions(rows)
}

func (repo *PermissionRepo) Update(ctx context.Context, p *model.Permission) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE permissions SET name=?, description=?, resource=?, action=?, updated_at=? WHERE id=? AND is_active=1",
		p.Name, p.Description, p.Resource, p.Action, p.UpdatedAt.UTC(), p.ID.Key)
	if err != nil {
		return classify(err, nil, apperr.ErrConflict)
	}
	return expectRows(res, apperr.ErrPermissionNotFound)
}

func (repo *PermissionRepo) Delete(ctx context.Context, id model.ID) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE permissions SET is_active=0, updated_at=? WHERE id=? AND is_active=1",
		time.Now().UTC(), id.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrPermissionNotFound)
}

// FindRolePermissions lists the active permissions granted to roleID.
func (repo *PermissionRepo) FindRolePermissions(ctx context.Context, roleID model.ID) ([]*model.Permission, error) {
	rows, err := repo.db.QueryContext(ctx,
		`SELECT `+permissionColumnsP+`
		   FROM permissions p JOIN role_permissions rp ON rp.permission_id = p.id
		  WHERE rp.role_id=? AND p.is_active=1
		  ORDER BY p.name`, roleID.Key)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return collectPermissions(rows)
}

func (repo *PermissionRepo) AssignToRole(ctx context.Context, roleID, permissionID, assignedBy model.ID) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO role_permissions (role_id, permission_id, assigned_at, assigned_by) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE assigned_at=VALUES(assigned_at), assigned_by=VALUES(assigned_by)`,
		roleID.Key, permissionID.Key, time.Now().UTC(), assignedBy.Key)
	return apperr.Database(err)
}

func (repo *PermissionRepo) RemoveFromRole(ctx context.Context, roleID, permissionID model.ID) error {
	res, err := repo.db.ExecContext(ctx,
		"DELETE FROM role_permissions WHERE role_id=? AND permission_id=?", roleID.Key, permissionID.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrInvalidOperation)
}
