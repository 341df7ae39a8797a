package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/rental-portal/internal/model"
)

// PermissionRepo manages the 'permissions' catalog.
type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

const permissionColumns = "id,name,module,action,description,is_system"

// List returns the full catalog ordered by id.
func (r *PermissionRepo) List(ctx context.Context) ([]model.Permission, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+permissionColumns+" FROM permissions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID returns ErrNotFound for unknown ids.
func (r *PermissionRepo) GetByID(ctx context.Context, id uint64) (model.Permission, error) {
	p, err := scanPermission(r.DB.QueryRowContext(ctx,
		"SELECT "+permissionColumns+" FROM permissions WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Permission{}, ErrNotFound
	}
	return p, err
}

// Create inserts a non-system permission.  A duplicate module/action pair
// yields ErrConflict.
func (r *PermissionRepo) Create(ctx context.Context, p model.Permission) (model.Permission, error) {
	return r.insert(ctx, p, false)
}

// CreateSystem inserts a system permission.  Only the seeder calls it.
func (r *PermissionRepo) CreateSystem(ctx context.Context, p model.Permission) (model.Permission, error) {
	return r.insert(ctx, p, true)
}

func (r *PermissionRepo) insert(ctx context.Context, p model.Permission, system bool) (model.Permission, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO permissions (name, module, action, description, is_system) VALUES (?,?,?,?,?)",
		p.Name, p.Module, p.Action, nullString(p.Description), system)
	if err != nil {
		if isDuplicate(err) {
			return model.Permission{}, ErrConflict
		}
		return model.Permission{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Permission{}, err
	}
	p.ID = uint64(id)
	p.IsSystemPermission = system
	return p, nil
}

// Update rewrites name, module, action and description.  System
// permissions are immutable.
func (r *PermissionRepo) Update(ctx context.Context, p model.Permission) (model.Permission, error) {
	cur, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return model.Permission{}, err
	}
	if cur.IsSystemPermission {
		return model.Permission{}, ErrForbidden
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE permissions SET name=?, module=?, action=?, description=? WHERE id=?",
		p.Name, p.Module, p.Action, nullString(p.Description), p.ID); err != nil {
		if isDuplicate(err) {
			return model.Permission{}, ErrConflict
		}
		return model.Permission{}, err
	}
	p.IsSystemPermission = false
	return p, nil
}

// Delete removes a non-system permission and its role grants in one
// transaction.
func (r *PermissionRepo) Delete(ctx context.Context, id uint64) error {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur.IsSystemPermission {
		return ErrForbidden
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE permission_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM permissions WHERE id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func scanPermission(s scanner) (model.Permission, error) {
	var (
		p    model.Permission
		desc sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Module, &p.Action, &desc, &p.IsSystemPermission); err != nil {
		return model.Permission{}, err
	}
	p.Description = desc.String
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
