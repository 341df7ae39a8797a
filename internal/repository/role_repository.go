package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/rental-portal/internal/model"
)

// RoleRepo manages roles, their permission grants and user assignments.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// roleSelect joins each role with its permissions.  Roles without grants
// come back once with NULL permission columns.
const roleSelect = `SELECT r.id, r.name, r.description, r.is_system,
       p.id, p.name, p.module, p.action, p.description, p.is_system
  FROM roles r
  LEFT JOIN role_permissions rp ON rp.role_id = r.id
  LEFT JOIN permissions p ON p.id = rp.permission_id`

// List returns every role with nested permissions, ordered by id.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	return r.query(ctx, roleSelect+" ORDER BY r.id, p.id")
}

// ForUser returns the roles assigned to a user, with nested permissions.
func (r *RoleRepo) ForUser(ctx context.Context, userID uint64) ([]model.Role, error) {
	return r.query(ctx, roleSelect+
		" JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = ? ORDER BY r.id, p.id", userID)
}

// GetByID returns ErrNotFound for unknown ids.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	roles, err := r.query(ctx, roleSelect+" WHERE r.id = ? ORDER BY p.id", id)
	if err != nil {
		return model.Role{}, err
	}
	if len(roles) == 0 {
		return model.Role{}, ErrNotFound
	}
	return roles[0], nil
}

// Create inserts a non-system role without permissions.
func (r *RoleRepo) Create(ctx context.Context, role model.Role) (model.Role, error) {
	return r.insert(ctx, role, false)
}

// CreateSystem inserts a system role.  Only the seeder calls it.
func (r *RoleRepo) CreateSystem(ctx context.Context, role model.Role) (model.Role, error) {
	return r.insert(ctx, role, true)
}

func (r *RoleRepo) insert(ctx context.Context, role model.Role, system bool) (model.Role, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, description, is_system) VALUES (?,?,?)",
		strings.TrimSpace(role.Name), nullString(role.Description), system)
	if err != nil {
		if isDuplicate(err) {
			return model.Role{}, ErrConflict
		}
		return model.Role{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Role{}, err
	}
	return model.Role{ID: uint64(id), Name: strings.TrimSpace(role.Name), Description: role.Description, IsSystem: system}, nil
}

// Update renames a role.  System roles are immutable.
func (r *RoleRepo) Update(ctx context.Context, role model.Role) (model.Role, error) {
	cur, err := r.GetByID(ctx, role.ID)
	if err != nil {
		return model.Role{}, err
	}
	if cur.IsSystem {
		return model.Role{}, ErrForbidden
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET name=?, description=? WHERE id=?",
		role.Name, nullString(role.Description), role.ID); err != nil {
		if isDuplicate(err) {
			return model.Role{}, ErrConflict
		}
		return model.Role{}, err
	}
	cur.Name = role.Name
	cur.Description = role.Description
	return cur, nil
}

// Delete removes a non-system role with its grants and assignments.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur.IsSystem {
		return ErrForbidden
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, q := range []string{
		"DELETE FROM user_roles WHERE role_id=?",
		"DELETE FROM role_permissions WHERE role_id=?",
		"DELETE FROM roles WHERE id=?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetPermissions replaces a role's grants.  Unknown permission ids abort
// the whole replacement with ErrNotFound.
func (r *RoleRepo) SetPermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) (model.Role, error) {
	if _, err := r.GetByID(ctx, roleID); err != nil {
		return model.Role{}, err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Role{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id=?", roleID); err != nil {
		return model.Role{}, err
	}
	seen := map[uint64]bool{}
	for _, pid := range permissionIDs {
		if seen[pid] {
			continue
		}
		seen[pid] = true
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM permissions WHERE id=?", pid).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Role{}, ErrNotFound
		}
		if err != nil {
			return model.Role{}, err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO role_permissions (role_id, permission_id) VALUES (?,?)", roleID, pid); err != nil {
			return model.Role{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Role{}, err
	}
	return r.GetByID(ctx, roleID)
}

// AssignToUser grants a role to a user.  Assigning twice is a no-op.
func (r *RoleRepo) AssignToUser(ctx context.Context, userID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?,?)", userID, roleID)
	return err
}

func (r *RoleRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Role{}
	index := map[uint64]int{}
	for rows.Next() {
		var (
			role     model.Role
			roleDesc sql.NullString
			pID      sql.NullInt64
			pName    sql.NullString
			pModule  sql.NullString
			pAction  sql.NullString
			pDesc    sql.NullString
			pSystem  sql.NullBool
		)
		if err := rows.Scan(&role.ID, &role.Name, &roleDesc, &role.IsSystem,
			&pID, &pName, &pModule, &pAction, &pDesc, &pSystem); err != nil {
			return nil, err
		}
		i, ok := index[role.ID]
		if !ok {
			role.Description = roleDesc.String
			out = append(out, role)
			i = len(out) - 1
			index[role.ID] = i
		}
		if pID.Valid {
			out[i].Permissions = append(out[i].Permissions, model.Permission{
				ID:                 uint64(pID.Int64),
				Name:               pName.String,
				Module:             pModule.String,
				Action:             pAction.String,
				Description:        pDesc.String,
				IsSystemPermission: pSystem.Bool,
			})
		}
	}
	return out, rows.Err()
}
