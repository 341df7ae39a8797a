package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/rental-portal/internal/model"
)

// Seed loads the default marketplace into an empty database: the system
// catalog, the default roles and one account per user type, all with the
// given password.  A database that already has users is left alone.
func Seed(ctx context.Context, users *UserRepo, roles *RoleRepo, perms *PermissionRepo, password string, cost int) (bool, error) {
	n, err := users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	for _, p := range model.SystemPermissions() {
		if _, err := perms.CreateSystem(ctx, p); err != nil {
			return false, fmt.Errorf("seed permission %s: %w", p.Key(), err)
		}
	}

	// Grants shared by several roles are created once.
	permIDs := map[string]uint64{}
	roleIDs := map[string]uint64{}
	for _, r := range model.DefaultRoles() {
		created, err := roles.CreateSystem(ctx, r)
		if err != nil {
			return false, fmt.Errorf("seed role %s: %w", r.Name, err)
		}
		var grant []uint64
		for _, p := range r.Permissions {
			id, ok := permIDs[p.Key()]
			if !ok {
				cp, err := perms.Create(ctx, p)
				if err != nil {
					return false, fmt.Errorf("seed permission %s: %w", p.Key(), err)
				}
				id = cp.ID
				permIDs[p.Key()] = id
			}
			grant = append(grant, id)
		}
		if len(grant) > 0 {
			if _, err := roles.SetPermissions(ctx, created.ID, grant); err != nil {
				return false, fmt.Errorf("grant role %s: %w", r.Name, err)
			}
		}
		roleIDs[r.Name] = created.ID
	}

	for _, acct := range model.DefaultAccounts() {
		uid, err := users.Create(ctx, acct.User, password, cost)
		if err != nil {
			return false, fmt.Errorf("seed user %s: %w", acct.User.Email, err)
		}
		for _, name := range acct.Roles {
			if err := roles.AssignToUser(ctx, uid, roleIDs[name]); err != nil {
				return false, fmt.Errorf("assign %s to %s: %w", name, acct.User.Email, err)
			}
		}
	}
	return true, nil
}
