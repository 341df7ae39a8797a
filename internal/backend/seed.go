package backend

import "github.com/iliyamo/rental-portal/internal/model"

// FixturePassword is the password of every seeded account.
const FixturePassword = "password123"

// seed loads the default marketplace: the system catalog, the tenant and
// owner roles and one account per user type.
func seed(f *Fixture) {
	f.mu.Lock()
	for _, p := range model.SystemPermissions() {
		f.ensurePermission(p)
	}
	f.mu.Unlock()

	byName := map[string]uint64{}
	for _, r := range model.DefaultRoles() {
		byName[r.Name] = f.AddRole(r).ID
	}
	for _, acct := range model.DefaultAccounts() {
		var ids []uint64
		for _, name := range acct.Roles {
			ids = append(ids, byName[name])
		}
		f.AddUser(acct.User, FixturePassword, ids...)
	}
}
