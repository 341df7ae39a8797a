package backend

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/rental-portal/internal/model"
)

// Operations that can be failed, paused or counted on a Fixture.
const (
	OpLogin           = "login"
	OpListPermissions = "list_permissions"
	OpRolesForUser    = "roles_for_user"
	OpConsole         = "console"
)

type fixtureUser struct {
	user     model.User
	password string
	roleIDs  []uint64
}

// Fixture is an in-memory Backend seeded with a small marketplace: one admin,
// one owner, one tenant.  It enforces the same rules the live backend does
// (unknown ids are 404, system permissions are immutable), so development
// against it does not hide failures.
type Fixture struct {
	mu       sync.Mutex
	token    string
	users    map[uint64]*fixtureUser
	roles    map[uint64]*model.Role
	perms    map[uint64]*model.Permission
	nextID   uint64
	failures map[string]error
	pauses   map[string]chan struct{}
	calls    map[string]int
}

// NewFixture returns a Fixture with the default seed.
func NewFixture() *Fixture {
	f := &Fixture{
		users:    map[uint64]*fixtureUser{},
		roles:    map[uint64]*model.Role{},
		perms:    map[uint64]*model.Permission{},
		nextID:   1000,
		failures: map[string]error{},
		pauses:   map[string]chan struct{}{},
		calls:    map[string]int{},
	}
	seed(f)
	return f
}

// Fail makes every later call of op return err until Fail(op, nil).
func (f *Fixture) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Pause blocks later calls of op until the returned release func runs or the
// caller's context ends.
func (f *Fixture) Pause(op string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.pauses[op] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.pauses[op] == ch {
				delete(f.pauses, op)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times op was invoked.
func (f *Fixture) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Token returns the bearer token currently attached.
func (f *Fixture) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// AddUser seeds an account and returns it with its id assigned.
func (f *Fixture) AddUser(u model.User, password string, roleIDs ...uint64) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.newID()
	}
	f.users[u.ID] = &fixtureUser{user: u, password: password, roleIDs: roleIDs}
	return u
}

// AddRole seeds a role with the given permissions, creating unknown ones.
func (f *Fixture) AddRole(r model.Role) model.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == 0 {
		r.ID = f.newID()
	}
	for i, p := range r.Permissions {
		r.Permissions[i] = f.ensurePermission(p)
	}
	stored := r.Clone()
	f.roles[r.ID] = &stored
	return r
}

func (f *Fixture) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *Fixture) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := f.enter(ctx, OpLogin); err != nil {
		return LoginResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if strings.EqualFold(u.user.Email, email) && u.password == password {
			usr := u.user.Clone()
			usr.Roles = nil
			return LoginResult{Token: fmt.Sprintf("fixture-token-%d", usr.ID), User: &usr}, nil
		}
	}
	return LoginResult{}, &StatusError{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"}
}

func (f *Fixture) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	if err := f.enter(ctx, OpListPermissions); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorized(); err != nil {
		return nil, err
	}
	out := make([]model.Permission, 0, len(f.perms))
	for _, p := range f.perms {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fixture) RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error) {
	if err := f.enter(ctx, OpRolesForUser); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorized(); err != nil {
		return nil, err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, notFound("user")
	}
	out := make([]model.Role, 0, len(u.roleIDs))
	for _, id := range u.roleIDs {
		if r, ok := f.roles[id]; ok {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *Fixture) CreatePermission(ctx context.Context, p model.Permission) (model.Permission, error) {
	if err := f.enterConsole(ctx); err != nil {
		return model.Permission{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(p.Module) == "" || strings.TrimSpace(p.Action) == "" {
		return model.Permission{}, &StatusError{StatusCode: http.StatusBadRequest, Message: "module and action are required"}
	}
	for _, existing := range f.perms {
		if existing.Key() == p.Key() {
			return model.Permission{}, &StatusError{StatusCode: http.StatusConflict, Message: "permission already exists"}
		}
	}
	p.ID = f.newID()
	p.IsSystemPermission = false
	stored := p
	f.perms[p.ID] = &stored
	return p, nil
}

func (f *Fixture) UpdatePermission(ctx context.Context, p model.Permission) (model.Permission, error) {
	if err := f.enterConsole(ctx); err != nil {
		return model.Permission{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.perms[p.ID]
	if !ok {
		return model.Permission{}, notFound("permission")
	}
	if cur.IsSystemPermission {
		return model.Permission{}, systemEntity("permission")
	}
	p.IsSystemPermission = false
	*cur = p
	f.syncRolePermission(p)
	return p, nil
}

func (f *Fixture) DeletePermission(ctx context.Context, id uint64) error {
	if err := f.enterConsole(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.perms[id]
	if !ok {
		return notFound("permission")
	}
	if cur.IsSystemPermission {
		return systemEntity("permission")
	}
	delete(f.perms, id)
	for _, r := range f.roles {
		kept := r.Permissions[:0]
		for _, p := range r.Permissions {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		r.Permissions = kept
	}
	return nil
}

func (f *Fixture) ListRoles(ctx context.Context) ([]model.Role, error) {
	if err := f.enterConsole(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fixture) CreateRole(ctx context.Context, r model.Role) (model.Role, error) {
	if err := f.enterConsole(ctx); err != nil {
		return model.Role{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(r.Name) == "" {
		return model.Role{}, &StatusError{StatusCode: http.StatusBadRequest, Message: "name is required"}
	}
	r.ID = f.newID()
	r.IsSystem = false
	r.Permissions = nil
	stored := r
	f.roles[r.ID] = &stored
	return r, nil
}

func (f *Fixture) UpdateRole(ctx context.Context, r model.Role) (model.Role, error) {
	if err := f.enterConsole(ctx); err != nil {
		return model.Role{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.roles[r.ID]
	if !ok {
		return model.Role{}, notFound("role")
	}
	if cur.IsSystem {
		return model.Role{}, systemEntity("role")
	}
	cur.Name = r.Name
	cur.Description = r.Description
	return cur.Clone(), nil
}

func (f *Fixture) DeleteRole(ctx context.Context, id uint64) error {
	if err := f.enterConsole(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.roles[id]
	if !ok {
		return notFound("role")
	}
	if cur.IsSystem {
		return systemEntity("role")
	}
	delete(f.roles, id)
	for _, u := range f.users {
		kept := u.roleIDs[:0]
		for _, rid := range u.roleIDs {
			if rid != id {
				kept = append(kept, rid)
			}
		}
		u.roleIDs = kept
	}
	return nil
}

func (f *Fixture) SetRolePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) (model.Role, error) {
	if err := f.enterConsole(ctx); err != nil {
		return model.Role{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok {
		return model.Role{}, notFound("role")
	}
	perms := make([]model.Permission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		p, ok := f.perms[id]
		if !ok {
			return model.Role{}, notFound("permission")
		}
		perms = append(perms, *p)
	}
	r.Permissions = perms
	return r.Clone(), nil
}

func (f *Fixture) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := f.enterConsole(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		usr := u.user.Clone()
		for _, id := range u.roleIDs {
			if r, ok := f.roles[id]; ok {
				usr.Roles = append(usr.Roles, model.Role{ID: r.ID, Name: r.Name})
			}
		}
		out = append(out, usr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// enter counts the call, waits out a pause and returns a staged failure.
func (f *Fixture) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	pause := f.pauses[op]
	f.mu.Unlock()
	if pause != nil {
		select {
		case <-pause:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[op]
}

func (f *Fixture) enterConsole(ctx context.Context) error {
	if err := f.enter(ctx, OpConsole); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authorized()
}

// authorized mirrors the live backend's bearer check.  Callers hold f.mu.
func (f *Fixture) authorized() error {
	if f.token == "" {
		return &StatusError{StatusCode: http.StatusUnauthorized, Message: "missing bearer token"}
	}
	return nil
}

// ensurePermission returns the stored permission for p's key, creating it if
// needed.  Callers hold f.mu.
func (f *Fixture) ensurePermission(p model.Permission) model.Permission {
	for _, existing := range f.perms {
		if existing.Key() == p.Key() {
			return *existing
		}
	}
	if p.ID == 0 {
		p.ID = f.newID()
	}
	if p.Name == "" {
		p.Name = p.Module + ":" + p.Action
	}
	stored := p
	f.perms[p.ID] = &stored
	return p
}

// syncRolePermission copies an updated permission into every role holding
// it.  Callers hold f.mu.
func (f *Fixture) syncRolePermission(p model.Permission) {
	for _, r := range f.roles {
		for i := range r.Permissions {
			if r.Permissions[i].ID == p.ID {
				r.Permissions[i] = p
			}
		}
	}
}

func (f *Fixture) newID() uint64 {
	f.nextID++
	return f.nextID
}

func notFound(what string) error {
	return &StatusError{StatusCode: http.StatusNotFound, Message: what + " not found"}
}

func systemEntity(what string) error {
	return &StatusError{StatusCode: http.StatusForbidden, Message: "system " + what + " cannot be modified"}
}
