// Package console backs the admin console: permission and role management
// and the user list.  Every backend failure is reported to the caller as a
// Failure carrying a user-facing notification; nothing is ever simulated.
package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iliyamo/rental-portal/internal/backend"
	"github.com/iliyamo/rental-portal/internal/gate"
	"github.com/iliyamo/rental-portal/internal/metrics"
	"github.com/iliyamo/rental-portal/internal/model"
	"github.com/iliyamo/rental-portal/internal/queue"
)

// Failure is a console operation the backend refused or could not serve.
type Failure struct {
	Operation    string
	Notification string
	Status       int
	Err          error
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %v", f.Operation, f.Err) }
func (f *Failure) Unwrap() error { return f.Err }

// PermissionRow is a permission with the actions the current session may
// offer on it.
type PermissionRow struct {
	model.Permission
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// RoleRow is a role with its affordances.
type RoleRow struct {
	model.Role
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// UserRow is a user with its affordances.
type UserRow struct {
	model.User
	CanEdit bool `json:"canEdit"`
}

// Service wraps the backend console API.
type Service struct {
	api     backend.Backend
	gate    *gate.Gate
	events  queue.Publisher
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewService(api backend.Backend, g *gate.Gate, events queue.Publisher, m *metrics.Metrics, log zerolog.Logger) *Service {
	if events == nil {
		events = queue.Noop{}
	}
	return &Service{api: api, gate: g, events: events, metrics: m, log: log}
}

func (s *Service) ListPermissions(ctx context.Context) ([]PermissionRow, error) {
	perms, err := s.api.ListPermissions(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list_permissions", "Could not load permissions.", err)
	}
	canEdit := s.gate.Visible(gate.Perm(model.ModulePermissions, model.ActionEdit))
	canDelete := s.gate.Visible(gate.Perm(model.ModulePermissions, model.ActionDelete))
	out := make([]PermissionRow, len(perms))
	for i, p := range perms {
		out[i] = PermissionRow{
			Permission: p,
			CanEdit:    canEdit && !p.IsSystemPermission,
			CanDelete:  canDelete && !p.IsSystemPermission,
		}
	}
	return out, nil
}

func (s *Service) CreatePermission(ctx context.Context, p model.Permission) (model.Permission, error) {
	created, err := s.api.CreatePermission(ctx, p)
	if err != nil {
		return model.Permission{}, s.fail(ctx, "create_permission", "Could not create permission.", err)
	}
	return created, nil
}

func (s *Service) UpdatePermission(ctx context.Context, p model.Permission) (model.Permission, error) {
	updated, err := s.api.UpdatePermission(ctx, p)
	if err != nil {
		return model.Permission{}, s.fail(ctx, "update_permission", "Could not update permission.", err)
	}
	return updated, nil
}

func (s *Service) DeletePermission(ctx context.Context, id uint64) error {
	if err := s.api.DeletePermission(ctx, id); err != nil {
		return s.fail(ctx, "delete_permission", "Could not delete permission.", err)
	}
	return nil
}

func (s *Service) ListRoles(ctx context.Context) ([]RoleRow, error) {
	roles, err := s.api.ListRoles(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list_roles", "Could not load roles.", err)
	}
	canEdit := s.gate.Visible(gate.Perm(model.ModuleRoles, model.ActionEdit))
	canDelete := s.gate.Visible(gate.Perm(model.ModuleRoles, model.ActionDelete))
	out := make([]RoleRow, len(roles))
	for i, r := range roles {
		out[i] = RoleRow{
			Role:      r,
			CanEdit:   canEdit && !r.IsSystem,
			CanDelete: canDelete && !r.IsSystem,
		}
	}
	return out, nil
}

func (s *Service) CreateRole(ctx context.Context, r model.Role) (model.Role, error) {
	created, err := s.api.CreateRole(ctx, r)
	if err != nil {
		return model.Role{}, s.fail(ctx, "create_role", "Could not create role.", err)
	}
	return created, nil
}

func (s *Service) UpdateRole(ctx context.Context, r model.Role) (model.Role, error) {
	updated, err := s.api.UpdateRole(ctx, r)
	if err != nil {
		return model.Role{}, s.fail(ctx, "update_role", "Could not update role.", err)
	}
	return updated, nil
}

func (s *Service) DeleteRole(ctx context.Context, id uint64) error {
	if err := s.api.DeleteRole(ctx, id); err != nil {
		return s.fail(ctx, "delete_role", "Could not delete role.", err)
	}
	return nil
}

func (s *Service) SetRolePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) (model.Role, error) {
	r, err := s.api.SetRolePermissions(ctx, roleID, permissionIDs)
	if err != nil {
		return model.Role{}, s.fail(ctx, "set_role_permissions", "Could not save role permissions.", err)
	}
	return r, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]UserRow, error) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list_users", "Could not load users.", err)
	}
	canEdit := s.gate.Visible(gate.Perm(model.ModuleUsers, model.ActionEdit))
	out := make([]UserRow, len(users))
	for i, u := range users {
		out[i] = UserRow{User: u, CanEdit: canEdit}
	}
	return out, nil
}

func (s *Service) fail(ctx context.Context, op, notice string, err error) error {
	status := http.StatusBadGateway
	var se *backend.StatusError
	if errors.As(err, &se) {
		status = se.StatusCode
		if se.Message != "" {
			notice = notice + " " + se.Message
		}
	}
	s.metrics.ConsoleFailure(op)
	s.log.Warn().Err(err).Str("operation", op).Int("status", status).Msg("console operation failed")

	ev := queue.NewEvent(queue.EventConsoleFailed)
	ev.Detail = fmt.Sprintf("operation=%s status=%d", op, status)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Msg("publish console failure")
	}
	return &Failure{Operation: op, Notification: notice, Status: status, Err: err}
}
