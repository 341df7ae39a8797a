package console

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-portal/internal/backend"
	"github.com/iliyamo/rental-portal/internal/gate"
	"github.com/iliyamo/rental-portal/internal/metrics"
	"github.com/iliyamo/rental-portal/internal/model"
	"github.com/iliyamo/rental-portal/internal/queue"
	"github.com/iliyamo/rental-portal/internal/session"
	"github.com/iliyamo/rental-portal/internal/storage"
)

type env struct {
	fx     *backend.Fixture
	store  *session.Store
	events *queue.Recorder
	svc    *Service
}

func login(t *testing.T, email string) *env {
	t.Helper()
	e := &env{fx: backend.NewFixture(), events: &queue.Recorder{}}
	e.store = session.NewStore(e.fx, storage.NewMemory())
	require.NoError(t, e.store.Login(context.Background(), email, backend.FixturePassword))
	g := gate.New(e.store, "/login", "/unauthorized", nil, zerolog.Nop())
	e.svc = NewService(e.fx, g, e.events, metrics.New(), zerolog.Nop())
	return e
}

func TestSystemPermissionsAreNeverDeletable(t *testing.T) {
	e := login(t, "admin@rental.test")
	ctx := context.Background()
	custom, err := e.svc.CreatePermission(ctx, model.Permission{Module: "reports", Action: "view", Name: "View reports"})
	require.NoError(t, err)

	rows, err := e.svc.ListPermissions(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		if r.IsSystemPermission {
			assert.False(t, r.CanDelete, r.Key())
			assert.False(t, r.CanEdit, r.Key())
		}
		if r.ID == custom.ID {
			assert.True(t, r.CanDelete)
			assert.True(t, r.CanEdit)
		}
	}
}

func TestOwnerSeesNoConsoleAffordances(t *testing.T) {
	e := login(t, "owner@rental.test")
	rows, err := e.svc.ListRoles(context.Background())
	require.NoError(t, err)
	for _, r := range rows {
		assert.False(t, r.CanEdit)
		assert.False(t, r.CanDelete)
	}
}

func TestSystemPermissionDeleteIsRefused(t *testing.T) {
	e := login(t, "admin@rental.test")
	ctx := context.Background()
	rows, err := e.svc.ListPermissions(ctx)
	require.NoError(t, err)
	var sys model.Permission
	for _, r := range rows {
		if r.IsSystemPermission {
			sys = r.Permission
			break
		}
	}
	require.NotZero(t, sys.ID)

	err = e.svc.DeletePermission(ctx, sys.ID)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, http.StatusForbidden, f.Status)
	assert.Equal(t, "delete_permission", f.Operation)
	assert.Contains(t, f.Notification, "Could not delete permission.")
}

func TestBackendFailureIsNotSimulated(t *testing.T) {
	e := login(t, "admin@rental.test")
	e.fx.Fail(backend.OpConsole, errors.New("connection refused"))
	ctx := context.Background()

	_, err := e.svc.CreateRole(ctx, model.Role{Name: "Inspector"})
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, http.StatusBadGateway, f.Status)
	assert.Equal(t, []string{queue.EventConsoleFailed}, e.events.Types())

	e.fx.Fail(backend.OpConsole, nil)
	roles, err := e.svc.ListRoles(ctx)
	require.NoError(t, err)
	for _, r := range roles {
		assert.NotEqual(t, "Inspector", r.Name)
	}
}

func TestRolePermissionReplacement(t *testing.T) {
	e := login(t, "admin@rental.test")
	ctx := context.Background()
	p, err := e.svc.CreatePermission(ctx, model.Permission{Module: "reports", Action: "view"})
	require.NoError(t, err)
	r, err := e.svc.CreateRole(ctx, model.Role{Name: "Analyst"})
	require.NoError(t, err)

	updated, err := e.svc.SetRolePermissions(ctx, r.ID, []uint64{p.ID})
	require.NoError(t, err)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, "reports_view", updated.Permissions[0].Key())

	users, err := e.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.True(t, users[0].CanEdit)
}
