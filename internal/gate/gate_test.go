package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-portal/internal/metrics"
	"github.com/iliyamo/rental-portal/internal/model"
)

type fakeOracle struct {
	authed bool
	typ    model.UserType
	keys   map[string]bool
}

func (f *fakeOracle) Authenticated() bool      { return f.authed }
func (f *fakeOracle) UserType() model.UserType { return f.typ }
func (f *fakeOracle) HasPermission(m, a string) bool {
	if !f.authed {
		return false
	}
	if f.typ.IsAdmin() {
		return true
	}
	return f.keys[model.PermissionKey(m, a)]
}

func tenant(keys ...string) *fakeOracle {
	o := &fakeOracle{authed: true, typ: model.UserTypePropertySearching, keys: map[string]bool{}}
	for _, k := range keys {
		o.keys[k] = true
	}
	return o
}

func newGate(o Oracle) *Gate {
	return New(o, "/login", "/unauthorized", nil, zerolog.Nop())
}

func TestRequirementAllows(t *testing.T) {
	o := tenant("wishlist_view")
	assert.True(t, Requirement{}.Allows(o))
	assert.True(t, Perm("wishlist", "view").Allows(o))
	assert.False(t, Perm("wishlist", "edit").Allows(o))
	assert.True(t, Types(model.UserTypePropertySearching).Allows(o))
	assert.False(t, Types(model.UserTypeAdmin, model.UserTypeSuperAdmin).Allows(o))
	assert.False(t, Requirement{Module: "wishlist", Action: "view", UserTypes: []model.UserType{model.UserTypePropertyListing}}.Allows(o))
	assert.False(t, Requirement{}.Allows(&fakeOracle{}))
}

func TestHalfPermissionRequirementDenies(t *testing.T) {
	o := tenant("wishlist_view")
	assert.False(t, Requirement{Module: "wishlist"}.Allows(o))
	assert.False(t, Requirement{Action: "view"}.Allows(o))
	assert.False(t, Requirement{Module: "wishlist", UserTypes: []model.UserType{model.UserTypePropertySearching}}.Allows(o))
}

func TestWidgetDecisions(t *testing.T) {
	g := newGate(tenant("wishlist_view"))
	assert.Equal(t, Render, g.Widget(Perm("wishlist", "view"), Hide))
	assert.Equal(t, Hide, g.Widget(Perm("wishlist", "edit"), Hide))
	assert.Equal(t, Disable, g.Widget(Perm("wishlist", "edit"), Disable))
	assert.Equal(t, Hide, g.Widget(Perm("wishlist", "edit"), Render))
	assert.True(t, g.Visible(Perm("wishlist", "view")))

	admin := newGate(&fakeOracle{authed: true, typ: model.UserTypeAdmin})
	assert.Equal(t, Render, admin.Widget(Perm("anything", "whatsoever"), Hide))
}

func serve(t *testing.T, mw echo.MiddlewareFunc, accept string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, mw)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if accept != "" {
		req.Header.Set(echo.HeaderAccept, accept)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	anon := newGate(&fakeOracle{})
	rec := serve(t, anon.RequireAuth(), "text/html,application/xhtml+xml")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = serve(t, anon.RequireAuth(), "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, newGate(tenant()).RequireAuth(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	g := newGate(tenant("wishlist_view"))
	assert.Equal(t, http.StatusOK, serve(t, g.RequirePermission("wishlist", "view"), "").Code)

	rec := serve(t, g.RequirePermission("roles", "edit"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	rec = serve(t, g.RequirePermission("roles", "edit"), "text/html")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/unauthorized", rec.Header().Get(echo.HeaderLocation))
}

func TestRequireUserType(t *testing.T) {
	g := newGate(tenant())
	assert.Equal(t, http.StatusForbidden, serve(t, g.RequireUserType(model.UserTypeAdmin, model.UserTypeSuperAdmin), "").Code)
	assert.Equal(t, http.StatusOK, serve(t, g.RequireUserType(model.UserTypePropertySearching), "").Code)
}

func TestDashboardFor(t *testing.T) {
	d, ok := DashboardFor(model.UserTypeSuperAdmin)
	require.True(t, ok)
	assert.Equal(t, AdminDashboard, d)
	d, _ = DashboardFor(model.UserTypePropertyListing)
	assert.Equal(t, OwnerDashboard, d)
	d, _ = DashboardFor(model.UserTypePropertySearching)
	assert.Equal(t, TenantDashboard, d)
	_, ok = DashboardFor("guest")
	assert.False(t, ok)
}

func labels(items []NavItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestSidebarFiltersByPermission(t *testing.T) {
	g := newGate(tenant("wishlist_view", "messages_view"))
	assert.Equal(t, []string{"Overview", "Wishlist", "Messages"}, labels(g.Sidebar()))

	admin := newGate(&fakeOracle{authed: true, typ: model.UserTypeAdmin})
	assert.Equal(t, []string{"Overview", "Users", "Roles", "Permissions", "Property approvals"}, labels(admin.Sidebar()))

	assert.Nil(t, newGate(&fakeOracle{}).Sidebar())
}

func TestGateRecordsDecisions(t *testing.T) {
	m := metrics.New()
	g := New(tenant("wishlist_view"), "/login", "/unauthorized", m, zerolog.Nop())
	g.Visible(Perm("wishlist", "view"))
	g.Visible(Perm("wishlist", "edit"))
	g.Visible(Perm("wishlist", "edit"))
	n, err := testutil.GatherAndCount(m.Registry(), "portal_gate_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
