package portal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-portal/internal/backend"
	"github.com/iliyamo/rental-portal/internal/console"
	"github.com/iliyamo/rental-portal/internal/gate"
	"github.com/iliyamo/rental-portal/internal/metrics"
	"github.com/iliyamo/rental-portal/internal/queue"
	"github.com/iliyamo/rental-portal/internal/session"
	"github.com/iliyamo/rental-portal/internal/storage"
)

type app struct {
	e  *echo.Echo
	fx *backend.Fixture
}

func newApp(t *testing.T) *app {
	t.Helper()
	fx := backend.NewFixture()
	m := metrics.New()
	store := session.NewStore(fx, storage.NewMemory(), session.WithMetrics(m))
	g := gate.New(store, "/login", "/unauthorized", m, zerolog.Nop())
	svc := console.NewService(fx, g, queue.Noop{}, m, zerolog.Nop())
	e := echo.New()
	Register(e, NewHandler(store, g, svc, zerolog.Nop()), m.Handler())
	return &app{e: e, fx: fx}
}

func (a *app) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) login(t *testing.T, email string) {
	t.Helper()
	rec := a.do(http.MethodPost, "/v1/session/login", `{"email":"`+email+`","password":"`+backend.FixturePassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLoginAndStateFlow(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodGet, "/v1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)

	a.login(t, "Tenant@Rental.test ")
	var st session.State
	require.NoError(t, json.Unmarshal(a.do(http.MethodGet, "/v1/session", "").Body.Bytes(), &st))
	assert.True(t, st.Authenticated)
	assert.Contains(t, st.Permissions, "wishlist_view")

	rec = a.do(http.MethodGet, "/v1/session/can?module=wishlist&action=view", "")
	assert.JSONEq(t, `{"module":"wishlist","action":"view","allowed":true}`, rec.Body.String())
	rec = a.do(http.MethodGet, "/v1/session/can?module=roles&action=edit", "")
	assert.JSONEq(t, `{"module":"roles","action":"edit","allowed":false}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/session/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)
}

func TestLoginRejected(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodPost, "/v1/session/login", `{"email":"tenant@rental.test","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/session/login", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCanRequiresBothParams(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/session/can?module=x", "").Code)
}

func TestNavigationByRole(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/navigation", "").Code)

	a.login(t, "owner@rental.test")
	rec := a.do(http.MethodGet, "/v1/navigation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var nav struct {
		Dashboard gate.Dashboard `json:"dashboard"`
		Items     []gate.NavItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nav))
	assert.Equal(t, gate.OwnerDashboard, nav.Dashboard)
	var paths []string
	for _, it := range nav.Items {
		paths = append(paths, it.Path)
	}
	assert.Contains(t, paths, "/dashboard/owner/payments")
	assert.NotContains(t, paths, "/dashboard/tenant/wishlist")

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	req.Header.Set(echo.HeaderAccept, "text/html")
	out := httptest.NewRecorder()
	a.e.ServeHTTP(out, req)
	assert.Equal(t, http.StatusFound, out.Code)
	assert.Equal(t, "/dashboard/owner", out.Header().Get(echo.HeaderLocation))
}

func TestAdminConsoleGating(t *testing.T) {
	a := newApp(t)
	a.login(t, "owner@rental.test")
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/v1/admin/roles", "").Code)

	a.login(t, "admin@rental.test")
	rec := a.do(http.MethodGet, "/v1/admin/roles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"canDelete"`)

	rec = a.do(http.MethodPost, "/v1/admin/permissions", `{"module":"Reports","action":"view"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"module":"reports"`)

	rec = a.do(http.MethodPost, "/v1/admin/permissions", `{"module":"reports","action":"view"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"notification"`)
}

func TestConsoleFailureIsSurfaced(t *testing.T) {
	a := newApp(t)
	a.login(t, "admin@rental.test")
	a.fx.Fail(backend.OpConsole, &backend.StatusError{StatusCode: http.StatusInternalServerError, Message: "db down"})

	rec := a.do(http.MethodPost, "/v1/admin/roles", `{"name":"Inspector"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body struct {
		Error        string `json:"error"`
		Notification struct {
			Level     string `json:"level"`
			Operation string `json:"operation"`
		} `json:"notification"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Notification.Level)
	assert.Equal(t, "create_role", body.Notification.Operation)
	assert.Contains(t, body.Error, "db down")
}

func TestHealthAndMetrics(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, "ok", a.do(http.MethodGet, "/healthz", "").Body.String())
	a.do(http.MethodPost, "/v1/session/login", `{"email":"tenant@rental.test","password":"bad"}`)
	rec := a.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portal_logins_total{outcome="failure"} 1`)
}
