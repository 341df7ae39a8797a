package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-portal/internal/model"
)

func TestHTTPLoginSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "owner@rental.test", body["email"])
		assert.Equal(t, "pw", body["password"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"id": 7, "email": "owner@rental.test", "userType": "property_listing"},
		})
	}))
	defer server.Close()

	c := NewHTTP(server.URL+"/", time.Second)
	res, err := c.Login(context.Background(), "owner@rental.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	require.NotNil(t, res.User)
	assert.Equal(t, uint64(7), res.User.ID)
	assert.Equal(t, model.UserTypePropertyListing, res.User.UserType)
}

func TestHTTPLoginFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid credentials"}`, func(t *testing.T, err error) {
			assert.True(t, IsUnauthorized(err))
			assert.Contains(t, err.Error(), "invalid credentials")
		}},
		{"server error with message", http.StatusInternalServerError, `{"message":"boom"}`, func(t *testing.T, err error) {
			assert.True(t, IsStatus(err, http.StatusInternalServerError))
			assert.Contains(t, err.Error(), "boom")
		}},
		{"missing token", http.StatusOK, `{"user":{"id":1}}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrMissingToken)
		}},
		{"missing user", http.StatusOK, `{"token":"x"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrMissingUser)
		}},
		{"garbage", http.StatusOK, `not json`, func(t *testing.T, err error) {
			assert.Error(t, err)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()
			_, err := NewHTTP(server.URL, time.Second).Login(context.Background(), "a", "b")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestHTTPNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()
	_, err := NewHTTP(url, time.Second).ListPermissions(context.Background())
	assert.Error(t, err)
}

func TestHTTPBearerAttachedOnceSet(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewHTTP(server.URL, time.Second)
	_, _ = c.ListPermissions(context.Background())
	c.SetToken("abc")
	_, _ = c.ListPermissions(context.Background())
	c.SetToken("")
	_, _ = c.ListPermissions(context.Background())
	assert.Equal(t, []string{"", "Bearer abc", ""}, got)
}

func TestHTTPListAcceptsArrayAndEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/permissions":
			_, _ = w.Write([]byte(`[{"id":1,"module":"roles","action":"edit"},{"id":2,"module":"users","action":"view","isSystemPermission":true}]`))
		case "/api/roles/user/42":
			_, _ = w.Write([]byte(`{"data":[{"id":3,"name":"Tenant","permissions":[{"module":"wishlist","action":"view"}]}]}`))
		case "/api/users":
			_, _ = w.Write([]byte(`null`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	c := NewHTTP(server.URL, time.Second)
	ctx := context.Background()

	perms, err := c.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, "roles_edit", perms[0].Key())
	assert.True(t, perms[1].IsSystemPermission)

	roles, err := c.RolesForUser(ctx, 42)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "wishlist_view", roles[0].Permissions[0].Key())

	users, err := c.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = c.ListRoles(ctx)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestHTTPConsoleRequests(t *testing.T) {
	type seen struct{ method, path, body string }
	var reqs []seen
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b, _ := json.Marshal(body)
		reqs = append(reqs, seen{r.Method, r.URL.Path, string(b)})
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"id":9,"name":"x"}`))
	}))
	defer server.Close()
	c := NewHTTP(server.URL, time.Second)
	ctx := context.Background()

	p, err := c.CreatePermission(ctx, model.Permission{Module: "reviews", Action: "delete"})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), p.ID)
	_, err = c.UpdatePermission(ctx, model.Permission{ID: 9, Module: "reviews", Action: "edit"})
	require.NoError(t, err)
	require.NoError(t, c.DeletePermission(ctx, 9))
	_, err = c.CreateRole(ctx, model.Role{Name: "Agent"})
	require.NoError(t, err)
	_, err = c.UpdateRole(ctx, model.Role{ID: 4, Name: "Agent"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteRole(ctx, 4))
	_, err = c.SetRolePermissions(ctx, 4, []uint64{1, 2})
	require.NoError(t, err)

	require.Len(t, reqs, 7)
	assert.Equal(t, seen{http.MethodPost, "/api/permissions", `{"action":"delete","id":0,"module":"reviews","name":""}`}, reqs[0])
	assert.Equal(t, http.MethodPut, reqs[1].method)
	assert.Equal(t, "/api/permissions/9", reqs[1].path)
	assert.Equal(t, "/api/permissions/9", reqs[2].path)
	assert.Equal(t, "/api/roles", reqs[3].path)
	assert.Equal(t, "/api/roles/4", reqs[4].path)
	assert.Equal(t, http.MethodDelete, reqs[5].method)
	assert.Equal(t, seen{http.MethodPut, "/api/roles/4/permissions", `{"permissionIds":[1,2]}`}, reqs[6])
}
