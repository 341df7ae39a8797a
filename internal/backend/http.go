package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/rental-portal/internal/model"
)

const defaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 4 << 10

// HTTP calls the live REST backend.
type HTTP struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewHTTP builds a client for baseURL.  A zero timeout uses the default.
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTP{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTP) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTP) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTP) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return LoginResult{}, err
	}
	if strings.TrimSpace(res.Token) == "" {
		return LoginResult{}, ErrMissingToken
	}
	if res.User == nil {
		return LoginResult{}, ErrMissingUser
	}
	return res, nil
}

func (c *HTTP) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var out []model.Permission
	if err := c.doList(ctx, "/api/permissions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) RolesForUser(ctx context.Context, userID uint64) ([]model.Role, error) {
	var out []model.Role
	if err := c.doList(ctx, fmt.Sprintf("/api/roles/user/%d", userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) CreatePermission(ctx context.Context, p model.Permission) (model.Permission, error) {
	var out model.Permission
	err := c.do(ctx, http.MethodPost, "/api/permissions", p, &out)
	return out, err
}

func (c *HTTP) UpdatePermission(ctx context.Context, p model.Permission) (model.Permission, error) {
	var out model.Permission
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/permissions/%d", p.ID), p, &out)
	return out, err
}

func (c *HTTP) DeletePermission(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/permissions/%d", id), nil, nil)
}

func (c *HTTP) ListRoles(ctx context.Context) ([]model.Role, error) {
	var out []model.Role
	if err := c.doList(ctx, "/api/roles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) CreateRole(ctx context.Context, r model.Role) (model.Role, error) {
	var out model.Role
	err := c.do(ctx, http.MethodPost, "/api/roles", r, &out)
	return out, err
}

func (c *HTTP) UpdateRole(ctx context.Context, r model.Role) (model.Role, error) {
	var out model.Role
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/roles/%d", r.ID), r, &out)
	return out, err
}

func (c *HTTP) DeleteRole(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/roles/%d", id), nil, nil)
}

func (c *HTTP) SetRolePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) (model.Role, error) {
	var out model.Role
	body := map[string][]uint64{"permissionIds": permissionIDs}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/roles/%d/permissions", roleID), body, &out)
	return out, err
}

func (c *HTTP) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.doList(ctx, "/api/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// doList GETs a collection.  Backends answer either with a bare array or with
// an envelope {"data": [...]}; both decode into out.
func (c *HTTP) doList(ctx context.Context, path string, out any) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		raw = env.Data
		if len(raw) == 0 {
			return nil
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTP) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage pulls "error" or "message" out of a JSON error body, falling
// back to the trimmed text.
func errorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(b))
}
