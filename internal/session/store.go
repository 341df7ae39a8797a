// Package session owns the portal's authenticated session: who is logged in,
// their bearer token, and the permission index the access gate reads.
//
// Only Store methods mutate the session.  User, token and index are swapped
// together under one lock, so readers see either the old session or the new
// one, never a mix.  Permission derivation runs outside the lock and commits
// only if no logout or newer login happened in the meantime.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/rental-portal/internal/backend"
	"github.com/iliyamo/rental-portal/internal/metrics"
	"github.com/iliyamo/rental-portal/internal/model"
	"github.com/iliyamo/rental-portal/internal/queue"
	"github.com/iliyamo/rental-portal/internal/storage"
)

// Store is the session state container.
type Store struct {
	src     backend.AuthSource
	kv      storage.SessionStorage
	log     zerolog.Logger
	metrics *metrics.Metrics
	events  queue.Publisher
	now     func() time.Time

	group singleflight.Group
	// writeMu orders the persist+adopt steps of Login and Logout.
	writeMu sync.Mutex

	mu      sync.RWMutex
	user    *model.User
	token   string
	index   PermissionIndex
	loading bool
	lastErr string
	gen     uint64
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Store) { s.metrics = m } }

func WithPublisher(p queue.Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.events = p
		}
	}
}

// WithClock replaces time.Now for token expiry checks.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// NewStore returns an unauthenticated store.  Call Initialize to restore a
// persisted session.
func NewStore(src backend.AuthSource, kv storage.SessionStorage, opts ...Option) *Store {
	s := &Store{
		src:    src,
		kv:     kv,
		log:    zerolog.Nop(),
		events: queue.Noop{},
		now:    time.Now,
		index:  PermissionIndex{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize restores the persisted session, if any, and derives its
// permissions.  Missing, expired or unparsable state is cleared silently.
// Only a storage read failure is returned.
func (s *Store) Initialize(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	token, raw, err := s.kv.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if token == "" || raw == "" {
		if token != "" || raw != "" {
			s.log.Info().Msg("half-written session found, clearing")
		}
		s.discardPersisted(ctx)
		return nil
	}
	if s.tokenExpired(token) {
		s.log.Info().Msg("persisted token expired, clearing")
		s.discardPersisted(ctx)
		return nil
	}
	user, err := decodeUser(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding persisted session")
		s.discardPersisted(ctx)
		return nil
	}

	s.adopt(user, token)
	s.log.Info().Uint64("user_id", user.ID).Str("user_type", string(user.UserType)).Msg("session restored")
	s.derive(ctx)
	return nil
}

// Login exchanges credentials for a token, persists token and user together,
// adopts them and derives permissions.  On any failure nothing is applied,
// the message is kept for State().Error and an ErrAuthFailure is returned.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.src.Login(ctx, email, password)
	if err == nil && res.Token == "" {
		err = backend.ErrMissingToken
	}
	if err == nil && res.User == nil {
		err = backend.ErrMissingUser
	}
	if err == nil && !restorable(*res.User) {
		err = backend.ErrInvalidUser
	}
	if err != nil {
		return s.loginFailed(ctx, email, err)
	}

	user := res.User.Clone()
	raw, err := json.Marshal(user)
	if err != nil {
		return s.loginFailed(ctx, email, fmt.Errorf("encode user: %w", err))
	}

	s.writeMu.Lock()
	if err := s.kv.Save(ctx, res.Token, string(raw)); err != nil {
		s.writeMu.Unlock()
		return s.loginFailed(ctx, email, fmt.Errorf("persist session: %w", err))
	}
	s.adopt(&user, res.Token)
	s.writeMu.Unlock()

	s.metrics.Login("success")
	s.log.Info().Uint64("user_id", user.ID).Str("user_type", string(user.UserType)).Msg("login")
	s.publish(ctx, queue.EventLogin, &user, "")

	s.derive(ctx)
	return nil
}

// Logout drops the session in memory and in storage.  Calling it without a
// session is a no-op apart from clearing storage again.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	prev := s.user
	s.gen++
	s.user = nil
	s.token = ""
	s.index = PermissionIndex{}
	s.lastErr = ""
	s.src.SetToken("")
	s.mu.Unlock()

	err := s.kv.Clear(ctx)
	if prev != nil {
		s.log.Info().Uint64("user_id", prev.ID).Msg("logout")
		s.publish(ctx, queue.EventLogout, prev, "")
	}
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// DerivePermissions rebuilds the permission index for the current session.
// Admins get the full catalog, falling back to ImplicitAllKey on failure.
// Everyone else gets the union of their roles, or an empty index on failure.
// Concurrent calls for the same session share one fetch.
func (s *Store) DerivePermissions(ctx context.Context) error {
	s.mu.RLock()
	user, token, gen := s.user, s.token, s.gen
	s.mu.RUnlock()
	if user == nil || token == "" {
		return nil
	}

	_, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return nil, s.rebuild(ctx, user.Clone(), gen)
	})
	return err
}

func (s *Store) rebuild(ctx context.Context, user model.User, gen uint64) error {
	class := "member"
	var (
		idx      PermissionIndex
		roles    []model.Role
		fetchErr error
	)
	if user.UserType.IsAdmin() {
		class = "admin"
		perms, err := s.src.ListPermissions(ctx)
		if err != nil {
			fetchErr = err
			idx = AdminFallbackIndex()
		} else {
			idx = IndexFromPermissions(perms)
		}
	} else {
		rs, err := s.src.RolesForUser(ctx, user.ID)
		if err != nil {
			fetchErr = err
			idx = PermissionIndex{}
		} else {
			roles = rs
			idx = IndexFromRoles(rs)
		}
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.metrics.Derivation(class, "discarded")
		s.log.Debug().Uint64("user_id", user.ID).Msg("derivation finished after session change, dropped")
		return ErrSessionChanged
	}
	s.index = idx
	if fetchErr == nil && s.user != nil && !user.UserType.IsAdmin() {
		s.user.Roles = cloneRoles(roles)
	}
	s.mu.Unlock()

	if fetchErr != nil {
		s.metrics.Derivation(class, "fallback")
		s.log.Warn().Err(fetchErr).Uint64("user_id", user.ID).Str("class", class).Msg("permission fetch failed, safe default installed")
		s.publish(ctx, queue.EventPermissionsDerived, &user, "outcome=fallback")
		return fmt.Errorf("%w: %v", ErrPermissionFetch, fetchErr)
	}
	s.metrics.Derivation(class, "success")
	s.log.Debug().Uint64("user_id", user.ID).Int("keys", len(idx)).Msg("permissions derived")
	s.publish(ctx, queue.EventPermissionsDerived, &user, fmt.Sprintf("outcome=success keys=%d", len(idx)))
	return nil
}

// HasPermission answers from resident state only.  Admins are always
// allowed; everyone else needs the key in the index.
func (s *Store) HasPermission(module, action string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return false
	}
	if s.user.UserType.IsAdmin() {
		return true
	}
	return s.index.Has(module, action)
}

// Authenticated reports whether a user and token are adopted.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

// UserType is empty when nobody is logged in.
func (s *Store) UserType() model.UserType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.UserType
}

// CurrentUser returns a copy of the adopted user.
func (s *Store) CurrentUser() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return s.user.Clone(), true
}

// State is a read-only snapshot of the session.
type State struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
	Loading       bool        `json:"loading"`
	Error         string      `json:"error,omitempty"`
	Permissions   []string    `json:"permissions"`
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		Authenticated: s.user != nil && s.token != "",
		Loading:       s.loading,
		Error:         s.lastErr,
		Permissions:   s.index.Keys(),
	}
	if s.user != nil {
		u := s.user.Clone()
		st.User = &u
	}
	return st
}

// adopt swaps in a new session.  The index starts empty until derivation
// commits.
func (s *Store) adopt(user *model.User, token string) {
	s.mu.Lock()
	s.gen++
	u := user.Clone()
	s.user = &u
	s.token = token
	s.index = PermissionIndex{}
	s.lastErr = ""
	s.src.SetToken(token)
	s.mu.Unlock()
}

func (s *Store) derive(ctx context.Context) {
	if err := s.DerivePermissions(ctx); err != nil && !errors.Is(err, ErrSessionChanged) {
		s.log.Debug().Err(err).Msg("derive permissions")
	}
}

func (s *Store) loginFailed(ctx context.Context, email string, err error) error {
	msg := "Login failed. Please check your credentials."
	var se *backend.StatusError
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()

	s.metrics.Login("failure")
	s.log.Warn().Err(err).Str("email", email).Msg("login failed")
	ev := queue.NewEvent(queue.EventLoginFailed)
	ev.Email = email
	ev.Detail = msg
	s.emit(ctx, ev)
	return fmt.Errorf("%w: %w", ErrAuthFailure, err)
}

func (s *Store) discardPersisted(ctx context.Context) {
	if err := s.kv.Clear(ctx); err != nil {
		s.log.Warn().Err(err).Msg("clear persisted session")
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// tokenExpired reads exp from a JWT without verifying it.  Opaque tokens
// never expire here; the backend decides.
func (s *Store) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(s.now())
}

func (s *Store) publish(ctx context.Context, typ string, u *model.User, detail string) {
	ev := queue.NewEvent(typ)
	if u != nil {
		ev.UserID = u.ID
		ev.Email = u.Email
		ev.UserType = string(u.UserType)
	}
	ev.Detail = detail
	s.emit(ctx, ev)
}

func (s *Store) emit(ctx context.Context, ev queue.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("type", ev.Type).Msg("publish session event")
	}
}

func decodeUser(raw string) (*model.User, error) {
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistedStateCorrupt, err)
	}
	if !restorable(u) {
		return nil, fmt.Errorf("%w: missing id or user type", ErrPersistedStateCorrupt)
	}
	return &u, nil
}

// restorable is the check Initialize applies to a persisted snapshot.  Login
// refuses users that would fail it so a reload cannot drop the session.
func restorable(u model.User) bool {
	return u.ID != 0 && u.UserType.Valid()
}

func cloneRoles(in []model.Role) []model.Role {
	out := make([]model.Role, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
