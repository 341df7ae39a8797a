package handler

import (
	"context"      // provides context with cancellation for DB calls
	"database/sql" // SQL database interactions
	"errors"       // error matching
	"net/http"     // HTTP status codes and primitives
	"strings"      // string manipulation utilities
	"time"         // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"github.com/rs/zerolog"       // structured logging

	"github.com/iliyamo/rental-portal/internal/config"     // app configuration
	"github.com/iliyamo/rental-portal/internal/model"      // API payload types
	"github.com/iliyamo/rental-portal/internal/repository" // DB repositories
	"github.com/iliyamo/rental-portal/internal/utils"      // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.DevAPI
	Users *repository.UserRepo
	Log   zerolog.Logger
}

func NewAuthHandler(cfg config.DevAPI, u *repository.UserRepo, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResp is the contract the portal consumes: a bearer token and the
// user snapshot it persists next to it.
type loginResp struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login: verify credentials and return {token, user}.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.Log.Error().Err(err).Msg("login lookup failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	// Suspended or pending accounts cannot sign in.
	if u.Status != "" && u.Status != "active" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is not active"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.UserType, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	h.Log.Info().Uint64("user_id", u.ID).Str("user_type", u.UserType).Msg("login")
	return c.JSON(http.StatusOK, loginResp{Token: access.Token, User: u.Model()})
}
