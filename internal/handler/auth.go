package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velora/nightpulse/internal/config"
	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/repository"
	syncpkg "github.com/velora/nightpulse/internal/sync"
	"github.com/velora/nightpulse/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints. Registration and
// login semantics (profile repair included) live in the sync gateway;
// this layer binds requests, issues token pairs and maps typed errors
// to status codes.
type AuthHandler struct {
	Cfg     config.Config
	Gateway *syncpkg.Gateway
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, g *syncpkg.Gateway, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Gateway: g, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Role         string  `json:"role"` // USER | OWNER
	Name         string  `json:"name"`
	Avatar       string  `json:"avatar"`
	OwnedPlaceID *uint64 `json:"owned_place_id,omitempty"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart       `json:"user"`
	Profile *model.Profile `json:"profile"`
	Access  tokenPart      `json:"access"`
	Refresh tokenPart      `json:"refresh"`
}

// Register: create identity + profile (racing the provisioning trigger)
// and return tokens immediately. A duplicate email with matching
// credentials recovers via the login path inside the gateway.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	sess, err := h.Gateway.Register(ctx, syncpkg.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		Name:         req.Name,
		Avatar:       req.Avatar,
		OwnedPlaceID: req.OwnedPlaceID,
	})
	if err != nil {
		var authErr *syncpkg.AuthError
		if errors.As(err, &authErr) {
			return c.JSON(http.StatusConflict, echo.Map{"error": authErr.Message})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return h.respondWithTokens(c, ctx, http.StatusCreated, sess)
}

// Login: verify credentials, repair the profile row when provisioning
// lagged, and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	// The retry loop may sleep between profile lookups, so the budget
	// is wider than the usual 5s.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	sess, err := h.Gateway.Login(ctx, req.Email, req.Password)
	if err != nil {
		var authErr *syncpkg.AuthError
		if errors.As(err, &authErr) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": authErr.Message})
		}
		var raceErr *syncpkg.ProfileRaceError
		if errors.As(err, &raceErr) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "profile repair failed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return h.respondWithTokens(c, ctx, http.StatusOK, sess)
}

// Refresh: validate by hash, revoke old, issue new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	p, err := h.Gateway.Profile(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load profile failed"})
	}
	return h.respondWithTokens(c, ctx, http.StatusOK, &syncpkg.Session{User: u, Profile: p})
}

// RefreshAccess issues a new access token without rotating the refresh
// token. Cheaper than Refresh for clients that only need to extend the
// session.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout: revoke the supplied refresh token and drop the session's
// local snapshots.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(raw)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	h.Gateway.Logout(ctx, userID)
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll: revoke every refresh token the caller holds, ending all
// of their sessions at once. Authenticated by the supplied refresh
// token like Logout.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(raw))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	h.Gateway.Logout(ctx, userID)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated identity's profile, served from the
// local snapshot when the remote store is down.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Gateway.Profile(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateMe writes profile edits (name, avatar, bio, theme, app mode).
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Name    *string `json:"name"`
		Avatar  *string `json:"avatar"`
		Bio     *string `json:"bio"`
		Theme   *string `json:"theme"`
		AppMode *string `json:"app_mode"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Gateway.Profile(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Avatar != nil {
		p.Avatar = *req.Avatar
	}
	if req.Bio != nil {
		p.Bio = *req.Bio
	}
	if req.Theme != nil {
		p.Theme = *req.Theme
	}
	if req.AppMode != nil {
		p.AppMode = *req.AppMode
	}
	if err := h.Gateway.UpdateProfile(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update profile failed"})
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AuthHandler) respondWithTokens(c echo.Context, ctx context.Context, status int, sess *syncpkg.Session) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, sess.User.ID, sess.User.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, sess.User.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}
	return c.JSON(status, authResp{
		User:    userPart{ID: sess.User.ID, Email: sess.User.Email, Role: sess.User.Role},
		Profile: sess.Profile,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}
