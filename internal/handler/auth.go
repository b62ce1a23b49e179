package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/config"
    "github.com/iliyamo/restaurant-reservation/internal/model"
    "github.com/iliyamo/restaurant-reservation/internal/repository"
    "github.com/iliyamo/restaurant-reservation/internal/utils"
)

// UserStore is the account storage used by AuthHandler.
type UserStore interface {
    Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (*model.User, error)
    GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenStore is the refresh token storage used by AuthHandler.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for the staff auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
    Now    func() time.Time
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Now: time.Now}
}

// ----- DTOs -----

type registerReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required,min=8"`
    Role     string `json:"role" validate:"omitempty,oneof=HOST MANAGER host manager"`
}

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}

type refreshReq struct {
    RefreshToken string `json:"refresh_token" validate:"required"`
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
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")

// issue creates an access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u userPart) (authResp, error) {
    now := h.Now()
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTL, now)
    if err != nil {
        return authResp{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTL, now)
    if err != nil {
        return authResp{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, err
    }
    return authResp{
        User:    u,
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    }, nil
}

// Register creates a staff account and signs it in.  Role defaults to HOST.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
    }
    req.Email = normalizeEmail(req.Email)
    if err := c.Validate(&req); err != nil {
        return err
    }
    role := strings.ToUpper(req.Role)
    if role == "" {
        role = model.RoleHost
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
    switch {
    case errors.Is(err, repository.ErrEmailExists):
        return echo.NewHTTPError(http.StatusConflict, "email already exists")
    case errors.Is(err, utils.ErrPasswordTooShort):
        return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
    case err != nil:
        return err
    }
    resp, err := h.issue(ctx, userPart{ID: uid, Email: req.Email, Role: role})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
    }
    req.Email = normalizeEmail(req.Email)
    if err := c.Validate(&req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrUserNotFound) {
        return errUnauthorized
    }
    if err != nil {
        return err
    }
    if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return errUnauthorized
    }
    resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    userID, err := h.Tokens.ValidateRefresh(ctx, hash, h.Now())
    if errors.Is(err, repository.ErrInvalidRefresh) {
        return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh")
    }
    if err != nil {
        return err
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return err
    }
    u, err := h.Users.GetByID(ctx, userID)
    if errors.Is(err, repository.ErrUserNotFound) {
        return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh")
    }
    if err != nil {
        return err
    }
    resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, resp)
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the caller when the route runs behind JWTAuth and no token is
// given.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    raw := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    if raw != "" {
        hash := utils.HashRefreshRaw(raw)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash, h.Now()); err != nil {
            return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return err
        }
        return c.NoContent(http.StatusNoContent)
    }
    if uid, ok := c.Get("user_id").(uint64); ok && uid != 0 {
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return err
        }
        return c.NoContent(http.StatusNoContent)
    }
    return echo.NewHTTPError(http.StatusBadRequest, "provide Authorization header or refresh_token")
}

func normalizeEmail(email string) string {
    return strings.ToLower(strings.TrimSpace(email))
}

// Me returns the caller as seen by JWTAuth.
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "user_id": c.Get("user_id"),
        "role":    c.Get("role"),
    })
}
