package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/router"
	"github.com/iliyamo/restaurant-reservation/internal/utils"
)

type memUsers struct{ byID map[uint64]*model.User }

func (m *memUsers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id := uint64(len(m.byID) + 1)
	m.byID[id] = &model.User{ID: id, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	return id, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

type refreshRow struct {
	user    uint64
	exp     time.Time
	revoked bool
}

type memTokens struct{ rows map[string]*refreshRow }

func (m *memTokens) StoreRefresh(_ context.Context, uid uint64, hash string, exp time.Time) error {
	m.rows[hash] = &refreshRow{user: uid, exp: exp}
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string, now time.Time) (uint64, error) {
	r, ok := m.rows[hash]
	if !ok || r.revoked || now.After(r.exp) {
		return 0, repository.ErrInvalidRefresh
	}
	return r.user, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	if r, ok := m.rows[hash]; ok {
		r.revoked = true
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, uid uint64) error {
	for _, r := range m.rows {
		if r.user == uid {
			r.revoked = true
		}
	}
	return nil
}

func newAuthServer() *echo.Echo {
	cfg := config.Config{JWTSecret: "secret", AccessTTL: time.Minute, RefreshTTL: time.Hour, BcryptCost: 4}
	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Validator = handler.NewValidator()
	a := handler.NewAuthHandler(cfg, &memUsers{byID: map[uint64]*model.User{}}, &memTokens{rows: map[string]*refreshRow{}})
	router.RegisterAuth(e, a, cfg.JWTSecret)
	return e
}

type authBody struct {
	User struct {
		ID   uint64 `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func TestRegisterLoginRefresh(t *testing.T) {
	e := newAuthServer()
	rec := do(e, http.MethodPost, "/auth/register", `{"email":"Host@Example.com","password":"hunter22!"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	var reg authBody
	decode(t, rec, &reg)
	if reg.User.Role != model.RoleHost || reg.Access.Token == "" {
		t.Fatalf("register body %+v", reg)
	}

	if rec := do(e, http.MethodPost, "/auth/register", `{"email":"host@example.com","password":"hunter22!"}`); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/auth/login", `{"email":"host@example.com","password":"wrong-pass"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}

	rec = do(e, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+reg.Refresh.Token+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body)
	}
	// the old token was rotated out
	if rec := do(e, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+reg.Refresh.Token+`"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: %d", rec.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	e := newAuthServer()
	if rec := do(e, http.MethodGet, "/auth/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}

	rec := do(e, http.MethodPost, "/auth/register", `{"email":"m@example.com","password":"hunter22!","role":"manager"}`)
	var reg authBody
	decode(t, rec, &reg)

	r := newRequest(http.MethodGet, "/auth/me", reg.Access.Token)
	if rec := serve(e, r); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"MANAGER"`) {
		t.Fatalf("me: %d %s", rec.Code, rec.Body)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newAuthServer()
	cases := map[string]string{
		`{"email":"nope","password":"hunter22!"}`:                   "email must be a valid email",
		`{"email":"a@example.com","password":"short"}`:              "password must be at least 8 characters",
		`{"email":"a@example.com","password":"hunter22!","role":"x"}`: "role must be one of HOST MANAGER host manager",
	}
	for body, msg := range cases {
		rec := do(e, http.MethodPost, "/auth/register", body)
		if rec.Code != http.StatusBadRequest || errorOf(t, rec) != msg {
			t.Errorf("%s: %d %s", body, rec.Code, rec.Body)
		}
	}
}
