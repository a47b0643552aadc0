package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/space-reservation/internal/booking"
	"github.com/iliyamo/space-reservation/internal/config"
	"github.com/iliyamo/space-reservation/internal/database"
	"github.com/iliyamo/space-reservation/internal/handler"
	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/repository"
	"github.com/iliyamo/space-reservation/internal/router"
	"github.com/iliyamo/space-reservation/internal/utils"
)

const secret = "router-test-secret"

// Sunday 1 March 2026, 09:00 UTC.  The next day is a Monday.
var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type api struct {
	t     *testing.T
	e     *echo.Echo
	users *repository.UserRepo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(ctx, db, database.SQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	store := repository.NewStore(db, database.SQLite)
	svc := booking.NewService(store, booking.WithClock(func() time.Time { return testNow }))
	t.Cleanup(func() { _ = svc.Drain(context.Background()) })

	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := router.New(router.Deps{
		DB:           db,
		Logger:       logger,
		JWTSecret:    secret,
		Auth:         handler.NewAuthHandler(cfg, store.Users, repository.NewTokenRepo(db)),
		Reservations: handler.NewReservationHandler(svc),
		Spaces:       handler.NewSpaceHandler(store.Spaces, store.Reservations, svc),
		Users:        handler.NewUserHandler(store.Users),
	})
	return &api{t: t, e: e, users: store.Users}
}

// token creates a user directly and returns an access token for it.
func (a *api) token(email string, role model.Role) (string, uint64) {
	a.t.Helper()
	id, err := a.users.Create(context.Background(), repository.NewUser{
		Name: email, Email: email, Password: "password1", Role: role,
	}, bcrypt.MinCost)
	if err != nil {
		a.t.Fatalf("create user: %v", err)
	}
	tok, err := utils.NewAccessToken(secret, id, string(role), 15)
	if err != nil {
		a.t.Fatalf("NewAccessToken: %v", err)
	}
	return tok.Token, id
}

func (a *api) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get(echo.HeaderContentType) != echo.MIMETextPlainCharsetUTF8 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (a *api) createSpace(adminTok string) uint64 {
	a.t.Helper()
	rec, body := a.do(http.MethodPost, "/v1/admin/spaces", adminTok, map[string]any{
		"name": "Orion", "type": "room", "capacity": 6, "location": "2nd floor",
		"availability": map[string]any{"monday": []map[string]string{{"start": "09:00", "end": "17:00"}}},
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create space: %d %s", rec.Code, rec.Body.String())
	}
	return uint64(body["id"].(float64))
}

func items(t *testing.T, body map[string]any) []any {
	t.Helper()
	list, ok := body["items"].([]any)
	if !ok {
		t.Fatalf("response has no items: %v", body)
	}
	return list
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec, _ := a.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuth_RegisterLoginRefreshLogout(t *testing.T) {
	a := newAPI(t)

	rec, _ := a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "short"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("weak password: %d %s", rec.Code, rec.Body.String())
	}

	rec, body := a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"name": "Ada", "email": "Ada@Example.com", "password": "password1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	user := body["user"].(map[string]any)
	if user["email"] != "ada@example.com" || user["role"] != "user" {
		t.Fatalf("unexpected user %v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash in response")
	}

	rec, _ = a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "password1"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate email: %d", rec.Code)
	}

	rec, _ = a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", rec.Code)
	}
	rec, body = a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ada@example.com", "password": "password1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	access := body["access"].(map[string]any)["token"].(string)
	refresh := body["refresh"].(map[string]any)["token"].(string)

	rec, body = a.do(http.MethodGet, "/v1/me", access, nil)
	if rec.Code != http.StatusOK || body["email"] != "ada@example.com" {
		t.Fatalf("me: %d %v", rec.Code, body)
	}

	rec, body = a.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	rotated := body["refresh"].(map[string]any)["token"].(string)
	rec, _ = a.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: %d", rec.Code)
	}

	rec, _ = a.do(http.MethodPost, "/v1/auth/logout", "", map[string]string{"refresh_token": rotated})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": rotated})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: %d", rec.Code)
	}
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)
	userTok, _ := a.token("user@example.com", model.RoleUser)

	rec, _ := a.do(http.MethodGet, "/v1/reservations", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodGet, "/v1/reservations", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodPost, "/v1/admin/spaces", userTok, map[string]any{"name": "X"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user on admin route: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodPatch, "/v1/admin/users/1/quota", userTok, map[string]any{"max_simultaneous_reservations": 1})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user on quota route: %d", rec.Code)
	}
}

func TestSpaces_AdminLifecycle(t *testing.T) {
	a := newAPI(t)
	adminTok, _ := a.token("admin@example.com", model.RoleAdmin)

	rec, body := a.do(http.MethodPost, "/v1/admin/spaces", adminTok, map[string]any{
		"name": "Bad", "type": "room", "capacity": 2,
		"availability": map[string]any{"monday": []map[string]string{{"start": "12:00", "end": "09:00"}}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid availability: %d %s", rec.Code, rec.Body.String())
	}
	if _, ok := body["errors"].(map[string]any)["availability"]; !ok {
		t.Fatalf("missing availability error: %v", body)
	}

	id := a.createSpace(adminTok)
	path := "/v1/admin/spaces/" + strconv.FormatUint(id, 10)

	rec, body = a.do(http.MethodPut, path, adminTok, map[string]any{"capacity": 12})
	if rec.Code != http.StatusOK || body["capacity"].(float64) != 12 || body["name"] != "Orion" {
		t.Fatalf("update: %d %v", rec.Code, body)
	}

	rec, body = a.do(http.MethodGet, "/v1/spaces/"+strconv.FormatUint(id, 10), adminTok, nil)
	if rec.Code != http.StatusOK || body["type"] != "room" {
		t.Fatalf("get: %d %v", rec.Code, body)
	}

	rec, _ = a.do(http.MethodDelete, path, adminTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodGet, "/v1/spaces/"+strconv.FormatUint(id, 10), adminTok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", rec.Code)
	}
}

func TestReservations_Flow(t *testing.T) {
	a := newAPI(t)
	adminTok, _ := a.token("admin@example.com", model.RoleAdmin)
	aliceTok, _ := a.token("alice@example.com", model.RoleUser)
	bobTok, _ := a.token("bob@example.com", model.RoleUser)
	spaceID := a.createSpace(adminTok)

	search := "/v1/spaces?type=room&capacity=4&date=2026-03-02&start_time=10:00&end_time=11:00"
	rec, body := a.do(http.MethodGet, search, aliceTok, nil)
	if rec.Code != http.StatusOK || len(items(t, body)) != 1 {
		t.Fatalf("search before booking: %d %v", rec.Code, body)
	}
	rec, body = a.do(http.MethodGet, "/v1/spaces?date=2026-03-03", aliceTok, nil)
	if rec.Code != http.StatusOK || len(items(t, body)) != 0 {
		t.Fatalf("search on a closed day: %d %v", rec.Code, body)
	}

	req := map[string]any{"space_id": spaceID, "reservation_date": "2026-03-02", "start_time": "10:00", "end_time": "11:00", "purpose": "standup"}
	rec, body = a.do(http.MethodPost, "/v1/reservations", aliceTok, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	if body["status"] != "pending" || body["start_time"] != "2026-03-02T10:00:00Z" {
		t.Fatalf("unexpected reservation %v", body)
	}
	resID := strconv.FormatUint(uint64(body["id"].(float64)), 10)

	overlapping := map[string]any{"space_id": spaceID, "reservation_date": "2026-03-02", "start_time": "10:30", "end_time": "11:30"}
	rec, body = a.do(http.MethodPost, "/v1/reservations", bobTok, overlapping)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overlap: %d %s", rec.Code, rec.Body.String())
	}
	if _, ok := body["errors"].(map[string]any)["start_time"]; !ok {
		t.Fatalf("overlap error lacks start_time: %v", body)
	}

	outside := map[string]any{"space_id": spaceID, "reservation_date": "2026-03-02", "start_time": "16:30", "end_time": "17:30"}
	rec, _ = a.do(http.MethodPost, "/v1/reservations", bobTok, outside)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("outside availability: %d", rec.Code)
	}

	rec, body = a.do(http.MethodGet, search, bobTok, nil)
	if rec.Code != http.StatusOK || len(items(t, body)) != 0 {
		t.Fatalf("search after booking: %d %v", rec.Code, body)
	}

	rec, _ = a.do(http.MethodGet, "/v1/reservations/"+resID, bobTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("other user's reservation: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodGet, "/v1/reservations/999", aliceTok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing reservation: %d", rec.Code)
	}

	rec, body = a.do(http.MethodPatch, "/v1/reservations/"+resID, aliceTok, map[string]any{"start_time": "13:00", "end_time": "14:00"})
	if rec.Code != http.StatusOK || body["start_time"] != "2026-03-02T13:00:00Z" {
		t.Fatalf("update: %d %v", rec.Code, body)
	}
	rec, _ = a.do(http.MethodPatch, "/v1/reservations/"+resID, aliceTok, map[string]any{"status": "archived"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown status: %d", rec.Code)
	}

	rec, body = a.do(http.MethodDelete, "/v1/reservations/"+resID, aliceTok, nil)
	if rec.Code != http.StatusOK || body["reservation"].(map[string]any)["status"] != "cancelled" {
		t.Fatalf("cancel: %d %v", rec.Code, body)
	}

	rec, body = a.do(http.MethodPost, "/v1/reservations", bobTok, map[string]any{"space_id": spaceID, "reservation_date": "2026-03-02", "start_time": "13:00", "end_time": "14:00"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("slot not freed by cancel: %d %s", rec.Code, rec.Body.String())
	}
	bobRes := strconv.FormatUint(uint64(body["id"].(float64)), 10)

	rec, body = a.do(http.MethodGet, "/v1/reservations", aliceTok, nil)
	if rec.Code != http.StatusOK || len(items(t, body)) != 1 {
		t.Fatalf("alice list: %d %v", rec.Code, body)
	}
	rec, body = a.do(http.MethodGet, "/v1/reservations", adminTok, nil)
	if rec.Code != http.StatusOK || len(items(t, body)) != 2 {
		t.Fatalf("admin list: %d %v", rec.Code, body)
	}

	rec, _ = a.do(http.MethodDelete, "/v1/admin/reservations/"+bobRes, bobTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user hard delete: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodDelete, "/v1/admin/reservations/"+bobRes, adminTok, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin hard delete: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodGet, "/v1/reservations/"+bobRes, adminTok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted reservation still visible: %d", rec.Code)
	}
}

func TestUsers_QuotaLimitsReservations(t *testing.T) {
	a := newAPI(t)
	adminTok, _ := a.token("admin@example.com", model.RoleAdmin)
	userTok, userID := a.token("carol@example.com", model.RoleUser)
	spaceID := a.createSpace(adminTok)

	quotaPath := "/v1/admin/users/" + strconv.FormatUint(userID, 10) + "/quota"
	rec, _ := a.do(http.MethodPatch, quotaPath, adminTok, map[string]any{"max_simultaneous_reservations": -1})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative quota: %d", rec.Code)
	}
	rec, body := a.do(http.MethodPatch, quotaPath, adminTok, map[string]any{"max_simultaneous_reservations": 1})
	if rec.Code != http.StatusOK || body["max_simultaneous_reservations"].(float64) != 1 {
		t.Fatalf("set quota: %d %v", rec.Code, body)
	}
	rec, _ = a.do(http.MethodPatch, "/v1/admin/users/999/quota", adminTok, map[string]any{"max_simultaneous_reservations": 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: %d", rec.Code)
	}

	first := map[string]any{"space_id": spaceID, "reservation_date": "2026-03-02", "start_time": "09:00", "end_time": "10:00"}
	if rec, _ := a.do(http.MethodPost, "/v1/reservations", userTok, first); rec.Code != http.StatusCreated {
		t.Fatalf("first reservation: %d", rec.Code)
	}
	second := map[string]any{"space_id": spaceID, "reservation_date": "2026-03-02", "start_time": "11:00", "end_time": "12:00"}
	rec, body = a.do(http.MethodPost, "/v1/reservations", userTok, second)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over quota: %d %s", rec.Code, rec.Body.String())
	}
	if _, ok := body["errors"].(map[string]any)["user_id"]; !ok {
		t.Fatalf("quota error lacks user_id field: %v", body)
	}

	rec, _ = a.do(http.MethodPatch, quotaPath, adminTok, map[string]any{"max_simultaneous_reservations": nil})
	if rec.Code != http.StatusOK {
		t.Fatalf("clear quota: %d", rec.Code)
	}
	if rec, _ := a.do(http.MethodPost, "/v1/reservations", userTok, second); rec.Code != http.StatusCreated {
		t.Fatalf("after clearing quota: %d", rec.Code)
	}
}
