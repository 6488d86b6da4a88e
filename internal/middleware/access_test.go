package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/middleware"
	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/service"
	"github.com/iliyamo/carpool-identity/internal/utils"
)

const secret = "test-secret"

var nop = zap.NewNop().Sugar()

type roles map[string]model.Role

func (r roles) Role(_ context.Context, id string) (model.Role, error) {
	role, ok := r[id]
	if !ok {
		return "", fmt.Errorf("%w: no row", service.ErrAuthzUnavailable)
	}
	return role, nil
}

type checker struct {
	ok  bool
	err error
}

func (c checker) Check(context.Context, string, model.Permission) (bool, error) { return c.ok, c.err }

func bearer(t *testing.T, id, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ok(c echo.Context) error {
	return c.String(http.StatusOK, middleware.UserID(c))
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/x", ok, middleware.JWTAuth(secret))

	require.Equal(t, http.StatusUnauthorized, serve(e, "").Code)
	require.Equal(t, http.StatusUnauthorized, serve(e, "Bearer garbage").Code)

	other, err := utils.NewAccessToken("other-secret", "a1", "admin", 5)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, serve(e, "Bearer "+other.Token).Code)

	rec := serve(e, bearer(t, "a1", "admin"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a1", rec.Body.String())
}

func TestRequireRole_ReadsTheStoreNotTheClaim(t *testing.T) {
	store := roles{"s1": model.RoleStaff}
	e := echo.New()
	e.GET("/x", ok, middleware.JWTAuth(secret), middleware.RequireRole(store, nop, model.RoleAdmin, model.RoleStaff))

	// token still claims admin after the demotion
	auth := bearer(t, "s1", "admin")
	require.Equal(t, http.StatusOK, serve(e, auth).Code)

	store["s1"] = model.RolePassenger
	require.Equal(t, http.StatusForbidden, serve(e, auth).Code)

	delete(store, "s1")
	require.Equal(t, http.StatusServiceUnavailable, serve(e, auth).Code)
}

func TestRequireRole_NeedsAuthentication(t *testing.T) {
	e := echo.New()
	e.GET("/x", ok, middleware.RequireRole(roles{}, nop, model.RoleAdmin))
	require.Equal(t, http.StatusUnauthorized, serve(e, "").Code)
}

func TestRequirePermission(t *testing.T) {
	cases := []struct {
		name    string
		checker checker
		want    int
	}{
		{"granted", checker{ok: true}, http.StatusOK},
		{"denied", checker{}, http.StatusForbidden},
		{"store down", checker{err: fmt.Errorf("%w: timeout", service.ErrAuthzUnavailable)}, http.StatusServiceUnavailable},
		{"unknown key", checker{err: service.ErrUnknownPermission}, http.StatusInternalServerError},
		{"ok with error still denies", checker{ok: true, err: errors.Join(service.ErrAuthzUnavailable)}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/x", ok, middleware.JWTAuth(secret), middleware.RequirePermission(tc.checker, model.PermAuditLogsView, nop))
			require.Equal(t, tc.want, serve(e, bearer(t, "s1", "staff")).Code)
		})
	}
}

func TestRecover(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Recover(nop))
	e.GET("/x", func(echo.Context) error { panic("boom") })
	rec := serve(e, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestRequestLogger_EchoesRequestID(t *testing.T) {
	e := echo.New()
	e.Use(middleware.RequestLogger(nop))
	e.GET("/x", ok)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(middleware.RequestIDHeader, "rid-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, "rid-1", rec.Header().Get(middleware.RequestIDHeader))

	rec = serve(e, "")
	require.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}
