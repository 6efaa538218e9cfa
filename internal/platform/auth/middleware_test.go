package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	if err != nil { t.Fatalf("sign token: %v", err) }
	return token
}

func newAuthTestContext(token string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

var okHandler = func(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"physician"},
	})
	c, rec := newAuthTestContext(token)

	var gotUser string
	var gotRoles []string
	handler := func(c echo.Context) error {
		gotUser = UserIDFromContext(c.Request().Context())
		gotRoles = RolesFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	if err := mw(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK { t.Errorf("status %d", rec.Code) }
	if gotUser != "user-42" { t.Errorf("user id %q", gotUser) }
	if len(gotRoles) != 1 || gotRoles[0] != "physician" { t.Errorf("roles %v", gotRoles) }
}

func TestJWTMiddleware_MissingToken(t *testing.T) {
	c, _ := newAuthTestContext("")
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	err := mw(okHandler)(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-key"))
	if err != nil { t.Fatal(err) }

	c, _ := newAuthTestContext(token)
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	herr, ok := mw(okHandler)(c).(*echo.HTTPError)
	if !ok || herr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong key")
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	token := signToken(t, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	c, _ := newAuthTestContext(token)
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	herr, ok := mw(okHandler)(c).(*echo.HTTPError)
	if !ok || herr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token")
	}
}

func TestDevAuthMiddleware_GrantsAdmin(t *testing.T) {
	c, rec := newAuthTestContext("")
	handler := func(c echo.Context) error {
		if UserIDFromContext(c.Request().Context()) != "dev-user" {
			t.Error("dev user not set")
		}
		roles := RolesFromContext(c.Request().Context())
		if len(roles) != 1 || roles[0] != "admin" {
			t.Errorf("roles %v", roles)
		}
		return c.String(http.StatusOK, "ok")
	}
	if err := DevAuthMiddleware()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK { t.Errorf("status %d", rec.Code) }
}

func newRoleTestContext(roles []string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil)
	if roles != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, roles))
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name    string
		roles   []string
		allowed []string
		wantOK  bool
	}{
		{"matching role", []string{"nurse"}, []string{"physician", "nurse"}, true},
		{"admin always passes", []string{"admin"}, []string{"physician"}, true},
		{"missing role", []string{"agent"}, []string{"physician"}, false},
		{"no roles at all", nil, []string{"physician"}, false},
	}
	for _, tc := range cases {
		c := newRoleTestContext(tc.roles)
		err := RequireRole(tc.allowed...)(okHandler)(c)
		if tc.wantOK && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.wantOK {
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusForbidden {
				t.Errorf("%s: expected 403, got %v", tc.name, err)
			}
		}
	}
}
