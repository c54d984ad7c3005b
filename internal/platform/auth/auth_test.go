package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Thandi Dlamini",
		Role: role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func invoke(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return c, h(c)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	c, err := invoke(t, mw, "Bearer "+signToken(t, RoleNurse))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if got := RoleFromContext(ctx); got != RoleNurse {
		t.Errorf("role = %q, want %q", got, RoleNurse)
	}
	if got := UserNameFromContext(ctx); got != "Thandi Dlamini" {
		t.Errorf("name = %q", got)
	}
	if got := UserIDFromContext(ctx); got != "u-1" {
		t.Errorf("user id = %q", got)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	_, err := invoke(t, mw, "")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_BadToken(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	_, err := invoke(t, mw, "Bearer not-a-token")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	claims := &Claims{Role: RoleDoctor}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("another-key-another-key-another!"))
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	_, err := invoke(t, mw, "Bearer "+token)
	if err == nil {
		t.Error("expected error for token signed with wrong key")
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name    string
		role    string
		allowed []string
		wantOK  bool
	}{
		{"owning role passes", RoleNurse, []string{RoleNurse, RoleDoctor}, true},
		{"admin bypasses", RoleAdministrator, []string{RoleDoctor}, true},
		{"other role rejected", RoleClerk, []string{RoleDoctor}, false},
		{"social worker on own gate", RoleSocialWorker, []string{RoleSocialWorker}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			jwtMW := JWTMiddleware(JWTConfig{SigningKey: testKey})
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tc.role))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := jwtMW(RequireRole(tc.allowed...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}))
			err := h(c)
			if tc.wantOK && err != nil {
				t.Errorf("expected pass, got %v", err)
			}
			if !tc.wantOK {
				he, ok := err.(*echo.HTTPError)
				if !ok || he.Code != http.StatusForbidden {
					t.Errorf("expected 403, got %v", err)
				}
			}
		})
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	c, err := invoke(t, DevAuthMiddleware(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := RoleFromContext(c.Request().Context()); got != RoleAdministrator {
		t.Errorf("role = %q, want administrator", got)
	}
}
