package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHasRole(t *testing.T) {
	tests := []struct {
		name  string
		held  []string
		want  []string
		allow bool
	}{
		{"physician reads", []string{RolePhysician}, []string{RolePhysician, RoleNurse}, true},
		{"lab tech enters results", []string{RoleLabTechnician}, []string{RoleAdmin, RolePhysician, RoleLabTechnician}, true},
		{"nurse cannot enter results", []string{RoleNurse}, []string{RolePhysician, RoleLabTechnician}, false},
		{"lab tech cannot resolve alerts", []string{RoleLabTechnician}, []string{RolePhysician, RoleNurse}, false},
		{"admin passes everything", []string{RoleAdmin}, []string{RoleLabTechnician}, true},
		{"second role matches", []string{"patient", RoleNurse}, []string{RoleNurse}, true},
		{"no roles", nil, []string{RoleNurse}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := withIdentity(context.Background(), "user-1", tt.held)
			if got := HasRole(ctx, tt.want...); got != tt.allow {
				t.Errorf("HasRole(%v, %v) = %v, want %v", tt.held, tt.want, got, tt.allow)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	guarded := RequireRole(RolePhysician, RoleLabTechnician)(ok)

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tests", nil)
		req = req.WithContext(withIdentity(req.Context(), "lab-1", []string{RoleLabTechnician}))
		rec := httptest.NewRecorder()
		if err := guarded(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tests", nil)
		req = req.WithContext(withIdentity(req.Context(), "nurse-1", []string{RoleNurse}))
		err := guarded(e.NewContext(req, httptest.NewRecorder()))
		httpErr, isHTTP := err.(*echo.HTTPError)
		if !isHTTP {
			t.Fatalf("expected echo.HTTPError, got %T", err)
		}
		if httpErr.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", httpErr.Code)
		}
		if httpErr.Message != "required role: physician or lab_technician" {
			t.Errorf("unexpected message: %v", httpErr.Message)
		}
	})
}

func TestDevAuthMiddleware_GrantsAdmin(t *testing.T) {
	e := echo.New()
	var uid string
	var roles []string
	h := DevAuthMiddleware(JWTConfig{})(func(c echo.Context) error {
		uid = UserIDFromContext(c.Request().Context())
		roles = RolesFromContext(c.Request().Context())
		return nil
	})

	if err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "dev-user" {
		t.Errorf("expected dev-user, got %s", uid)
	}
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("expected [admin] roles, got %v", roles)
	}
}

func TestIdentityFromEmptyContext(t *testing.T) {
	if uid := UserIDFromContext(context.Background()); uid != "" {
		t.Errorf("expected empty user id, got %s", uid)
	}
	if roles := RolesFromContext(context.Background()); roles != nil {
		t.Errorf("expected nil roles, got %v", roles)
	}
}
