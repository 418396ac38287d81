package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Roles carried in the token's roles claim.
const (
	RoleAdmin         = "admin"
	RolePhysician     = "physician"
	RoleNurse         = "nurse"
	RoleLabTechnician = "lab_technician"
)

// HasRole reports whether the caller holds any of roles. Admin holds them all.
func HasRole(ctx context.Context, roles ...string) bool {
	for _, held := range RolesFromContext(ctx) {
		if held == RoleAdmin {
			return true
		}
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

// RequireRole rejects callers without one of roles with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	msg := fmt.Sprintf("required role: %s", strings.Join(roles, " or "))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !HasRole(c.Request().Context(), roles...) {
				return echo.NewHTTPError(http.StatusForbidden, msg)
			}
			return next(c)
		}
	}
}
