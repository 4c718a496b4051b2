package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bookandsign/auth-system/internal/api/metrics"
	"github.com/bookandsign/auth-system/internal/core/domain"
)

// TenantParam only lets a request through when the caller's tenant equals the
// tenant named by the route parameter. A missing identity, a missing or
// malformed parameter, and a mismatch are all answered with ErrTenantMismatch.
func TenantParam(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return reject()
			}

			raw := c.Param(param)
			if raw == "" {
				return reject()
			}
			tenantID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || tenantID != id.TenantID {
				return reject()
			}
			return next(c)
		}
	}
}

func reject() error {
	metrics.GuardRejectionsTotal.WithLabelValues("tenant_mismatch").Inc()
	return domain.ErrTenantMismatch
}
