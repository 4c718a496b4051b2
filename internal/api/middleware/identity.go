package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/bookandsign/auth-system/internal/core/domain"
)

const (
	identityKey = "identity"
	roleKey     = "role"
)

// SetIdentity attaches a verified identity to the request context.
func SetIdentity(c echo.Context, id domain.DecodedIdentity) {
	c.Set(identityKey, id)
	c.Set(roleKey, id.Role)
}

// IdentityFrom returns the identity attached by Guard, if any.
func IdentityFrom(c echo.Context) (domain.DecodedIdentity, bool) {
	id, ok := c.Get(identityKey).(domain.DecodedIdentity)
	return id, ok
}
