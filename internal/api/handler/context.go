package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/bookandsign/auth-system/internal/api/middleware"
	"github.com/bookandsign/auth-system/internal/core/domain"
)

// ctxIdentity returns the identity injected by the Guard middleware. Its
// absence means the route was wired without the guard, which is answered as
// an invalid token rather than served anonymously.
func ctxIdentity(c echo.Context) (domain.DecodedIdentity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.SubjectID == 0 {
		return domain.DecodedIdentity{}, domain.ErrInvalidToken
	}
	return id, nil
}
