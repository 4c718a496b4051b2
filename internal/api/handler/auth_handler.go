package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bookandsign/auth-system/internal/api/metrics"
	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signupRequest struct {
	TenantID  int64  `json:"tenantId" validate:"omitempty,gt=0"`
	Role      string `json:"role" validate:"required,oneof=user teacher principal admin"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,password"`
	Phone     string `json:"phone" validate:"required,max=32"`
}

// Password is optional; an empty one fails the credential check.
type loginRequest struct {
	TenantID int64  `json:"tenantId" validate:"omitempty,gt=0"`
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// resultLabel turns a flow outcome into a metrics label value.
func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultSuccess
	}
	return domain.KindOf(err).String()
}

// Signup creates a user and returns its first token pair.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Signup details"
// @Success      201   {object}  domain.LoginOutput
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	timer := prometheus.NewTimer(metrics.IssuanceDuration.WithLabelValues("signup"))
	out, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		TenantID:  req.TenantID,
		Role:      req.Role,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		Phone:     strings.TrimSpace(req.Phone),
	})
	timer.ObserveDuration()
	metrics.SignupsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, out)
}

// Login authenticates a user and replaces its token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  domain.LoginOutput
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      429   {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	timer := prometheus.NewTimer(metrics.IssuanceDuration.WithLabelValues("login"))
	out, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		TenantID: req.TenantID,
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	timer.ObserveDuration()
	metrics.LoginsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, out)
}

// Refresh exchanges a live refresh token for a new pair.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  domain.LoginOutput
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	timer := prometheus.NewTimer(metrics.IssuanceDuration.WithLabelValues("refresh"))
	out, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	timer.ObserveDuration()
	metrics.RefreshesTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, out)
}

// Logout revokes every token held by the caller.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), id.SubjectID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity decoded from the caller's access token.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.DecodedIdentity
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, id)
}
