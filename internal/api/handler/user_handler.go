package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

// UserHandler serves the tenant scoped user administration routes. Every
// route sits behind the Guard and the TenantParam middleware.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type createUserRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"omitempty,password"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=32"`
	Role      string `json:"role" validate:"omitempty,oneof=user teacher principal admin"`
	Status    string `json:"status" validate:"omitempty,oneof=active suspended inactive"`
}

type updateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Role      *string `json:"role" validate:"omitempty,oneof=user teacher principal admin"`
	Status    *string `json:"status" validate:"omitempty,oneof=active suspended inactive"`
}

type listUsersResponse struct {
	Items []domain.UserDetails `json:"items"`
	Total int                  `json:"total"`
}

func int64Param(c echo.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, domain.Validation(name + " must be a positive integer")
	}
	return v, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// List handles GET /tenants/:tenantId/users.
//
// @Summary      List users of a tenant
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        tenantId  path      int  true  "Tenant ID"
// @Success      200       {object}  listUsersResponse
// @Failure      401       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse
// @Router       /tenants/{tenantId}/users [get]
func (h *UserHandler) List(c echo.Context) error {
	tenantID, err := int64Param(c, "tenantId")
	if err != nil {
		return err
	}

	users, err := h.service.List(c.Request().Context(), tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listUsersResponse{Items: users, Total: len(users)})
}

// Get handles GET /tenants/:tenantId/users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        tenantId  path      int  true  "Tenant ID"
// @Param        id        path      int  true  "User ID"
// @Success      200       {object}  domain.UserDetails
// @Failure      403       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /tenants/{tenantId}/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	tenantID, err := int64Param(c, "tenantId")
	if err != nil {
		return err
	}
	id, err := int64Param(c, "id")
	if err != nil {
		return err
	}

	user, err := h.service.Get(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Create handles POST /tenants/:tenantId/users.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tenantId  path      int                true  "Tenant ID"
// @Param        body      body      createUserRequest  true  "User"
// @Success      201       {object}  domain.UserDetails
// @Failure      400       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse
// @Failure      409       {object}  ErrorResponse
// @Router       /tenants/{tenantId}/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	tenantID, err := int64Param(c, "tenantId")
	if err != nil {
		return err
	}
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), tenantID, ports.CreateUserInput{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Role:      req.Role,
		Status:    domain.UserStatus(req.Status),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Update handles PATCH /tenants/:tenantId/users/:id. Absent fields are left as they are.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tenantId  path      int                true  "Tenant ID"
// @Param        id        path      int                true  "User ID"
// @Param        body      body      updateUserRequest  true  "Fields to change"
// @Success      200       {object}  domain.UserDetails
// @Failure      400       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Failure      409       {object}  ErrorResponse
// @Router       /tenants/{tenantId}/users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	tenantID, err := int64Param(c, "tenantId")
	if err != nil {
		return err
	}
	id, err := int64Param(c, "id")
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := ports.UpdateUserInput{
		Email:     trimmed(req.Email),
		FirstName: trimmed(req.FirstName),
		LastName:  trimmed(req.LastName),
		Phone:     trimmed(req.Phone),
		Role:      req.Role,
	}
	if req.Status != nil {
		st := domain.UserStatus(*req.Status)
		in.Status = &st
	}

	user, err := h.service.Update(c.Request().Context(), tenantID, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /tenants/:tenantId/users/:id. The user and its tokens
// are soft-deleted.
//
// @Summary      Delete a user
// @Tags         users
// @Security     BearerAuth
// @Param        tenantId  path  int  true  "Tenant ID"
// @Param        id        path  int  true  "User ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tenants/{tenantId}/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	tenantID, err := int64Param(c, "tenantId")
	if err != nil {
		return err
	}
	id, err := int64Param(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), tenantID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
