package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/bookandsign/auth-system/internal/api/handler"
	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

type stubAuth struct{ ports.AuthService }

func (stubAuth) Login(_ context.Context, in ports.LoginInput) (*domain.LoginOutput, error) {
	if in.Password != "Secret123!" {
		return nil, domain.ErrBadCredentials
	}
	return &domain.LoginOutput{
		AccessAndRefreshToken: domain.AccessAndRefreshToken{AccessToken: "access", RefreshToken: "refresh"},
		UserInfo:              domain.UserInfo{ID: 1, Email: in.Email},
	}, nil
}

type stubUsers struct{ ports.UserService }

func (stubUsers) List(_ context.Context, tenantID int64) ([]domain.UserDetails, error) {
	return []domain.UserDetails{{TenantID: tenantID}}, nil
}

// stubVerifier accepts "Bearer tenant-1" as a user of tenant 1.
type stubVerifier struct{}

func (stubVerifier) VerifyAndDecode(_ context.Context, authorization string) (domain.DecodedIdentity, error) {
	if authorization != "Bearer tenant-1" {
		return domain.DecodedIdentity{}, domain.ErrInvalidToken
	}
	return domain.DecodedIdentity{SubjectID: 1, TenantID: 1, TokenType: domain.TokenAccess}, nil
}

func (stubVerifier) Verify(context.Context, string, domain.TokenType) (domain.DecodedIdentity, error) {
	return domain.DecodedIdentity{}, domain.ErrInvalidToken
}

func newTestRouter() *echo.Echo {
	return NewRouter(Deps{
		Auth:       stubAuth{},
		Users:      stubUsers{},
		Verifier:   stubVerifier{},
		Checks:     map[string]handler.Check{"postgres": func(context.Context) error { return nil }},
		Log:        zerolog.Nop(),
		Registerer: prometheus.NewRegistry(),
	})
}

func serve(e *echo.Echo, method, path, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return resp.Error.Code
}

func TestRouter_PublicRoutes(t *testing.T) {
	e := newTestRouter()

	rec := serve(e, http.MethodPost, "/auth/login", `{"email":"jane@example.com","password":"Secret123!"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(e, http.MethodPost, "/auth/login", `{"email":"jane@example.com","password":"nope"}`, "")
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "LOGIN_BAD_CREDENTIAL" {
		t.Fatalf("bad login: got %d %s", rec.Code, rec.Body.String())
	}

	if rec = serve(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec = serve(e, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}
}

func TestRouter_GuardedRoutes(t *testing.T) {
	e := newTestRouter()

	rec := serve(e, http.MethodGet, "/auth/me", "", "")
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "INVALID_TOKEN" {
		t.Fatalf("me without token: got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(e, http.MethodGet, "/auth/me", "", "Bearer tenant-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}

	rec = serve(e, http.MethodGet, "/tenants/1/users", "", "Bearer tenant-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("own tenant: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(e, http.MethodGet, "/tenants/2/users", "", "Bearer tenant-1")
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "TENANT_MISMATCH" {
		t.Fatalf("other tenant: got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(e, http.MethodGet, "/tenants/1/users", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("users without token: expected 401, got %d", rec.Code)
	}
}

func TestRouter_UnknownRoutesSkipGuard(t *testing.T) {
	e := newTestRouter()

	rec := serve(e, http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "NOT_FOUND" {
		t.Fatalf("unknown path: expected 404 NOT_FOUND, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = serve(e, http.MethodDelete, "/auth/me", "", "")
	if rec.Code != http.StatusMethodNotAllowed || errorCode(t, rec) != "METHOD_NOT_ALLOWED" {
		t.Fatalf("unknown method: expected 405 METHOD_NOT_ALLOWED, got %d: %s", rec.Code, rec.Body.String())
	}
}
