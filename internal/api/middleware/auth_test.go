package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bookandsign/auth-system/internal/core/domain"
)

type stubVerifier struct {
	verifyAndDecodeFn func(ctx context.Context, authorization string) (domain.DecodedIdentity, error)
}

func (s *stubVerifier) VerifyAndDecode(ctx context.Context, authorization string) (domain.DecodedIdentity, error) {
	return s.verifyAndDecodeFn(ctx, authorization)
}

func (s *stubVerifier) Verify(context.Context, string, domain.TokenType) (domain.DecodedIdentity, error) {
	return domain.DecodedIdentity{}, errors.New("not used")
}

func acceptOnly(header string, id domain.DecodedIdentity) *stubVerifier {
	return &stubVerifier{
		verifyAndDecodeFn: func(_ context.Context, authorization string) (domain.DecodedIdentity, error) {
			if authorization != header {
				return domain.DecodedIdentity{}, domain.ErrInvalidToken
			}
			return id, nil
		},
	}
}

func newContext(path, authorization string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	return c, rec
}

func TestGuard_ValidToken(t *testing.T) {
	want := domain.DecodedIdentity{SubjectID: 7, TenantID: 3, Email: "jane@example.com", Role: domain.RoleAdmin, TokenType: domain.TokenAccess}
	c, rec := newContext("/auth/me", "Bearer good")

	called := false
	h := Guard(acceptOnly("Bearer good", want))(func(c echo.Context) error {
		called = true
		id, ok := IdentityFrom(c)
		if !ok || id != want {
			t.Fatalf("identity not attached: %+v", id)
		}
		if c.Get("role") != domain.RoleAdmin {
			t.Fatalf("role not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGuard_Rejects(t *testing.T) {
	verifier := acceptOnly("Bearer good", domain.DecodedIdentity{SubjectID: 1})

	for name, header := range map[string]string{
		"missing header": "",
		"bad token":      "Bearer bad",
		"wrong scheme":   "Token good",
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newContext("/auth/me", header)
			h := Guard(verifier)(func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})

			err := h(c)
			if !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
			if _, ok := IdentityFrom(c); ok {
				t.Fatalf("identity must not be attached")
			}
		})
	}
}

func TestGuard_VerifierFailurePropagates(t *testing.T) {
	boom := domain.Internal("verify token", errors.New("connection reset"))
	verifier := &stubVerifier{
		verifyAndDecodeFn: func(context.Context, string) (domain.DecodedIdentity, error) {
			return domain.DecodedIdentity{}, boom
		},
	}
	c, _ := newContext("/auth/me", "Bearer good")

	err := Guard(verifier)(func(echo.Context) error { return nil })(c)
	if domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestGuard_PublicPaths(t *testing.T) {
	verifier := &stubVerifier{
		verifyAndDecodeFn: func(context.Context, string) (domain.DecodedIdentity, error) {
			t.Fatalf("verifier must not run on public routes")
			return domain.DecodedIdentity{}, nil
		},
	}
	mw := Guard(verifier, "/auth/login", "/swagger/*")

	for _, path := range []string{"/auth/login", "/swagger/*", "/swagger/index.html"} {
		c, rec := newContext(path, "")
		h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		if err := h(c); err != nil {
			t.Fatalf("%s: handler error: %v", path, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	c, _ := newContext("/auth/login/extra", "")
	guarded := Guard(acceptOnly("x", domain.DecodedIdentity{}), "/auth/login")
	if err := guarded(func(echo.Context) error { return nil })(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("exact public path must not match longer routes, got %v", err)
	}
}
