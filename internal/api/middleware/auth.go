package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bookandsign/auth-system/internal/api/metrics"
	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

// GuardConfig configures GuardWithConfig.
type GuardConfig struct {
	// Skipper bypasses the guard when it returns true.
	Skipper func(c echo.Context) bool

	Verifier ports.TokenVerifier

	// PublicPaths are matched against the registered route (c.Path()). An
	// entry ending in "/*" matches every route under that prefix.
	PublicPaths []string
}

// Guard validates the bearer access token on every route that is not public
// and attaches the decoded identity to the context.
func Guard(verifier ports.TokenVerifier, publicPaths ...string) echo.MiddlewareFunc {
	return GuardWithConfig(GuardConfig{Verifier: verifier, PublicPaths: publicPaths})
}

// GuardWithConfig returns a Guard middleware built from config.
func GuardWithConfig(config GuardConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = func(echo.Context) bool { return false }
	}
	verifier := config.Verifier

	exact := make(map[string]struct{}, len(config.PublicPaths))
	var prefixes []string
	for _, p := range config.PublicPaths {
		if strings.HasSuffix(p, "/*") {
			prefixes = append(prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		exact[p] = struct{}{}
	}

	isPublic := func(path string) bool {
		if _, ok := exact[path]; ok {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		return false
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) || isPublic(c.Path()) {
				return next(c)
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.GuardRejectionsTotal.WithLabelValues("invalid_token").Inc()
				return domain.ErrInvalidToken
			}

			id, err := verifier.VerifyAndDecode(c.Request().Context(), authHeader)
			if err != nil {
				reason := "invalid_token"
				if domain.KindOf(err) == domain.KindInternal {
					reason = "error"
				}
				metrics.GuardRejectionsTotal.WithLabelValues(reason).Inc()
				return err
			}

			SetIdentity(c, id)
			return next(c)
		}
	}
}
