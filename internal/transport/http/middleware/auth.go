// Package middleware holds echo middleware shared by the HTTP transports.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Additional-Code/procura/internal/identity"
	"github.com/Additional-Code/procura/internal/presentation/http/response"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

// Verifier turns a bearer token into a principal.
type Verifier interface {
	Verify(token string) (identity.Principal, error)
}

// Module provides the bearer authenticator.
var Module = fx.Provide(
	NewAuthenticator,
	func(svc *identity.Service) Verifier { return svc },
)

// Authenticator guards routes that need a principal.
type Authenticator struct {
	verifier Verifier
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(v Verifier) *Authenticator {
	return &Authenticator{verifier: v}
}

// Require rejects requests without a valid bearer token and stores the
// principal on the request context otherwise.
func (a *Authenticator) Require(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return response.New(c).WithError(errorbank.Unauthorized("missing bearer token")).Build()
		}
		p, err := a.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			return response.New(c).WithError(err).Build()
		}
		req := c.Request()
		c.SetRequest(req.WithContext(identity.WithPrincipal(req.Context(), p)))
		return next(c)
	}
}

// Principal returns the authenticated caller of the request.
func Principal(c echo.Context) (identity.Principal, error) {
	p, ok := identity.FromContext(c.Request().Context())
	if !ok {
		return identity.Principal{}, errorbank.Unauthorized("authentication required")
	}
	return p, nil
}
