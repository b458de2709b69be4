package dashboard

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/Additional-Code/procura/internal/identity"
	"github.com/Additional-Code/procura/internal/presentation/http/response"
	service "github.com/Additional-Code/procura/internal/service/dashboard"
	"github.com/Additional-Code/procura/internal/transport/http/middleware"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/procura/transport/http/dashboard")

// Service computes dashboard metrics.
type Service interface {
	Stats(ctx context.Context, p identity.Principal) (service.Metrics, error)
}

// Module wires the dashboard handler.
var Module = fx.Options(
	fx.Provide(
		NewHandler,
		func(svc *service.Service) Service { return svc },
	),
	fx.Invoke(Register),
)

// Handler exposes the dashboard endpoint.
type Handler struct {
	svc Service
}

// NewHandler constructs a dashboard Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, auth *middleware.Authenticator) {
	e.GET("/dashboard/stats", h.stats, auth.Require)
}

func (h *Handler) stats(c echo.Context) error {
	b := response.New(c)
	p, err := middleware.Principal(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "dashboard.stats")
	defer span.End()

	metrics, err := h.svc.Stats(ctx, p)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(metrics).WithMeta("role", p.Role).Build()
}
