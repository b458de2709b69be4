package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Additional-Code/procura/internal/dto"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/identity"
	"github.com/Additional-Code/procura/internal/presentation/http/response"
	"github.com/Additional-Code/procura/internal/transport/http/middleware"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/procura/transport/http/auth")

// Service is the identity surface the handler needs.
type Service interface {
	Register(ctx context.Context, in identity.RegisterInput) (*entity.User, error)
	Authenticate(ctx context.Context, email, password string) (*identity.Session, error)
	Approve(ctx context.Context, admin identity.Principal, userID int64) (*entity.User, error)
}

// Module wires HTTP auth handlers.
var Module = fx.Options(
	fx.Provide(
		NewHandler,
		func(svc *identity.Service) Service { return svc },
	),
	fx.Invoke(Register),
)

// Handler exposes registration, login and user approval over HTTP.
type Handler struct {
	svc Service
}

// NewHandler constructs an auth Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, auth *middleware.Authenticator) {
	g := e.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)

	e.POST("/users/:id/approve", h.approve, auth.Require)
}

func (h *Handler) register(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Company  string `json:"company"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "auth.register", trace.WithAttributes(attribute.String("user.role", payload.Role)))
	defer span.End()

	user, err := h.svc.Register(ctx, identity.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     entity.Role(payload.Role),
		Company:  payload.Company,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	if !user.Approved {
		b.WithMeta("notice", "account pending administrator approval")
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromUser(user)).Build()
}

func (h *Handler) login(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Email == "" || payload.Password == "" {
		return b.WithError(errorbank.BadRequest("email and password are required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "auth.login")
	defer span.End()

	session, err := h.svc.Authenticate(ctx, payload.Email, payload.Password)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      dto.FromUser(session.User),
	}).Build()
}

func (h *Handler) approve(c echo.Context) error {
	b := response.New(c)

	p, err := middleware.Principal(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "users.approve", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	user, err := h.svc.Approve(ctx, p, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromUser(user)).Build()
}
