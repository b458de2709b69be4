package rfp

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Additional-Code/procura/internal/dto"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/identity"
	"github.com/Additional-Code/procura/internal/presentation/http/response"
	service "github.com/Additional-Code/procura/internal/service/rfp"
	"github.com/Additional-Code/procura/internal/transport/http/middleware"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/procura/transport/http/rfp")

// Service is the RFP lifecycle surface the handler needs.
type Service interface {
	Create(ctx context.Context, p identity.Principal, in service.CreateInput) (*entity.RFP, error)
	Publish(ctx context.Context, p identity.Principal, id int64) (*entity.RFP, error)
	List(ctx context.Context, p identity.Principal) ([]entity.RFP, error)
	Get(ctx context.Context, p identity.Principal, id int64) (*entity.RFP, error)
	AttachFile(ctx context.Context, p identity.Principal, id int64, name string, body io.Reader) (*entity.RFP, error)
}

// Module wires HTTP RFP handlers.
var Module = fx.Options(
	fx.Provide(
		NewHandler,
		func(svc *service.Service) Service { return svc },
	),
	fx.Invoke(Register),
)

// Handler exposes RFP endpoints over HTTP.
type Handler struct {
	svc Service
}

// NewHandler constructs an RFP Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, auth *middleware.Authenticator) {
	g := e.Group("/rfps", auth.Require)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id/publish", h.publish)
	g.POST("/:id/attachments", h.attach)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	p, err := middleware.Principal(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "rfps.list")
	defer span.End()

	rfps, err := h.svc.List(ctx, p)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromRFPs(rfps)).WithCount(len(rfps)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)
	p, err := middleware.Principal(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Title        string          `json:"title"`
		Description  string          `json:"description"`
		Category     string          `json:"category"`
		Budget       decimal.Decimal `json:"budget"`
		Deadline     string          `json:"deadline"`
		Requirements []string        `json:"requirements"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "rfps.create")
	defer span.End()

	rfp, err := h.svc.Create(ctx, p, service.CreateInput{
		Title:        payload.Title,
		Description:  payload.Description,
		Category:     payload.Category,
		Budget:       payload.Budget,
		Deadline:     payload.Deadline,
		Requirements: payload.Requirements,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromRFP(rfp)).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)
	p, id, err := principalAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "rfps.get", trace.WithAttributes(attribute.Int64("rfp.id", id)))
	defer span.End()

	rfp, err := h.svc.Get(ctx, p, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromRFP(rfp)).Build()
}

func (h *Handler) publish(c echo.Context) error {
	b := response.New(c)
	p, id, err := principalAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "rfps.publish", trace.WithAttributes(attribute.Int64("rfp.id", id)))
	defer span.End()

	rfp, err := h.svc.Publish(ctx, p, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromRFP(rfp)).Build()
}

func (h *Handler) attach(c echo.Context) error {
	b := response.New(c)
	p, id, err := principalAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	file, err := c.FormFile("file")
	if err != nil {
		return b.WithError(errorbank.BadRequest("multipart field \"file\" is required", errorbank.WithCause(err))).Build()
	}
	src, err := file.Open()
	if err != nil {
		return b.WithError(errorbank.BadRequest("unreadable upload", errorbank.WithCause(err))).Build()
	}
	defer src.Close()

	ctx, span := httpTracer.Start(c.Request().Context(), "rfps.attach", trace.WithAttributes(
		attribute.Int64("rfp.id", id),
		attribute.Int64("upload.size", file.Size),
	))
	defer span.End()

	rfp, err := h.svc.AttachFile(ctx, p, id, file.Filename, src)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromRFP(rfp)).Build()
}

func principalAndID(c echo.Context) (identity.Principal, int64, error) {
	p, err := middleware.Principal(c)
	if err != nil {
		return identity.Principal{}, 0, err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return identity.Principal{}, 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return p, id, nil
}
