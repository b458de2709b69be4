package order

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/procura/internal/dto"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/identity"
	"github.com/Additional-Code/procura/internal/presentation/http/response"
	service "github.com/Additional-Code/procura/internal/service/order"
	"github.com/Additional-Code/procura/internal/transport/http/middleware"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/procura/transport/http/order")

// Service is the approval state machine surface the handler needs.
type Service interface {
	Award(ctx context.Context, p identity.Principal, in service.AwardInput) (*entity.PurchaseOrder, error)
	Decide(ctx context.Context, p identity.Principal, orderID int64, in service.DecideInput) (*entity.PurchaseOrder, error)
	ListFor(ctx context.Context, p identity.Principal) ([]entity.PurchaseOrder, error)
	Get(ctx context.Context, p identity.Principal, id int64) (*entity.PurchaseOrder, error)
}

// Handler exposes purchase order endpoints over HTTP.
type Handler struct {
	svc Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, auth *middleware.Authenticator) {
	g := e.Group("/purchase-orders", auth.Require)
	g.POST("", h.award)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.PUT("/:id/approve", h.decide)
}

func (h *Handler) award(c echo.Context) error {
	b := response.New(c)
	p, err := middleware.Principal(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		RFPID    int64 `json:"rfp_id"`
		QuoteID  int64 `json:"quote_id"`
		VendorID int64 `json:"vendor_id"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.RFPID <= 0 || payload.QuoteID <= 0 || payload.VendorID <= 0 {
		return b.WithError(errorbank.BadRequest("rfp_id, quote_id and vendor_id are required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.award")
	span.SetAttributes(
		attribute.Int64("rfp.id", payload.RFPID),
		attribute.Int64("quote.id", payload.QuoteID),
	)
	defer span.End()

	order, err := h.svc.Award(ctx, p, service.AwardInput{
		RFPID:    payload.RFPID,
		QuoteID:  payload.QuoteID,
		VendorID: payload.VendorID,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	p, err := middleware.Principal(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.svc.ListFor(ctx, p)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrders(orders)).WithCount(len(orders)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	p, id, err := principalAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, p, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) decide(c echo.Context) error {
	b := response.New(c)
	p, id, err := principalAndID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Status   string `json:"status"`
		Comments string `json:"comments"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.decide", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.decision", payload.Status),
	))
	defer span.End()

	order, err := h.svc.Decide(ctx, p, id, service.DecideInput{
		Decision: entity.Decision(payload.Status),
		Comments: payload.Comments,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
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
