package quote

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
	service "github.com/Additional-Code/procura/internal/service/quote"
	"github.com/Additional-Code/procura/internal/transport/http/middleware"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/procura/transport/http/quote")

// Service is the quote lifecycle surface the handler needs.
type Service interface {
	Submit(ctx context.Context, p identity.Principal, in service.SubmitInput) (*entity.Quote, error)
	ListForRFP(ctx context.Context, p identity.Principal, rfpID int64) ([]entity.Quote, error)
	ListForVendor(ctx context.Context, p identity.Principal) ([]entity.Quote, error)
	Evaluate(ctx context.Context, p identity.Principal, rfpID int64) (*service.Evaluation, error)
	AttachFile(ctx context.Context, p identity.Principal, id int64, name string, body io.Reader) (*entity.Quote, error)
}

// Module wires HTTP quote handlers.
var Module = fx.Options(
	fx.Provide(
		NewHandler,
		func(svc *service.Service) Service { return svc },
	),
	fx.Invoke(Register),
)

// Handler exposes quote endpoints over HTTP.
type Handler struct {
	svc Service
}

// NewHandler constructs a quote Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, auth *middleware.Authenticator) {
	g := e.Group("/quotes", auth.Require)
	g.POST("", h.submit)
	g.GET("/vendor", h.listForVendor)
	g.GET("/rfp/:rfpId", h.listForRFP)
	g.GET("/rfp/:rfpId/evaluation", h.evaluate)
	g.POST("/:id/attachments", h.attach)
}

func (h *Handler) submit(c echo.Context) error {
	b := response.New(c)
	p, err := middleware.Principal(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	// Any totals the client sends are not read.
	var payload struct {
		RFPID int64 `json:"rfp_id"`
		Items []struct {
			Description string          `json:"description"`
			Quantity    decimal.Decimal `json:"quantity"`
			UnitPrice   decimal.Decimal `json:"unit_price"`
		} `json:"items"`
		DeliveryTime int    `json:"delivery_time"`
		Terms        string `json:"terms"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	items := make([]service.ItemInput, len(payload.Items))
	for i, it := range payload.Items {
		items[i] = service.ItemInput{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "quotes.submit", trace.WithAttributes(attribute.Int64("rfp.id", payload.RFPID)))
	defer span.End()

	quote, err := h.svc.Submit(ctx, p, service.SubmitInput{
		RFPID:        payload.RFPID,
		Items:        items,
		DeliveryTime: payload.DeliveryTime,
		Terms:        payload.Terms,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromQuote(quote)).Build()
}

func (h *Handler) listForVendor(c echo.Context) error {
	b := response.New(c)
	p, err := middleware.Principal(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "quotes.listForVendor")
	defer span.End()

	quotes, err := h.svc.ListForVendor(ctx, p)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromQuotes(quotes)).WithCount(len(quotes)).Build()
}

func (h *Handler) listForRFP(c echo.Context) error {
	b := response.New(c)
	p, rfpID, err := principalAndRFP(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "quotes.listForRFP", trace.WithAttributes(attribute.Int64("rfp.id", rfpID)))
	defer span.End()

	quotes, err := h.svc.ListForRFP(ctx, p, rfpID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromQuotes(quotes)).WithCount(len(quotes)).Build()
}

func (h *Handler) evaluate(c echo.Context) error {
	b := response.New(c)
	p, rfpID, err := principalAndRFP(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "quotes.evaluate", trace.WithAttributes(attribute.Int64("rfp.id", rfpID)))
	defer span.End()

	eval, err := h.svc.Evaluate(ctx, p, rfpID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromEvaluation(rfpID, eval.Result, func(id int64) dto.QuoteResponse {
		q := eval.Quotes[id]
		return dto.FromQuote(&q)
	})).Build()
}

func (h *Handler) attach(c echo.Context) error {
	b := response.New(c)
	p, err := middleware.Principal(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid quote id", errorbank.WithCause(err))).Build()
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

	ctx, span := httpTracer.Start(c.Request().Context(), "quotes.attach", trace.WithAttributes(
		attribute.Int64("quote.id", id),
		attribute.Int64("upload.size", file.Size),
	))
	defer span.End()

	quote, err := h.svc.AttachFile(ctx, p, id, file.Filename, src)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromQuote(quote)).Build()
}

func principalAndRFP(c echo.Context) (identity.Principal, int64, error) {
	p, err := middleware.Principal(c)
	if err != nil {
		return identity.Principal{}, 0, err
	}
	id, err := strconv.ParseInt(c.Param("rfpId"), 10, 64)
	if err != nil {
		return identity.Principal{}, 0, errorbank.BadRequest("invalid rfp id", errorbank.WithCause(err))
	}
	return p, id, nil
}
