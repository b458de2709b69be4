package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/attachment"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/event"
	"github.com/Additional-Code/procura/internal/identity"
	"github.com/Additional-Code/procura/internal/policy"
	"github.com/Additional-Code/procura/internal/ranking"
	"github.com/Additional-Code/procura/internal/repository"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/procura/service/quote")

// Store is the quote persistence the lifecycle needs.
type Store interface {
	Create(ctx context.Context, quote *entity.Quote) error
	GetByID(ctx context.Context, id int64) (*entity.Quote, error)
	AppendAttachment(ctx context.Context, id, vendorID int64, ref string) (*entity.Quote, error)
	ListByRFP(ctx context.Context, rfpID int64) ([]entity.Quote, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]entity.Quote, error)
}

// RFPReader loads the RFP a quote targets.
type RFPReader interface {
	GetByID(ctx context.Context, id int64) (*entity.RFP, error)
}

// ItemInput is one client-supplied line. Any client-side totals are ignored.
type ItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// SubmitInput carries a vendor's quote.
type SubmitInput struct {
	RFPID        int64
	Items        []ItemInput
	DeliveryTime int
	Terms        string
}

// Evaluation is a ranked view over an RFP's quotes.
type Evaluation struct {
	RFP    *entity.RFP
	Quotes map[int64]entity.Quote
	Result ranking.Evaluation
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store       Store
	RFPs        RFPReader
	Engine      *ranking.Engine
	Attachments attachment.Store
	Events      event.Publisher
	Logger      *zap.Logger
}

// Service owns quote submission and scoped quote reads.
type Service struct {
	store       Store
	rfps        RFPReader
	engine      *ranking.Engine
	attachments attachment.Store
	events      event.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:       p.Store,
		rfps:        p.RFPs,
		engine:      p.Engine,
		attachments: p.Attachments,
		events:      p.Events,
		logger:      p.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a vendor's quote against a published RFP. Line totals and
// the quote total are always recomputed here.
func (s *Service) Submit(ctx context.Context, p identity.Principal, in SubmitInput) (*entity.Quote, error) {
	ctx, span := serviceTracer.Start(ctx, "QuoteService.Submit", trace.WithAttributes(attribute.Int64("rfp.id", in.RFPID)))
	defer span.End()

	pol, err := policy.For(p.Role)
	if err != nil || !pol.Allows(policy.ActionSubmitQuote) {
		return nil, errorbank.Forbidden("only vendors can submit quotes")
	}

	items, total, err := priceItems(in.Items)
	if err != nil {
		return nil, err
	}
	if in.DeliveryTime < 1 {
		return nil, errorbank.BadRequest("delivery time must be at least one day")
	}

	rfp, err := s.rfps.GetByID(ctx, in.RFPID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorbank.NotFound("rfp not found")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load rfp", errorbank.WithCause(err))
	}
	if rfp.Status != entity.RFPPublished {
		return nil, errorbank.InvalidState("rfp is not accepting quotes", errorbank.WithDetail("status", rfp.Status))
	}

	quote := &entity.Quote{
		RFPID:        rfp.ID,
		VendorID:     p.UserID,
		TotalPrice:   total,
		DeliveryTime: in.DeliveryTime,
		Items:        items,
		Terms:        strings.TrimSpace(in.Terms),
		Attachments:  []string{},
		Status:       entity.QuoteSubmitted,
		SubmittedAt:  s.now(),
	}
	if err := s.store.Create(ctx, quote); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to submit quote", errorbank.WithCause(err))
	}

	s.logger.Info("quote submitted",
		zap.Int64("quote_id", quote.ID),
		zap.Int64("rfp_id", rfp.ID),
		zap.Int64("vendor_id", p.UserID),
		zap.String("total", total.StringFixed(2)),
	)
	s.events.Publish(ctx, event.Envelope{
		Type:     event.QuoteSubmitted,
		RFPID:    rfp.ID,
		QuoteID:  quote.ID,
		BuyerID:  rfp.CreatedBy,
		VendorID: p.UserID,
		Status:   string(quote.Status),
	})
	return quote, nil
}

// AttachFile stores a supporting document and appends its reference to the
// caller's own quote. Only quotes still awaiting a decision accept files.
func (s *Service) AttachFile(ctx context.Context, p identity.Principal, id int64, name string, body io.Reader) (*entity.Quote, error) {
	ctx, span := serviceTracer.Start(ctx, "QuoteService.AttachFile", trace.WithAttributes(attribute.Int64("quote.id", id)))
	defer span.End()

	if p.Role != entity.RoleVendor {
		return nil, errorbank.NotFoundOrForbidden("quote")
	}
	quote, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && quote.VendorID != p.UserID) {
		return nil, errorbank.NotFoundOrForbidden("quote")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load quote", errorbank.WithCause(err))
	}
	if quote.Status != entity.QuoteSubmitted && quote.Status != entity.QuoteUnderReview {
		return nil, errorbank.InvalidState("quote no longer accepts attachments", errorbank.WithDetail("status", quote.Status))
	}

	ref, err := s.attachments.Store(ctx, name, body)
	if errors.Is(err, attachment.ErrTooLarge) {
		return nil, errorbank.BadRequest("attachment too large")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attachment store error")
		return nil, errorbank.Internal("failed to store attachment", errorbank.WithCause(err))
	}

	quote, err = s.store.AppendAttachment(ctx, id, p.UserID, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorbank.NotFoundOrForbidden("quote")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to attach file", errorbank.WithCause(err))
	}
	s.logger.Info("quote attachment stored", zap.Int64("quote_id", id), zap.String("ref", ref))
	return quote, nil
}

// ListForRFP returns an RFP's quotes in submission order to the RFP owner,
// approvers and admins.
func (s *Service) ListForRFP(ctx context.Context, p identity.Principal, rfpID int64) ([]entity.Quote, error) {
	ctx, span := serviceTracer.Start(ctx, "QuoteService.ListForRFP", trace.WithAttributes(attribute.Int64("rfp.id", rfpID)))
	defer span.End()

	if _, err := s.reviewable(ctx, p, rfpID); err != nil {
		return nil, err
	}
	quotes, err := s.store.ListByRFP(ctx, rfpID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list quotes", errorbank.WithCause(err))
	}
	return quotes, nil
}

// ListForVendor returns the caller's own quotes.
func (s *Service) ListForVendor(ctx context.Context, p identity.Principal) ([]entity.Quote, error) {
	ctx, span := serviceTracer.Start(ctx, "QuoteService.ListForVendor", trace.WithAttributes(attribute.Int64("vendor.id", p.UserID)))
	defer span.End()

	if p.Role != entity.RoleVendor {
		return nil, errorbank.Forbidden("only vendors have quotes")
	}
	quotes, err := s.store.ListByVendor(ctx, p.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list quotes", errorbank.WithCause(err))
	}
	return quotes, nil
}

// Evaluate ranks an RFP's quotes against its budget.
func (s *Service) Evaluate(ctx context.Context, p identity.Principal, rfpID int64) (*Evaluation, error) {
	ctx, span := serviceTracer.Start(ctx, "QuoteService.Evaluate", trace.WithAttributes(attribute.Int64("rfp.id", rfpID)))
	defer span.End()

	rfp, err := s.reviewable(ctx, p, rfpID)
	if err != nil {
		return nil, err
	}
	quotes, err := s.store.ListByRFP(ctx, rfpID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list quotes", errorbank.WithCause(err))
	}

	candidates := make([]ranking.Candidate, len(quotes))
	byID := make(map[int64]entity.Quote, len(quotes))
	for i, q := range quotes {
		candidates[i] = ranking.Candidate{
			QuoteID:      q.ID,
			VendorID:     q.VendorID,
			Price:        q.TotalPrice.InexactFloat64(),
			DeliveryDays: q.DeliveryTime,
		}
		byID[q.ID] = q
	}

	result, err := s.engine.Rank(candidates, rfp.Budget.InexactFloat64())
	if errors.Is(err, ranking.ErrNoCandidates) {
		return nil, errorbank.BadRequest("rfp has no quotes to evaluate")
	}
	if err != nil {
		return nil, errorbank.Internal("failed to evaluate quotes", errorbank.WithCause(err))
	}
	return &Evaluation{RFP: rfp, Quotes: byID, Result: result}, nil
}

func (s *Service) reviewable(ctx context.Context, p identity.Principal, rfpID int64) (*entity.RFP, error) {
	pol, err := policy.For(p.Role)
	if err != nil {
		return nil, errorbank.Forbidden("unknown role")
	}
	rfp, err := s.rfps.GetByID(ctx, rfpID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorbank.NotFound("rfp not found")
	}
	if err != nil {
		return nil, errorbank.Internal("failed to load rfp", errorbank.WithCause(err))
	}
	if !pol.CanReviewQuotes(p, rfp) {
		return nil, errorbank.Forbidden("not allowed to view quotes for this rfp")
	}
	return rfp, nil
}

func priceItems(in []ItemInput) ([]entity.QuoteItem, decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, decimal.Zero, errorbank.BadRequest("at least one item is required")
	}
	items := make([]entity.QuoteItem, len(in))
	total := decimal.Zero
	for i, item := range in {
		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			return nil, decimal.Zero, errorbank.BadRequest(fmt.Sprintf("item %d: description is required", i+1))
		}
		if !item.Quantity.IsPositive() {
			return nil, decimal.Zero, errorbank.BadRequest(fmt.Sprintf("item %d: quantity must be greater than zero", i+1))
		}
		if item.UnitPrice.IsNegative() {
			return nil, decimal.Zero, errorbank.BadRequest(fmt.Sprintf("item %d: unit price cannot be negative", i+1))
		}
		line := item.Quantity.Mul(item.UnitPrice).Round(2)
		items[i] = entity.QuoteItem{
			Description: desc,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   line,
		}
		total = total.Add(line)
	}
	if !total.IsPositive() {
		return nil, decimal.Zero, errorbank.BadRequest("quote total must be greater than zero")
	}
	return items, total, nil
}
