package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/cache"
	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/event"
	"github.com/Additional-Code/procura/internal/identity"
	"github.com/Additional-Code/procura/internal/policy"
	"github.com/Additional-Code/procura/internal/repository"
	repo "github.com/Additional-Code/procura/internal/repository/order"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var (
	serviceTracer = otel.Tracer("github.com/Additional-Code/procura/service/order")
	serviceMeter  = otel.Meter("github.com/Additional-Code/procura/service/order")
)

// Store is the purchase order persistence the state machine needs.
type Store interface {
	Award(ctx context.Context, in repo.AwardInput) (*entity.PurchaseOrder, error)
	Decide(ctx context.Context, orderID int64, record entity.ApprovalRecord) (*entity.PurchaseOrder, error)
	Get(ctx context.Context, id int64, scope policy.OrderScope) (*entity.PurchaseOrder, error)
	List(ctx context.Context, scope policy.OrderScope) ([]entity.PurchaseOrder, error)
}

// RFPReader loads RFPs for ownership checks.
type RFPReader interface {
	GetByID(ctx context.Context, id int64) (*entity.RFP, error)
}

// QuoteReader loads quotes for award validation.
type QuoteReader interface {
	GetByID(ctx context.Context, id int64) (*entity.Quote, error)
}

// AwardInput names the quote a buyer is awarding.
type AwardInput struct {
	RFPID    int64
	QuoteID  int64
	VendorID int64
}

// DecideInput is an approver's verdict on a pending order.
type DecideInput struct {
	Decision entity.Decision
	Comments string
}

// DecisionLatencyMetric is the histogram of award-to-decision time in hours.
const DecisionLatencyMetric = "procura.orders.decision_latency"

// Service runs the purchase order approval state machine.
type Service struct {
	store     Store
	rfps      RFPReader
	quotes    QuoteReader
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	events    event.Publisher
	awards    metric.Int64Counter
	decisions metric.Int64Counter
	latency   metric.Float64Histogram
	now       func() time.Time
	number    func(time.Time) string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store  Store
	RFPs   RFPReader
	Quotes QuoteReader
	Cache  cache.Store
	Config config.Config
	Logger *zap.Logger
	Events event.Publisher
}

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	awards, err := serviceMeter.Int64Counter("procura.orders.awarded",
		metric.WithDescription("Quotes awarded as purchase orders"))
	if err != nil {
		return nil, fmt.Errorf("create award counter: %w", err)
	}
	decisions, err := serviceMeter.Int64Counter("procura.orders.decided",
		metric.WithDescription("Approval decisions recorded against purchase orders"))
	if err != nil {
		return nil, fmt.Errorf("create decision counter: %w", err)
	}
	latency, err := serviceMeter.Float64Histogram(DecisionLatencyMetric,
		metric.WithDescription("Time from award to approval decision"),
		metric.WithUnit("h"))
	if err != nil {
		return nil, fmt.Errorf("create decision latency histogram: %w", err)
	}

	return &Service{
		store:     p.Store,
		rfps:      p.RFPs,
		quotes:    p.Quotes,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		events:    p.Events,
		awards:    awards,
		decisions: decisions,
		latency:   latency,
		now:       func() time.Time { return time.Now().UTC() },
		number:    orderNumber,
	}, nil
}

// Award converts a submitted quote into a pending purchase order. The quote
// flip, the order, its first approval record and the RFP status change
// commit together; losing a race to another award yields a conflict.
func (s *Service) Award(ctx context.Context, p identity.Principal, in AwardInput) (*entity.PurchaseOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Award", trace.WithAttributes(
		attribute.Int64("rfp.id", in.RFPID),
		attribute.Int64("quote.id", in.QuoteID),
	))
	defer span.End()

	pol, err := policy.For(p.Role)
	if err != nil || !pol.Allows(policy.ActionAwardQuote) {
		return nil, errorbank.Forbidden("only buyers can award quotes")
	}

	rfp, err := s.rfps.GetByID(ctx, in.RFPID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && rfp.CreatedBy != p.UserID) {
		return nil, errorbank.NotFoundOrForbidden("rfp")
	}
	if err != nil {
		return nil, s.internal(span, "failed to load rfp", err)
	}

	quote, err := s.quotes.GetByID(ctx, in.QuoteID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorbank.NotFound("quote not found")
	}
	if err != nil {
		return nil, s.internal(span, "failed to load quote", err)
	}
	if quote.RFPID != in.RFPID || quote.VendorID != in.VendorID {
		return nil, errorbank.BadRequest("quote does not belong to the given rfp and vendor")
	}

	order, err := s.store.Award(ctx, repo.AwardInput{
		RFPID:      in.RFPID,
		QuoteID:    in.QuoteID,
		VendorID:   in.VendorID,
		BuyerID:    p.UserID,
		Now:        s.now(),
		NextNumber: s.number,
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, errorbank.Conflict("quote is no longer open for award", errorbank.WithDetail("quote_id", in.QuoteID))
	}
	if err != nil {
		return nil, s.internal(span, "failed to award quote", err)
	}

	s.awards.Add(ctx, 1)
	s.logger.Info("quote awarded",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.Number),
		zap.Int64("quote_id", order.QuoteID),
		zap.Int64("buyer_id", order.BuyerID),
	)
	s.storeInCache(ctx, order)
	s.events.Publish(ctx, event.Envelope{
		Type:     event.OrderAwarded,
		RFPID:    order.RFPID,
		QuoteID:  order.QuoteID,
		OrderID:  order.ID,
		BuyerID:  order.BuyerID,
		VendorID: order.VendorID,
		Status:   string(order.Status),
	})
	return order, nil
}

// Decide records an approver's decision. Only pending orders can be decided;
// anything else is a conflict and leaves the approval log untouched.
func (s *Service) Decide(ctx context.Context, p identity.Principal, orderID int64, in DecideInput) (*entity.PurchaseOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Decide", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.decision", string(in.Decision)),
	))
	defer span.End()

	pol, err := policy.For(p.Role)
	if err != nil || !pol.Allows(policy.ActionDecideOrder) {
		return nil, errorbank.Forbidden("only approvers can decide purchase orders")
	}
	if !in.Decision.Valid() {
		return nil, errorbank.BadRequest("decision must be approved or rejected", errorbank.WithDetail("decision", in.Decision))
	}

	order, err := s.store.Decide(ctx, orderID, entity.ApprovalRecord{
		ApproverID: p.UserID,
		Decision:   in.Decision,
		Comments:   strings.TrimSpace(in.Comments),
		DecidedAt:  s.now(),
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, errorbank.NotFound("purchase order not found")
	case errors.Is(err, repository.ErrConflict):
		return nil, errorbank.Conflict("purchase order is not pending", errorbank.WithDetail("order_id", orderID))
	case err != nil:
		return nil, s.internal(span, "failed to decide purchase order", err)
	}

	decided := metric.WithAttributes(attribute.String("decision", string(in.Decision)))
	s.decisions.Add(ctx, 1, decided)
	if !order.CreatedAt.IsZero() && !order.DecidedAt.IsZero() {
		s.latency.Record(ctx, order.DecidedAt.Sub(order.CreatedAt).Hours(), decided)
	}
	s.logger.Info("purchase order decided",
		zap.Int64("order_id", order.ID),
		zap.String("decision", string(in.Decision)),
		zap.Int64("approver_id", p.UserID),
	)
	s.storeInCache(ctx, order)
	s.events.Publish(ctx, event.Envelope{
		Type:     event.OrderDecided,
		RFPID:    order.RFPID,
		QuoteID:  order.QuoteID,
		OrderID:  order.ID,
		BuyerID:  order.BuyerID,
		VendorID: order.VendorID,
		Status:   string(order.Status),
	})
	return order, nil
}

// ListFor returns the orders visible to the caller, newest first.
func (s *Service) ListFor(ctx context.Context, p identity.Principal) ([]entity.PurchaseOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListFor", trace.WithAttributes(attribute.String("principal.role", string(p.Role))))
	defer span.End()

	pol, err := policy.For(p.Role)
	if err != nil {
		return nil, errorbank.Forbidden("unknown role")
	}
	orders, err := s.store.List(ctx, pol.OrderScope(p))
	if err != nil {
		return nil, s.internal(span, "failed to list purchase orders", err)
	}
	return orders, nil
}

// Get returns one order with its approval log if it is visible to the caller.
func (s *Service) Get(ctx context.Context, p identity.Principal, id int64) (*entity.PurchaseOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	pol, err := policy.For(p.Role)
	if err != nil {
		return nil, errorbank.Forbidden("unknown role")
	}
	scope := pol.OrderScope(p)

	order, err := s.getFromCache(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
		}
		order, err = s.store.Get(ctx, id, policy.OrderScope{})
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorbank.NotFoundOrForbidden("purchase order")
		}
		if err != nil {
			return nil, s.internal(span, "failed to load purchase order", err)
		}
		s.storeInCache(ctx, order)
	}

	if !inScope(order, scope) {
		return nil, errorbank.NotFoundOrForbidden("purchase order")
	}
	return order, nil
}

func (s *Service) internal(span trace.Span, message string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, message)
	return errorbank.Internal(message, errorbank.WithCause(err))
}

func inScope(order *entity.PurchaseOrder, scope policy.OrderScope) bool {
	if scope.BuyerID != 0 && order.BuyerID != scope.BuyerID {
		return false
	}
	if scope.VendorID != 0 && order.VendorID != scope.VendorID {
		return false
	}
	return true
}

// orderNumber is timestamp-derived with a random suffix; the repository
// still checks it for collisions.
func orderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PO-%s-%s", now.Format("20060102150405"), suffix)
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	var order entity.PurchaseOrder
	if err := cache.LoadJSON(ctx, s.cache, s.cacheKey(id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.PurchaseOrder) {
	if order == nil {
		return
	}
	if err := cache.StoreJSON(ctx, s.cache, s.cacheKey(order.ID), order, s.cacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}
}
