package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/cache"
	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/identity"
	repo "github.com/Additional-Code/procura/internal/repository/dashboard"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/procura/service/dashboard")

// Stats is the aggregate source the metric sets read from.
type Stats interface {
	CountUsers(ctx context.Context) (int, error)
	CountRFPs(ctx context.Context, f repo.RFPFilter) (int, error)
	CountQuotes(ctx context.Context, f repo.QuoteFilter) (int, error)
	CountOrders(ctx context.Context, f repo.OrderFilter) (int, error)
	SumOrderTotals(ctx context.Context, f repo.OrderFilter) (decimal.Decimal, error)
	DecisionLatencies(ctx context.Context, f repo.OrderFilter) ([]time.Duration, error)
}

// Metrics is a flat name to value payload.
type Metrics map[string]float64

type metricSet func(ctx context.Context, stats Stats, p identity.Principal, now time.Time) (Metrics, error)

var registry = map[entity.Role]metricSet{
	entity.RoleBuyer:    buyerMetrics,
	entity.RoleVendor:   vendorMetrics,
	entity.RoleApprover: approverMetrics,
	entity.RoleAdmin:    adminMetrics,
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Stats  Stats
	Cache  cache.Store
	Config config.Config
	Logger *zap.Logger
}

// Service computes role-scoped dashboard statistics. Results may be stale by
// up to the configured cache TTL.
type Service struct {
	stats  Stats
	cache  cache.Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		stats:  p.Stats,
		cache:  p.Cache,
		ttl:    p.Config.Dashboard.CacheTTL,
		logger: p.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Stats returns the metric set for the caller's role.
func (s *Service) Stats(ctx context.Context, p identity.Principal) (Metrics, error) {
	ctx, span := serviceTracer.Start(ctx, "DashboardService.Stats", trace.WithAttributes(attribute.String("principal.role", string(p.Role))))
	defer span.End()

	compute, ok := registry[p.Role]
	if !ok {
		return nil, errorbank.Forbidden("no dashboard for role")
	}

	key := CacheKey(p.Role, p.UserID)
	var cached Metrics
	if err := cache.LoadJSON(ctx, s.cache, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}

	metrics, err := compute(ctx, s.stats, p, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		return nil, errorbank.Internal("failed to compute dashboard", errorbank.WithCause(err))
	}

	if s.ttl > 0 {
		if err := cache.StoreJSON(ctx, s.cache, key, metrics, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return metrics, nil
}

// CacheKey is the cache entry for a role's dashboard. Buyer and vendor
// dashboards are per user; approver and admin dashboards are global.
func CacheKey(role entity.Role, userID int64) string {
	switch role {
	case entity.RoleBuyer, entity.RoleVendor:
		return fmt.Sprintf("dashboard:%s:%d", role, userID)
	default:
		return fmt.Sprintf("dashboard:%s", role)
	}
}

func buyerMetrics(ctx context.Context, stats Stats, p identity.Principal, _ time.Time) (Metrics, error) {
	var c counter
	return Metrics{
		"totalRFPs":     c.n(stats.CountRFPs(ctx, repo.RFPFilter{CreatedBy: p.UserID})),
		"activeRFPs":    c.n(stats.CountRFPs(ctx, repo.RFPFilter{CreatedBy: p.UserID, Status: entity.RFPPublished})),
		"totalOrders":   c.n(stats.CountOrders(ctx, repo.OrderFilter{BuyerID: p.UserID})),
		"pendingOrders": c.n(stats.CountOrders(ctx, repo.OrderFilter{BuyerID: p.UserID, Status: entity.OrderPending})),
	}, c.err
}

func vendorMetrics(ctx context.Context, stats Stats, p identity.Principal, _ time.Time) (Metrics, error) {
	var c counter
	return Metrics{
		"totalQuotes":    c.n(stats.CountQuotes(ctx, repo.QuoteFilter{VendorID: p.UserID})),
		"acceptedQuotes": c.n(stats.CountQuotes(ctx, repo.QuoteFilter{VendorID: p.UserID, Status: entity.QuoteAccepted})),
		"totalOrders":    c.n(stats.CountOrders(ctx, repo.OrderFilter{VendorID: p.UserID})),
		"activeOrders":   c.n(stats.CountOrders(ctx, repo.OrderFilter{VendorID: p.UserID, Status: entity.OrderApproved})),
	}, c.err
}

func approverMetrics(ctx context.Context, stats Stats, _ identity.Principal, now time.Time) (Metrics, error) {
	var c counter
	approved := repo.OrderFilter{Status: entity.OrderApproved}
	metrics := Metrics{
		"pendingApprovals":   c.n(stats.CountOrders(ctx, repo.OrderFilter{Status: entity.OrderPending})),
		"approvedThisMonth":  c.n(stats.CountOrders(ctx, repo.OrderFilter{Status: entity.OrderApproved, DecidedSince: monthStart(now)})),
		"totalValueApproved": c.money(stats.SumOrderTotals(ctx, approved)),
	}
	latencies, err := stats.DecisionLatencies(ctx, approved)
	if err != nil && c.err == nil {
		c.err = err
	}
	metrics["avgApprovalTime"] = averageDays(latencies)
	return metrics, c.err
}

func adminMetrics(ctx context.Context, stats Stats, _ identity.Principal, now time.Time) (Metrics, error) {
	var c counter
	return Metrics{
		"totalUsers":            c.n(stats.CountUsers(ctx)),
		"totalActiveRFPs":       c.n(stats.CountRFPs(ctx, repo.RFPFilter{Status: entity.RFPPublished})),
		"totalPendingApprovals": c.n(stats.CountOrders(ctx, repo.OrderFilter{Status: entity.OrderPending})),
		"monthlyVolume":         c.money(stats.SumOrderTotals(ctx, repo.OrderFilter{CreatedSince: monthStart(now)})),
	}, c.err
}

// counter keeps the first aggregate error so metric sets read as one literal.
type counter struct {
	err error
}

func (c *counter) n(v int, err error) float64 {
	if err != nil && c.err == nil {
		c.err = err
	}
	return float64(v)
}

func (c *counter) money(v decimal.Decimal, err error) float64 {
	if err != nil && c.err == nil {
		c.err = err
	}
	return v.Round(2).InexactFloat64()
}

// averageDays is the mean latency in days, to one decimal.
func averageDays(latencies []time.Duration) float64 {
	if len(latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	days := total.Hours() / 24 / float64(len(latencies))
	return math.Round(days*10) / 10
}

func monthStart(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}
