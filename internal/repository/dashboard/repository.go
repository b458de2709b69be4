// Package dashboard runs the read-only aggregate queries behind the
// per-role statistics. All queries go to the reader connection.
package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/procura/repository/dashboard")

// RFPFilter narrows RFP counts. Zero values are ignored.
type RFPFilter struct {
	CreatedBy int64
	Status    entity.RFPStatus
}

// QuoteFilter narrows quote counts. Zero values are ignored.
type QuoteFilter struct {
	VendorID int64
	Status   entity.QuoteStatus
}

// OrderFilter narrows order aggregates. Zero values are ignored.
type OrderFilter struct {
	BuyerID      int64
	VendorID     int64
	Status       entity.OrderStatus
	CreatedSince time.Time
	DecidedSince time.Time
}

// Repository runs dashboard aggregates.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a repository backed by the reader connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// CountUsers counts all registered users.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.CountUsers")
	defer span.End()

	n, err := r.reader.NewSelect().Model((*entity.User)(nil)).Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
	}
	return n, err
}

// CountRFPs counts RFPs matching f.
func (r *Repository) CountRFPs(ctx context.Context, f RFPFilter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.CountRFPs")
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.RFP)(nil))
	if f.CreatedBy != 0 {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	n, err := q.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
	}
	return n, err
}

// CountQuotes counts quotes matching f.
func (r *Repository) CountQuotes(ctx context.Context, f QuoteFilter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.CountQuotes")
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.Quote)(nil))
	if f.VendorID != 0 {
		q = q.Where("vendor_id = ?", f.VendorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	n, err := q.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
	}
	return n, err
}

// CountOrders counts purchase orders matching f.
func (r *Repository) CountOrders(ctx context.Context, f OrderFilter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.CountOrders")
	defer span.End()

	n, err := orderFilter(r.reader.NewSelect().Model((*entity.PurchaseOrder)(nil)), f).Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
	}
	return n, err
}

// SumOrderTotals sums total_amount over orders matching f.
func (r *Repository) SumOrderTotals(ctx context.Context, f OrderFilter) (decimal.Decimal, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.SumOrderTotals")
	defer span.End()

	var sum decimal.NullDecimal
	q := r.reader.NewSelect().
		Model((*entity.PurchaseOrder)(nil)).
		ColumnExpr("SUM(total_amount)")
	if err := orderFilter(q, f).Scan(ctx, &sum); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sum failed")
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// DecisionLatencies returns creation-to-decision durations for decided
// orders matching f.
func (r *Repository) DecisionLatencies(ctx context.Context, f OrderFilter) ([]time.Duration, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.DecisionLatencies")
	defer span.End()

	var rows []entity.PurchaseOrder
	q := r.reader.NewSelect().
		Model(&rows).
		Column("created_at", "decided_at").
		Where("decided_at IS NOT NULL")
	if err := orderFilter(q, f).Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}

	out := make([]time.Duration, 0, len(rows))
	for _, row := range rows {
		if row.DecidedAt.IsZero() {
			continue
		}
		out = append(out, row.DecidedAt.Sub(row.CreatedAt))
	}
	return out, nil
}

func orderFilter(q *bun.SelectQuery, f OrderFilter) *bun.SelectQuery {
	if f.BuyerID != 0 {
		q = q.Where("buyer_id = ?", f.BuyerID)
	}
	if f.VendorID != 0 {
		q = q.Where("vendor_id = ?", f.VendorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.CreatedSince.IsZero() {
		q = q.Where("created_at >= ?", f.CreatedSince)
	}
	if !f.DecidedSince.IsZero() {
		q = q.Where("decided_at >= ?", f.DecidedSince)
	}
	return q
}
