package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/policy"
	"github.com/Additional-Code/procura/internal/repository"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/procura/repository/order")

const maxNumberAttempts = 5

// ErrNumberExhausted is returned when no free order number was produced.
var ErrNumberExhausted = errors.New("could not allocate a unique order number")

// AwardInput describes a quote award.
type AwardInput struct {
	RFPID    int64
	QuoteID  int64
	VendorID int64
	BuyerID  int64
	Now      time.Time
	// NextNumber proposes order numbers; each is checked for collisions.
	NextNumber func(time.Time) string
}

// Repository encapsulates read/write access for purchase orders and their
// approval log. The log is only ever inserted into and read.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Award accepts a submitted quote and opens a pending purchase order for it,
// recording the buyer's own approval and marking the RFP awarded. Everything
// commits together. A quote no longer submitted or an RFP no longer
// published yields repository.ErrConflict.
func (r *Repository) Award(ctx context.Context, in AwardInput) (*entity.PurchaseOrder, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Award", trace.WithAttributes(
		attribute.Int64("rfp.id", in.RFPID),
		attribute.Int64("quote.id", in.QuoteID),
	))
	defer span.End()

	order := &entity.PurchaseOrder{
		RFPID:     in.RFPID,
		QuoteID:   in.QuoteID,
		VendorID:  in.VendorID,
		BuyerID:   in.BuyerID,
		Status:    entity.OrderPending,
		CreatedAt: in.Now,
		UpdatedAt: in.Now,
	}

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*entity.Quote)(nil)).
			Set("status = ?", entity.QuoteAccepted).
			Where("id = ?", in.QuoteID).
			Where("rfp_id = ?", in.RFPID).
			Where("vendor_id = ?", in.VendorID).
			Where("status = ?", entity.QuoteSubmitted).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("accept quote: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrConflict
		}

		quote := new(entity.Quote)
		if err := tx.NewSelect().Model(quote).Column("total_price").Where("id = ?", in.QuoteID).Scan(ctx); err != nil {
			return fmt.Errorf("load quote total: %w", err)
		}
		order.TotalAmount = quote.TotalPrice

		number, err := allocateNumber(ctx, tx, in)
		if err != nil {
			return err
		}
		order.Number = number

		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			if repository.IsUniqueViolation(err) {
				return repository.ErrConflict
			}
			return fmt.Errorf("insert order: %w", err)
		}

		first := entity.ApprovalRecord{
			OrderID:    order.ID,
			ApproverID: in.BuyerID,
			Decision:   entity.DecisionApproved,
			DecidedAt:  in.Now,
		}
		if _, err := tx.NewInsert().Model(&first).Exec(ctx); err != nil {
			return fmt.Errorf("insert approval: %w", err)
		}
		order.Approvals = []entity.ApprovalRecord{first}

		res, err = tx.NewUpdate().
			Model((*entity.RFP)(nil)).
			Set("status = ?", entity.RFPAwarded).
			Set("updated_at = ?", in.Now).
			Where("id = ?", in.RFPID).
			Where("status = ?", entity.RFPPublished).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("award rfp: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrConflict
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "award failed")
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("order.number", order.Number))
	return order, nil
}

// Decide moves a pending order to the decision's status and appends the
// record. Orders that are no longer pending yield repository.ErrConflict and
// nothing is appended. The returned order is read back inside the same
// transaction so it never lags behind a replica.
func (r *Repository) Decide(ctx context.Context, orderID int64, record entity.ApprovalRecord) (*entity.PurchaseOrder, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Decide", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.decision", string(record.Decision)),
	))
	defer span.End()

	record.OrderID = orderID
	order := new(entity.PurchaseOrder)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*entity.PurchaseOrder)(nil)).
			Set("status = ?", record.Decision.OrderStatus()).
			Set("decided_at = ?", record.DecidedAt).
			Set("updated_at = ?", record.DecidedAt).
			Where("id = ?", orderID).
			Where("status = ?", entity.OrderPending).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			exists, err := tx.NewSelect().Model((*entity.PurchaseOrder)(nil)).Where("id = ?", orderID).Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return repository.ErrNotFound
			}
			return repository.ErrConflict
		}
		if _, err := tx.NewInsert().Model(&record).Exec(ctx); err != nil {
			return fmt.Errorf("insert approval: %w", err)
		}

		if err := tx.NewSelect().Model(order).Where("id = ?", orderID).Scan(ctx); err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		order.Approvals, err = approvalLog(ctx, tx, orderID)
		return err
	})
	if err != nil {
		if !errors.Is(err, repository.ErrConflict) && !errors.Is(err, repository.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decide failed")
		}
		return nil, err
	}
	return order, nil
}

// Get fetches an order with its approval log when it falls inside scope.
func (r *Repository) Get(ctx context.Context, id int64, scope policy.OrderScope) (*entity.PurchaseOrder, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.PurchaseOrder)
	q := r.reader.NewSelect().Model(order).Relation("Approvals", orderApprovals).Where("purchase_order.id = ?", id)
	err := applyScope(q, scope).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, repository.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns the orders inside scope, newest first.
func (r *Repository) List(ctx context.Context, scope policy.OrderScope) ([]entity.PurchaseOrder, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []entity.PurchaseOrder
	q := r.reader.NewSelect().Model(&orders).
		Relation("Approvals", orderApprovals).
		Order("purchase_order.created_at DESC", "purchase_order.id DESC")
	if err := applyScope(q, scope).Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// approvalLog reads an order's approval records in the order they were written.
func approvalLog(ctx context.Context, db bun.IDB, orderID int64) ([]entity.ApprovalRecord, error) {
	var records []entity.ApprovalRecord
	if err := db.NewSelect().Model(&records).Where("order_id = ?", orderID).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load approvals: %w", err)
	}
	return records, nil
}

func allocateNumber(ctx context.Context, tx bun.Tx, in AwardInput) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		candidate := in.NextNumber(in.Now)
		taken, err := tx.NewSelect().
			Model((*entity.PurchaseOrder)(nil)).
			Where("number = ?", candidate).
			Exists(ctx)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrNumberExhausted
}

func orderApprovals(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("id ASC")
}

func applyScope(q *bun.SelectQuery, scope policy.OrderScope) *bun.SelectQuery {
	if scope.BuyerID != 0 {
		q = q.Where("purchase_order.buyer_id = ?", scope.BuyerID)
	}
	if scope.VendorID != 0 {
		q = q.Where("purchase_order.vendor_id = ?", scope.VendorID)
	}
	return q
}
