package quote

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/repository"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/procura/repository/quote")

// Repository encapsulates read/write access for quotes.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer, reader: conns.Reader}
}

// Create persists a new quote.
func (r *Repository) Create(ctx context.Context, quote *entity.Quote) error {
	if quote == nil {
		return errors.New("nil quote")
	}
	ctx, span := repoTracer.Start(ctx, "QuoteRepository.Create", trace.WithAttributes(attribute.Int64("quote.rfp_id", quote.RFPID)))
	defer span.End()

	if _, err := r.writer.NewInsert().Model(quote).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// GetByID fetches a quote by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Quote, error) {
	ctx, span := repoTracer.Start(ctx, "QuoteRepository.GetByID", trace.WithAttributes(attribute.Int64("quote.id", id)))
	defer span.End()

	quote := new(entity.Quote)
	err := r.reader.NewSelect().Model(quote).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, repository.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return quote, nil
}

// ListByRFP returns an RFP's quotes in submission order.
func (r *Repository) ListByRFP(ctx context.Context, rfpID int64) ([]entity.Quote, error) {
	ctx, span := repoTracer.Start(ctx, "QuoteRepository.ListByRFP", trace.WithAttributes(attribute.Int64("rfp.id", rfpID)))
	defer span.End()

	var quotes []entity.Quote
	err := r.reader.NewSelect().Model(&quotes).
		Where("rfp_id = ?", rfpID).
		Order("submitted_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return quotes, nil
}

// ListByVendor returns a vendor's own quotes, newest first.
func (r *Repository) ListByVendor(ctx context.Context, vendorID int64) ([]entity.Quote, error) {
	ctx, span := repoTracer.Start(ctx, "QuoteRepository.ListByVendor", trace.WithAttributes(attribute.Int64("vendor.id", vendorID)))
	defer span.End()

	var quotes []entity.Quote
	err := r.reader.NewSelect().Model(&quotes).
		Where("vendor_id = ?", vendorID).
		Order("submitted_at DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return quotes, nil
}

// AppendAttachment adds ref to a quote submitted by vendorID.
func (r *Repository) AppendAttachment(ctx context.Context, id, vendorID int64, ref string) (*entity.Quote, error) {
	ctx, span := repoTracer.Start(ctx, "QuoteRepository.AppendAttachment", trace.WithAttributes(attribute.Int64("quote.id", id)))
	defer span.End()

	quote := new(entity.Quote)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(quote).Where("id = ?", id).Where("vendor_id = ?", vendorID)
		if tx.Dialect().Name() != dialect.SQLite {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return err
		}
		quote.Attachments = append(quote.Attachments, ref)
		_, err := tx.NewUpdate().Model(quote).Column("attachments").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "attachment update failed")
		}
		return nil, err
	}
	return quote, nil
}
