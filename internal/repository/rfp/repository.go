package rfp

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/policy"
	"github.com/Additional-Code/procura/internal/repository"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/procura/repository/rfp")

// Repository encapsulates read/write access for RFPs.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer, reader: conns.Reader}
}

// Create persists a new RFP.
func (r *Repository) Create(ctx context.Context, rfp *entity.RFP) error {
	if rfp == nil {
		return errors.New("nil rfp")
	}
	ctx, span := repoTracer.Start(ctx, "RFPRepository.Create", trace.WithAttributes(attribute.Int64("rfp.created_by", rfp.CreatedBy)))
	defer span.End()

	if _, err := r.writer.NewInsert().Model(rfp).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// GetByID fetches an RFP regardless of visibility.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.RFP, error) {
	return r.Get(ctx, id, policy.RFPScope{})
}

// Get fetches an RFP only when it falls inside scope.
func (r *Repository) Get(ctx context.Context, id int64, scope policy.RFPScope) (*entity.RFP, error) {
	ctx, span := repoTracer.Start(ctx, "RFPRepository.Get", trace.WithAttributes(attribute.Int64("rfp.id", id)))
	defer span.End()

	rfp := new(entity.RFP)
	q := r.reader.NewSelect().Model(rfp).Where("id = ?", id)
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
	return rfp, nil
}

// List returns the RFPs inside scope, newest first.
func (r *Repository) List(ctx context.Context, scope policy.RFPScope) ([]entity.RFP, error) {
	ctx, span := repoTracer.Start(ctx, "RFPRepository.List")
	defer span.End()

	var rfps []entity.RFP
	q := r.reader.NewSelect().Model(&rfps).Order("created_at DESC", "id DESC")
	if err := applyScope(q, scope).Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return rfps, nil
}

// Publish moves a draft owned by ownerID to published. A missing or foreign
// RFP yields repository.ErrNotFound; any other status yields repository.ErrConflict.
// The published row is read back on the writer.
func (r *Repository) Publish(ctx context.Context, id, ownerID int64, now time.Time) (*entity.RFP, error) {
	ctx, span := repoTracer.Start(ctx, "RFPRepository.Publish", trace.WithAttributes(attribute.Int64("rfp.id", id)))
	defer span.End()

	rfp := new(entity.RFP)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*entity.RFP)(nil)).
			Set("status = ?", entity.RFPPublished).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("created_by = ?", ownerID).
			Where("status = ?", entity.RFPDraft).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			owned, err := tx.NewSelect().Model((*entity.RFP)(nil)).Where("id = ?", id).Where("created_by = ?", ownerID).Exists(ctx)
			if err != nil {
				return err
			}
			if !owned {
				return repository.ErrNotFound
			}
			return repository.ErrConflict
		}
		return tx.NewSelect().Model(rfp).Where("id = ?", id).Scan(ctx)
	})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "publish failed")
		}
		return nil, err
	}
	return rfp, nil
}

// AppendAttachment adds ref to an RFP owned by ownerID.
func (r *Repository) AppendAttachment(ctx context.Context, id, ownerID int64, ref string, now time.Time) (*entity.RFP, error) {
	ctx, span := repoTracer.Start(ctx, "RFPRepository.AppendAttachment", trace.WithAttributes(attribute.Int64("rfp.id", id)))
	defer span.End()

	rfp := new(entity.RFP)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(rfp).Where("id = ?", id).Where("created_by = ?", ownerID)
		if tx.Dialect().Name() != dialect.SQLite {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return err
		}
		rfp.Attachments = append(rfp.Attachments, ref)
		rfp.UpdatedAt = now
		_, err := tx.NewUpdate().Model(rfp).Column("attachments", "updated_at").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "attachment update failed")
		}
		return nil, err
	}
	return rfp, nil
}

func applyScope(q *bun.SelectQuery, scope policy.RFPScope) *bun.SelectQuery {
	if scope.CreatedBy != 0 {
		q = q.Where("created_by = ?", scope.CreatedBy)
	}
	if scope.Status != "" {
		q = q.Where("status = ?", scope.Status)
	}
	return q
}
