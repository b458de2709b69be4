package rfp

import (
	"context"
	"errors"
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
	"github.com/Additional-Code/procura/internal/repository"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/procura/service/rfp")

// Store is the persistence the RFP lifecycle needs.
type Store interface {
	Create(ctx context.Context, rfp *entity.RFP) error
	Get(ctx context.Context, id int64, scope policy.RFPScope) (*entity.RFP, error)
	List(ctx context.Context, scope policy.RFPScope) ([]entity.RFP, error)
	Publish(ctx context.Context, id, ownerID int64, now time.Time) (*entity.RFP, error)
	AppendAttachment(ctx context.Context, id, ownerID int64, ref string, now time.Time) (*entity.RFP, error)
}

// CreateInput carries the fields of a new RFP.
type CreateInput struct {
	Title        string
	Description  string
	Category     string
	Budget       decimal.Decimal
	Deadline     string
	Requirements []string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store       Store
	Attachments attachment.Store
	Events      event.Publisher
	Logger      *zap.Logger
}

// Service owns RFP creation, publication and scoped reads.
type Service struct {
	store       Store
	attachments attachment.Store
	events      event.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:       p.Store,
		attachments: p.Attachments,
		events:      p.Events,
		logger:      p.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new draft RFP owned by the calling buyer.
func (s *Service) Create(ctx context.Context, p identity.Principal, in CreateInput) (*entity.RFP, error) {
	ctx, span := serviceTracer.Start(ctx, "RFPService.Create", trace.WithAttributes(attribute.Int64("principal.id", p.UserID)))
	defer span.End()

	if err := allow(p, policy.ActionCreateRFP, "only buyers can create RFPs"); err != nil {
		return nil, err
	}

	now := s.now()
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)

	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Description == "" {
		missing = append(missing, "description")
	}
	if in.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return nil, errorbank.BadRequest("missing required fields", errorbank.WithDetail("fields", missing))
	}
	if !in.Budget.IsPositive() {
		return nil, errorbank.BadRequest("budget must be greater than zero")
	}
	deadline, err := parseDeadline(in.Deadline)
	if err != nil {
		return nil, errorbank.BadRequest("deadline must be a date (YYYY-MM-DD) or RFC3339 timestamp", errorbank.WithCause(err))
	}
	if deadline.Before(startOfDay(now)) {
		return nil, errorbank.BadRequest("deadline cannot be in the past")
	}

	rfp := &entity.RFP{
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		Budget:       in.Budget,
		Deadline:     deadline,
		Requirements: cleanRequirements(in.Requirements),
		Attachments:  []string{},
		Status:       entity.RFPDraft,
		CreatedBy:    p.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, rfp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create rfp", errorbank.WithCause(err))
	}

	s.logger.Info("rfp created", zap.Int64("rfp_id", rfp.ID), zap.Int64("buyer_id", p.UserID))
	s.events.Publish(ctx, event.Envelope{Type: event.RFPCreated, RFPID: rfp.ID, BuyerID: rfp.CreatedBy, Status: string(rfp.Status)})
	return rfp, nil
}

// Publish moves the caller's draft to published. Callers that do not own
// the RFP are told it does not exist.
func (s *Service) Publish(ctx context.Context, p identity.Principal, id int64) (*entity.RFP, error) {
	ctx, span := serviceTracer.Start(ctx, "RFPService.Publish", trace.WithAttributes(attribute.Int64("rfp.id", id)))
	defer span.End()

	if p.Role != entity.RoleBuyer {
		return nil, errorbank.NotFoundOrForbidden("rfp")
	}

	rfp, err := s.store.Publish(ctx, id, p.UserID, s.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, errorbank.NotFoundOrForbidden("rfp")
	case errors.Is(err, repository.ErrConflict):
		return nil, errorbank.Conflict("only draft rfps can be published")
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to publish rfp", errorbank.WithCause(err))
	}

	s.events.Publish(ctx, event.Envelope{Type: event.RFPPublished, RFPID: rfp.ID, BuyerID: rfp.CreatedBy, Status: string(rfp.Status)})
	return rfp, nil
}

// List returns the RFPs visible to the caller, newest first.
func (s *Service) List(ctx context.Context, p identity.Principal) ([]entity.RFP, error) {
	ctx, span := serviceTracer.Start(ctx, "RFPService.List", trace.WithAttributes(attribute.String("principal.role", string(p.Role))))
	defer span.End()

	pol, err := policy.For(p.Role)
	if err != nil {
		return nil, errorbank.Forbidden("unknown role")
	}
	rfps, err := s.store.List(ctx, pol.RFPScope(p))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list rfps", errorbank.WithCause(err))
	}
	return rfps, nil
}

// Get returns one RFP if it is visible to the caller.
func (s *Service) Get(ctx context.Context, p identity.Principal, id int64) (*entity.RFP, error) {
	ctx, span := serviceTracer.Start(ctx, "RFPService.Get", trace.WithAttributes(attribute.Int64("rfp.id", id)))
	defer span.End()

	pol, err := policy.For(p.Role)
	if err != nil {
		return nil, errorbank.Forbidden("unknown role")
	}
	rfp, err := s.store.Get(ctx, id, pol.RFPScope(p))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorbank.NotFoundOrForbidden("rfp")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load rfp", errorbank.WithCause(err))
	}
	return rfp, nil
}

// AttachFile stores a file and appends its reference to the caller's RFP.
func (s *Service) AttachFile(ctx context.Context, p identity.Principal, id int64, name string, body io.Reader) (*entity.RFP, error) {
	ctx, span := serviceTracer.Start(ctx, "RFPService.AttachFile", trace.WithAttributes(attribute.Int64("rfp.id", id)))
	defer span.End()

	if p.Role != entity.RoleBuyer {
		return nil, errorbank.NotFoundOrForbidden("rfp")
	}
	if _, err := s.store.Get(ctx, id, policy.RFPScope{CreatedBy: p.UserID}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorbank.NotFoundOrForbidden("rfp")
		}
		return nil, errorbank.Internal("failed to load rfp", errorbank.WithCause(err))
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

	rfp, err := s.store.AppendAttachment(ctx, id, p.UserID, ref, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorbank.NotFoundOrForbidden("rfp")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to attach file", errorbank.WithCause(err))
	}
	return rfp, nil
}

func allow(p identity.Principal, action policy.Action, message string) error {
	pol, err := policy.For(p.Role)
	if err != nil || !pol.Allows(action) {
		return errorbank.Forbidden(message)
	}
	return nil
}

func parseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cleanRequirements(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
