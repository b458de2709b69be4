package procurement

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/cache"
	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/event"
	"github.com/Additional-Code/procura/internal/messaging"
	"github.com/Additional-Code/procura/internal/service/dashboard"
	"github.com/Additional-Code/procura/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/procura/worker/procurement")

// Module registers procurement event handlers.
var Module = fx.Module("worker_procurement",
	fx.Provide(
		fx.Annotate(
			NewDashboardInvalidator,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewDashboardInvalidator drops the cached dashboards a domain event makes stale.
func NewDashboardInvalidator(store cache.Store, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Name:  "dashboard-invalidator",
		Topic: cfg.Messaging.Kafka.Topic,
		Types: []string{
			string(event.UserRegistered),
			string(event.RFPCreated),
			string(event.RFPPublished),
			string(event.QuoteSubmitted),
			string(event.OrderAwarded),
			string(event.OrderDecided),
		},
		Handler: invalidator(store, logger),
	}
}

func invalidator(store cache.Store, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.procurement.invalidate", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		env, err := event.Decode(msg.Value)
		if err != nil {
			logger.Error("failed to decode procurement event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.String("event.type", string(env.Type)))

		keys := staleKeys(env)
		if err := store.Delete(ctx, keys...); err != nil {
			// Entries still expire on their own; a failed delete only delays freshness.
			logger.Warn("dashboard invalidation failed", zap.Strings("keys", keys), zap.Error(err))
		}

		logger.Info("procurement event processed",
			zap.String("type", string(env.Type)),
			zap.String("key", env.Key()),
			zap.String("status", env.Status),
		)
		return nil
	}
}

func staleKeys(env event.Envelope) []string {
	keys := make([]string, 0, 4)
	if env.BuyerID != 0 {
		keys = append(keys, dashboard.CacheKey(entity.RoleBuyer, env.BuyerID))
	}
	if env.VendorID != 0 {
		keys = append(keys, dashboard.CacheKey(entity.RoleVendor, env.VendorID))
	}
	switch env.Type {
	case event.OrderAwarded, event.OrderDecided:
		keys = append(keys, dashboard.CacheKey(entity.RoleApprover, 0))
	}
	return append(keys, dashboard.CacheKey(entity.RoleAdmin, 0))
}
